package models

import (
	"regexp"
	"strings"
	"time"

	"quadra_financeiro/internal/apperr"
	"quadra_financeiro/internal/utils"
)

type RentalStatus string

const (
	StatusDue     RentalStatus = "A Vencer"
	StatusPaid    RentalStatus = "Pago"
	StatusOverdue RentalStatus = "Em Atraso"
)

var RentalStatuses = []RentalStatus{StatusDue, StatusPaid, StatusOverdue}

func (s RentalStatus) Valid() bool {
	for _, v := range RentalStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseRentalStatus accepts case and accent variants of the three statuses.
func ParseRentalStatus(s string) (RentalStatus, bool) {
	key := utils.FoldKey(s)
	for _, v := range RentalStatuses {
		if utils.FoldKey(string(v)) == key {
			return v, true
		}
	}
	return RentalStatus(strings.TrimSpace(s)), false
}

// Rental is one court booking billed under a reference month.
type Rental struct {
	ID             int64        `json:"id"`
	Weekday        string       `json:"dia_semana"`
	ReferenceMonth string       `json:"mes_referencia"`
	StartTime      string       `json:"horario_inicio"`
	Hours          float64      `json:"horas_alugadas"`
	Client         string       `json:"cliente_time"`
	Amount         float64      `json:"valor"`
	Status         RentalStatus `json:"status"`
	CreatedAt      time.Time    `json:"data_criacao"`
}

var startTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Validate checks the fields a caller supplies when adding a rental.
func (r Rental) Validate() error {
	if _, ok := ParseWeekday(r.Weekday); !ok {
		return apperr.Invalid("dia_semana", "unknown weekday "+quote(r.Weekday))
	}
	if _, _, err := ParseReferenceMonth(r.ReferenceMonth); err != nil {
		return apperr.Invalid("mes_referencia", "expected MM/YYYY")
	}
	if !startTimeRe.MatchString(strings.TrimSpace(r.StartTime)) {
		return apperr.Invalid("horario_inicio", "expected HH:MM")
	}
	if err := checkHours(r.Hours); err != nil {
		return err
	}
	if strings.TrimSpace(r.Client) == "" {
		return apperr.Invalid("cliente_time", "required")
	}
	if err := checkAmount("valor", r.Amount); err != nil {
		return err
	}
	if !r.Status.Valid() {
		return apperr.Invalid("status", "unknown status "+quote(string(r.Status)))
	}
	return nil
}

// Normalize trims text fields and canonicalizes enum spellings.
func (r Rental) Normalize() Rental {
	if wd, ok := ParseWeekday(r.Weekday); ok {
		r.Weekday = wd
	}
	r.ReferenceMonth = strings.TrimSpace(r.ReferenceMonth)
	r.StartTime = strings.TrimSpace(r.StartTime)
	r.Client = utils.CollapseSpaces(r.Client)
	if st, ok := ParseRentalStatus(string(r.Status)); ok {
		r.Status = st
	}
	return r
}

func quote(s string) string { return `"` + s + `"` }
