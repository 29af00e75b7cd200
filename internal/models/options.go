package models

import (
	"fmt"
	"strconv"
	"time"

	"quadra_financeiro/internal/utils"
)

var Weekdays = []string{
	"Segunda-feira",
	"Terça-feira",
	"Quarta-feira",
	"Quinta-feira",
	"Sexta-feira",
	"Sábado",
	"Domingo",
}

func ParseWeekday(s string) (string, bool) {
	key := utils.FoldKey(s)
	for _, d := range Weekdays {
		if utils.FoldKey(d) == key {
			return d, true
		}
	}
	return s, false
}

// WeekdayOrdinal orders Monday first; unknown names sort last.
func WeekdayOrdinal(s string) int {
	key := utils.FoldKey(s)
	for i, d := range Weekdays {
		if utils.FoldKey(d) == key {
			return i
		}
	}
	return len(Weekdays)
}

func WeekdayOf(t time.Time) string {
	return Weekdays[(int(t.Weekday())+6)%7]
}

// ReferenceMonths lists the last 12 through the next 6 months, most recent first.
func ReferenceMonths(now time.Time) []string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	out := make([]string, 0, 19)
	for i := 6; i >= -12; i-- {
		d := first.AddDate(0, i, 0)
		out = append(out, ReferenceMonth(d.Year(), int(d.Month())))
	}
	return out
}

func AvailableYears(now time.Time) []int {
	y := now.Year()
	return []int{y - 2, y - 1, y, y + 1, y + 2}
}

// ValidYear accepts four digit years starting with 20.
func ValidYear(s string) bool {
	if len(s) != 4 || s[:2] != "20" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

func FormatReferenceMonth(month int, year string) (string, error) {
	if !ValidYear(year) {
		return "", fmt.Errorf("invalid year %q", year)
	}
	if month < 1 || month > 12 {
		return "", fmt.Errorf("invalid month %d", month)
	}
	return fmt.Sprintf("%02d/%s", month, year), nil
}

type Options struct {
	Weekdays         []string          `json:"dias_semana"`
	RentalStatuses   []RentalStatus    `json:"status_aluguel"`
	TransactionTypes []TransactionType `json:"tipos_transacao"`
	ReferenceMonths  []string          `json:"meses_referencia"`
	Years            []int             `json:"anos"`
}

func OptionsAt(now time.Time) Options {
	return Options{
		Weekdays:         Weekdays,
		RentalStatuses:   RentalStatuses,
		TransactionTypes: TransactionTypes,
		ReferenceMonths:  ReferenceMonths(now),
		Years:            AvailableYears(now),
	}
}
