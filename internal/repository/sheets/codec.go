package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/utils"
)

var RentalHeader = []string{
	"id", "dia_semana", "mes_referencia", "horario_inicio",
	"horas_alugadas", "cliente_time", "valor", "status", "data_criacao",
}

var TransactionHeader = []string{
	"id", "data_transacao", "tipo", "descricao", "valor", "observacao", "data_criacao",
}

func headerFor(c models.Collection) []string {
	if c == models.CollectionTransactions {
		return TransactionHeader
	}
	return RentalHeader
}

// EncodeRental writes a rental with fixed formats so every backend stores
// the same text.
func EncodeRental(r models.Rental) []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Weekday,
		r.ReferenceMonth,
		r.StartTime,
		strconv.FormatFloat(r.Hours, 'f', -1, 64),
		r.Client,
		strconv.FormatFloat(r.Amount, 'f', 2, 64),
		string(r.Status),
		r.CreatedAt.Format(time.RFC3339),
	}
}

func EncodeTransaction(t models.Transaction) []string {
	return []string{
		strconv.FormatInt(t.ID, 10),
		t.Date,
		string(t.Type),
		t.Description,
		strconv.FormatFloat(t.Amount, 'f', 2, 64),
		t.Note,
		t.CreatedAt.Format(time.RFC3339),
	}
}

// record maps a data row onto header names, like the importer does.
type record map[string]string

func toRecord(index map[string]int, row []string) record {
	rec := make(record, len(index))
	for name, i := range index {
		if i < len(row) {
			rec[name] = strings.TrimSpace(row[i])
		}
	}
	return rec
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[key]; !dup && key != "" {
			idx[key] = i
		}
	}
	return idx
}

// DecodeRental is strict on id and lenient elsewhere: numbers that do not
// parse become zero and are named in coerced.
func DecodeRental(rec map[string]string) (r models.Rental, coerced []string, err error) {
	r.ID, err = parseID(rec["id"])
	if err != nil {
		return models.Rental{}, nil, err
	}
	r.Weekday = rec["dia_semana"]
	if wd, ok := models.ParseWeekday(r.Weekday); ok {
		r.Weekday = wd
	}
	r.ReferenceMonth = rec["mes_referencia"]
	r.StartTime = rec["horario_inicio"]
	r.Client = utils.NFC(rec["cliente_time"])
	r.Status, _ = models.ParseRentalStatus(rec["status"])
	r.CreatedAt = parseTimestamp(rec["data_criacao"])

	var ok bool
	if r.Hours, ok = parseNumber(rec["horas_alugadas"]); !ok {
		coerced = append(coerced, "horas_alugadas")
	}
	if r.Amount, ok = parseNumber(rec["valor"]); !ok {
		coerced = append(coerced, "valor")
	}
	return r, coerced, nil
}

func DecodeTransaction(rec map[string]string) (t models.Transaction, coerced []string, err error) {
	t.ID, err = parseID(rec["id"])
	if err != nil {
		return models.Transaction{}, nil, err
	}
	t.Date = rec["data_transacao"]
	if d, ok := ParseDate(t.Date); ok {
		t.Date = d.Format(models.DateLayout)
	}
	t.Type, _ = models.ParseTransactionType(rec["tipo"])
	t.Description = utils.NFC(rec["descricao"])
	t.Note = rec["observacao"]
	t.CreatedAt = parseTimestamp(rec["data_criacao"])

	var ok bool
	if t.Amount, ok = parseNumber(rec["valor"]); !ok {
		coerced = append(coerced, "valor")
	}
	return t, coerced, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad id %q", s)
	}
	return id, nil
}

// parseNumber accepts "90", "90.5", "90,50" and "1.234,50". An empty or
// unparsable cell yields (0, false).
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var dateLayouts = []string{
	models.DateLayout,
	"02/01/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
}

// ParseDate reads a transaction date in any of the layouts a spreadsheet
// user is likely to type.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, l := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(l, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
