package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"quadra_financeiro/internal/apperr"
)

const DateLayout = "2006-01-02"

// ReferenceMonth renders the MM/YYYY label rentals are billed under.
func ReferenceMonth(year, month int) string {
	return fmt.Sprintf("%02d/%d", month, year)
}

// ParseReferenceMonth parses an MM/YYYY label.
func ParseReferenceMonth(s string) (year, month int, err error) {
	mm, yyyy, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || len(mm) != 2 || len(yyyy) != 4 {
		return 0, 0, fmt.Errorf("reference month %q: expected MM/YYYY", s)
	}
	month, err = strconv.Atoi(mm)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("reference month %q: bad month", s)
	}
	year, err = strconv.Atoi(yyyy)
	if err != nil || year < 1 {
		return 0, 0, fmt.Errorf("reference month %q: bad year", s)
	}
	return year, month, nil
}

// CheckMonth validates a (year, month) query pair.
func CheckMonth(year, month int) error {
	if month < 1 || month > 12 {
		return apperr.Invalid("mes", "must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return apperr.Invalid("ano", "must be a four digit year")
	}
	return nil
}

// MonthKey is the YYYY-MM prefix of every date inside the month.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// MonthRange returns [first day, first day of next month).
func MonthRange(year, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

func InMonth(t time.Time, year, month int) bool {
	return !t.IsZero() && t.Year() == year && int(t.Month()) == month
}
