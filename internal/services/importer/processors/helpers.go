package processors

import (
	"strconv"
	"strings"
	"time"

	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/utils"
)

// field returns the first non-empty cell among the given column aliases.
// Aliases are matched after folding case, accents and separators.
func field(row map[string]string, aliases ...string) string {
	for _, a := range aliases {
		if v := strings.TrimSpace(row[a]); v != "" {
			return v
		}
	}
	for k, v := range row {
		fk := foldHeader(k)
		for _, a := range aliases {
			if fk == foldHeader(a) && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func foldHeader(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ", ".", " ", "/", " ").Replace(s)
	return strings.ReplaceAll(utils.FoldKey(s), " ", "")
}

// normalizeAmount accepts "1234.5", "1.234,50" and "R$ 80,00".
func normalizeAmount(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
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

// parseDateStrict returns the date as YYYY-MM-DD, or "" when no layout fits.
func parseDateStrict(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	layouts := []string{
		models.DateLayout,
		"02/01/2006",
		"02.01.2006",
		"2006/01/02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"02/01/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.Format(models.DateLayout)
		}
	}
	// spreadsheet serial dates (days since 1899-12-30)
	if n, err := strconv.ParseFloat(s, 64); err == nil && n > 0 && n < 2958466 {
		base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
		return base.AddDate(0, 0, int(n)).Format(models.DateLayout)
	}
	return ""
}

// referenceMonth accepts MM/YYYY, M/YYYY and YYYY-MM.
func referenceMonth(s string) string {
	s = strings.TrimSpace(s)
	if y, m, ok := strings.Cut(s, "-"); ok && len(y) == 4 {
		s = m + "/" + y
	}
	if m, y, ok := strings.Cut(s, "/"); ok && len(m) == 1 {
		s = "0" + m + "/" + y
	}
	return s
}

// startTime accepts "9:00", "09:00" and "09:00:00".
func startTime(s string) string {
	s = strings.TrimSpace(s)
	if h, rest, ok := strings.Cut(s, ":"); ok {
		if len(h) == 1 {
			h = "0" + h
		}
		if len(rest) > 2 {
			rest = rest[:2]
		}
		return h + ":" + rest
	}
	return s
}
