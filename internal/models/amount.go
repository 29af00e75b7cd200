package models

import (
	"math"

	"quadra_financeiro/internal/apperr"

	"github.com/shopspring/decimal"
)

// Largest values the relational columns hold: NUMERIC(12,2) for amounts,
// NUMERIC(6,1) for hours.
const (
	MaxAmount = 9_999_999_999.99
	MaxHours  = 99_999.5
)

// checkAmount rejects amounts every backend cannot store unchanged:
// non-positive, beyond MaxAmount or with more than two decimal places.
func checkAmount(field string, v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return apperr.Invalid(field, "must be greater than zero")
	}
	if v > MaxAmount {
		return apperr.Invalid(field, "too large")
	}
	if decimal.NewFromFloat(v).Exponent() < -2 {
		return apperr.Invalid(field, "at most two decimal places")
	}
	return nil
}

func checkHours(v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) || math.Mod(v*2, 1) != 0 {
		return apperr.Invalid("horas_alugadas", "must be positive in 0.5 steps")
	}
	if v > MaxHours {
		return apperr.Invalid("horas_alugadas", "too large")
	}
	return nil
}
