package sheets

import (
	"testing"
	"time"

	"quadra_financeiro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRental(t *testing.T) {
	r := exampleRental()
	r.ID = 12
	r.CreatedAt = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, []string{
		"12", "Segunda-feira", "03/2025", "10:00", "1.5", "Time A", "90.00", "A Vencer", "2025-03-01T09:30:00Z",
	}, EncodeRental(r))
	assert.Len(t, EncodeRental(r), len(RentalHeader))
}

func TestEncodeTransaction(t *testing.T) {
	row := EncodeTransaction(models.Transaction{
		ID: 3, Date: "2025-03-02", Type: models.TypeOutflow, Description: "Luz", Amount: 120.5,
	})
	assert.Equal(t, "120.50", row[4])
	assert.Equal(t, "Saída", row[2])
	assert.Len(t, row, len(TransactionHeader))
}

func TestDecodeRentalLenientNumbers(t *testing.T) {
	r, coerced, err := DecodeRental(map[string]string{
		"id":             "4",
		"dia_semana":     "terca-feira",
		"mes_referencia": "03/2025",
		"horas_alugadas": "1,5",
		"valor":          "R$ 1.234,50",
		"status":         "pago",
	})
	require.NoError(t, err)
	assert.Empty(t, coerced)
	assert.Equal(t, "Terça-feira", r.Weekday)
	assert.Equal(t, 1.5, r.Hours)
	assert.Equal(t, 1234.5, r.Amount)
	assert.Equal(t, models.StatusPaid, r.Status)
}

func TestDecodeRentalCoercesGarbage(t *testing.T) {
	r, coerced, err := DecodeRental(map[string]string{"id": "1", "horas_alugadas": "", "valor": "abc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"horas_alugadas", "valor"}, coerced)
	assert.Zero(t, r.Hours)
	assert.Zero(t, r.Amount)
}

func TestDecodeRejectsBadID(t *testing.T) {
	for _, id := range []string{"", "x", "1.5", "-2", "0"} {
		_, _, err := DecodeRental(map[string]string{"id": id})
		assert.Error(t, err, id)
		_, _, err = DecodeTransaction(map[string]string{"id": id})
		assert.Error(t, err, id)
	}
}

func TestDecodeTransactionDates(t *testing.T) {
	for _, in := range []string{"2025-03-02", "02/03/2025", "2025-03-02T10:00:00Z"} {
		tx, _, err := DecodeTransaction(map[string]string{"id": "1", "data_transacao": in, "tipo": "Saida", "valor": "10"})
		require.NoError(t, err)
		assert.Equal(t, "2025-03-02", tx.Date, in)
		assert.Equal(t, models.TypeOutflow, tx.Type)
	}
}

func TestParseDateRejectsJunk(t *testing.T) {
	_, ok := ParseDate("ontem")
	assert.False(t, ok)
	_, ok = ParseDate("")
	assert.False(t, ok)
}
