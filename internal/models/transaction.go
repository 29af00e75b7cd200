package models

import (
	"strings"
	"time"

	"quadra_financeiro/internal/apperr"
	"quadra_financeiro/internal/utils"
)

type TransactionType string

const (
	TypeInflow  TransactionType = "Entrada"
	TypeOutflow TransactionType = "Saída"
)

var TransactionTypes = []TransactionType{TypeInflow, TypeOutflow}

func (t TransactionType) Valid() bool {
	return t == TypeInflow || t == TypeOutflow
}

func ParseTransactionType(s string) (TransactionType, bool) {
	switch utils.FoldKey(s) {
	case "entrada":
		return TypeInflow, true
	case "saida":
		return TypeOutflow, true
	}
	return TransactionType(strings.TrimSpace(s)), false
}

// Transaction is a non-rental cash movement.
type Transaction struct {
	ID          int64           `json:"id"`
	Date        string          `json:"data_transacao"`
	Type        TransactionType `json:"tipo"`
	Description string          `json:"descricao"`
	Amount      float64         `json:"valor"`
	Note        string          `json:"observacao"`
	CreatedAt   time.Time       `json:"data_criacao"`
}

func (t Transaction) Validate() error {
	if _, err := time.Parse(DateLayout, strings.TrimSpace(t.Date)); err != nil {
		return apperr.Invalid("data_transacao", "expected YYYY-MM-DD")
	}
	if !t.Type.Valid() {
		return apperr.Invalid("tipo", "unknown type "+quote(string(t.Type)))
	}
	if strings.TrimSpace(t.Description) == "" {
		return apperr.Invalid("descricao", "required")
	}
	if err := checkAmount("valor", t.Amount); err != nil {
		return err
	}
	return nil
}

func (t Transaction) Normalize() Transaction {
	t.Date = strings.TrimSpace(t.Date)
	if tt, ok := ParseTransactionType(string(t.Type)); ok {
		t.Type = tt
	}
	t.Description = utils.CollapseSpaces(t.Description)
	t.Note = strings.TrimSpace(t.Note)
	return t
}
