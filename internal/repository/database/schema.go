package database

import (
	"context"
	"fmt"

	"quadra_financeiro/internal/config/connections/postgres"
)

const (
	RentalsTable      = "alugueis"
	TransactionsTable = "transacoes"
)

func schema(rentals, txs string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + rentals + ` (
			id             BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			dia_semana     TEXT NOT NULL,
			mes_referencia TEXT NOT NULL,
			horario_inicio TEXT NOT NULL,
			horas_alugadas NUMERIC(6,1) NOT NULL CHECK (horas_alugadas > 0),
			cliente_time   TEXT NOT NULL,
			valor          NUMERIC(12,2) NOT NULL CHECK (valor >= 0),
			status         TEXT NOT NULL CHECK (status IN ('A Vencer', 'Pago', 'Em Atraso')),
			data_criacao   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS ` + rentals + `_mes_referencia_idx ON ` + rentals + ` (mes_referencia)`,
		`CREATE TABLE IF NOT EXISTS ` + txs + ` (
			id             BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			data_transacao DATE NOT NULL,
			tipo           TEXT NOT NULL CHECK (tipo IN ('Entrada', 'Saída')),
			descricao      TEXT NOT NULL,
			valor          NUMERIC(12,2) NOT NULL CHECK (valor >= 0),
			observacao     TEXT,
			data_criacao   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS ` + txs + `_data_transacao_idx ON ` + txs + ` (data_transacao)`,
	}
}

// EnsureSchema creates both tables and their month indexes when missing.
func EnsureSchema(ctx context.Context, pg *postgres.Postgres, rentals, txs string) error {
	for _, stmt := range schema(rentals, txs) {
		if _, err := pg.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
