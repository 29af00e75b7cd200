package database

import (
	"context"
	"fmt"
	"time"

	"quadra_financeiro/internal/config/connections/postgres"
	"quadra_financeiro/internal/models"

	"github.com/shopspring/decimal"
)

type TransactionsRepo struct {
	pg    *postgres.Postgres
	table string
}

func NewTransactionsRepo(pg *postgres.Postgres, table string) *TransactionsRepo {
	return &TransactionsRepo{
		pg:    pg,
		table: table,
	}
}

func (r *TransactionsRepo) Insert(ctx context.Context, row models.Transaction) (int64, error) {
	date, err := time.Parse(models.DateLayout, row.Date)
	if err != nil {
		return 0, fmt.Errorf("insert %s: data_transacao: %w", r.table, err)
	}

	tx, err := r.pg.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO `+r.table+` (
			data_transacao, tipo, descricao, valor, observacao, data_criacao
		) VALUES (
			$1::date, $2, $3, $4::numeric, NULLIF($5, ''), COALESCE($6, NOW())
		) RETURNING id`,
		date, string(row.Type), row.Description, row.Amount, row.Note, nullTime(row.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", r.table, err)
	}
	return id, tx.Commit(ctx)
}

func (r *TransactionsRepo) ListBetween(ctx context.Context, from, to time.Time) ([]models.Transaction, error) {
	rows, err := r.pg.Pool.Query(ctx,
		`SELECT id, data_transacao, tipo, descricao, valor, COALESCE(observacao, ''), data_criacao
		FROM `+r.table+`
		WHERE data_transacao >= $1::date AND data_transacao < $2::date
		ORDER BY data_transacao, id`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", r.table, err)
	}
	defer rows.Close()

	out := make([]models.Transaction, 0)
	for rows.Next() {
		var (
			row  models.Transaction
			date time.Time
			kind string
		)
		if err := rows.Scan(&row.ID, &date, &kind, &row.Description, &row.Amount, &row.Note, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table, err)
		}
		row.Date = date.Format(models.DateLayout)
		row.Type = models.TransactionType(kind)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *TransactionsRepo) Summary(ctx context.Context, from, to time.Time) (models.TransactionSummary, error) {
	var (
		in, out decimal.Decimal
		count   int
	)
	err := r.pg.Pool.QueryRow(ctx,
		`SELECT
			COALESCE(SUM(valor) FILTER (WHERE tipo = 'Entrada'), 0),
			COALESCE(SUM(valor) FILTER (WHERE tipo = 'Saída'), 0),
			COUNT(*)
		FROM `+r.table+`
		WHERE data_transacao >= $1::date AND data_transacao < $2::date`,
		from, to,
	).Scan(&in, &out, &count)
	if err != nil {
		return models.TransactionSummary{}, fmt.Errorf("summary %s: %w", r.table, err)
	}
	return models.TransactionSummary{
		TotalInflow:  in.InexactFloat64(),
		TotalOutflow: out.InexactFloat64(),
		Count:        count,
	}, nil
}

// deleteByID serves both tables. Table names never come from input.
func deleteByID(ctx context.Context, pg *postgres.Postgres, table string, id int64) (bool, error) {
	tx, err := pg.Pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
