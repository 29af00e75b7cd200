package database

import (
	"context"
	"errors"
	"fmt"

	"quadra_financeiro/internal/config/connections/postgres"
	"quadra_financeiro/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrBatchRolledBack marks rows of a bulk insert that were valid but were
// not stored because another row in the same batch failed.
var ErrBatchRolledBack = errors.New("batch rolled back")

type RentalsRepo struct {
	pg    *postgres.Postgres
	table string
}

func NewRentalsRepo(pg *postgres.Postgres, table string) *RentalsRepo {
	return &RentalsRepo{
		pg:    pg,
		table: table,
	}
}

const rentalColumns = `id, dia_semana, mes_referencia, horario_inicio, horas_alugadas,
	cliente_time, valor, status, data_criacao`

func (r *RentalsRepo) Insert(ctx context.Context, row models.Rental) (int64, error) {
	tx, err := r.pg.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO `+r.table+` (
			dia_semana, mes_referencia, horario_inicio, horas_alugadas,
			cliente_time, valor, status, data_criacao
		) VALUES (
			$1, $2, $3, $4::numeric,
			$5, $6::numeric, $7, COALESCE($8, NOW())
		) RETURNING id`,
		row.Weekday, row.ReferenceMonth, row.StartTime, row.Hours,
		row.Client, row.Amount, string(row.Status), nullTime(row.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", r.table, err)
	}
	return id, tx.Commit(ctx)
}

// InsertBatch queues every row in one round trip inside a single
// transaction. The batch is all-or-nothing: when any row fails nothing is
// committed and every row reports an error.
func (r *RentalsRepo) InsertBatch(ctx context.Context, rows []models.Rental) ([]int64, []error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(rows))
	errs := make([]error, len(rows))

	tx, err := r.pg.Pool.Begin(ctx)
	if err != nil {
		return ids, fillErrs(errs, fmt.Errorf("insert %s: %w", r.table, err))
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			`INSERT INTO `+r.table+` (
				dia_semana, mes_referencia, horario_inicio, horas_alugadas,
				cliente_time, valor, status
			) VALUES ($1, $2, $3, $4::numeric, $5, $6::numeric, $7)
			RETURNING id`,
			row.Weekday, row.ReferenceMonth, row.StartTime, row.Hours,
			row.Client, row.Amount, string(row.Status),
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range rows {
		errs[i] = br.QueryRow().Scan(&ids[i])
	}
	closeErr := br.Close()

	if settleBatch(ids, errs, r.table) {
		return ids, errs
	}
	if closeErr == nil {
		closeErr = tx.Commit(ctx)
	}
	if closeErr != nil {
		settleBatch(ids, fillErrs(errs, fmt.Errorf("insert %s: %w", r.table, closeErr)), r.table)
	}
	return ids, errs
}

// settleBatch reports whether any row failed. If one did, ids are zeroed
// and rows that had scanned fine get ErrBatchRolledBack.
func settleBatch(ids []int64, errs []error, table string) bool {
	failed := -1
	for i, err := range errs {
		if err != nil {
			failed = i
			break
		}
	}
	if failed < 0 {
		return false
	}
	for i := range errs {
		ids[i] = 0
		if errs[i] == nil {
			errs[i] = fmt.Errorf("insert %s row %d: %w", table, i, ErrBatchRolledBack)
		}
	}
	return true
}

func fillErrs(errs []error, err error) []error {
	for i := range errs {
		errs[i] = err
	}
	return errs
}

func (r *RentalsRepo) ListByReferenceMonth(ctx context.Context, ref string) ([]models.Rental, error) {
	rows, err := r.pg.Pool.Query(ctx,
		`SELECT `+rentalColumns+`
		FROM `+r.table+`
		WHERE mes_referencia = $1
		ORDER BY mes_referencia, array_position($2::text[], dia_semana), horario_inicio, id`,
		ref, models.Weekdays,
	)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", r.table, err)
	}
	defer rows.Close()

	out := make([]models.Rental, 0)
	for rows.Next() {
		var (
			row    models.Rental
			status string
		)
		if err := rows.Scan(
			&row.ID, &row.Weekday, &row.ReferenceMonth, &row.StartTime, &row.Hours,
			&row.Client, &row.Amount, &status, &row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table, err)
		}
		row.Status = models.RentalStatus(status)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *RentalsRepo) Summary(ctx context.Context, ref string) (models.RentalSummary, error) {
	var (
		paid, due, hours decimal.Decimal
		count            int
	)
	err := r.pg.Pool.QueryRow(ctx,
		`SELECT
			COALESCE(SUM(valor) FILTER (WHERE status = 'Pago'), 0),
			COALESCE(SUM(valor) FILTER (WHERE status <> 'Pago'), 0),
			COUNT(*),
			COALESCE(SUM(horas_alugadas), 0)
		FROM `+r.table+`
		WHERE mes_referencia = $1`,
		ref,
	).Scan(&paid, &due, &count, &hours)
	if err != nil {
		return models.RentalSummary{}, fmt.Errorf("summary %s: %w", r.table, err)
	}
	return models.RentalSummary{
		TotalPaid: paid.InexactFloat64(),
		TotalDue:  due.InexactFloat64(),
		Count:     count,
		Hours:     hours.InexactFloat64(),
	}, nil
}

func (r *RentalsRepo) UpdateStatus(ctx context.Context, id int64, status models.RentalStatus) (bool, error) {
	tx, err := r.pg.Pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE `+r.table+` SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", r.table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
