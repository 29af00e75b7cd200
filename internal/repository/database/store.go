package database

import (
	"context"
	"fmt"

	"quadra_financeiro/internal/apperr"
	"quadra_financeiro/internal/config/connections/postgres"
	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/ports"

	"go.uber.org/zap"
)

// Store is the Postgres Record Store. Ids come from identity columns, so
// concurrent adds never collide.
type Store struct {
	pg           *postgres.Postgres
	rentals      *RentalsRepo
	transactions *TransactionsRepo
	log          *zap.Logger
}

var (
	_ ports.Store           = (*Store)(nil)
	_ ports.BulkRentalStore = (*Store)(nil)
)

func NewStore(pg *postgres.Postgres, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		pg:           pg,
		rentals:      NewRentalsRepo(pg, RentalsTable),
		transactions: NewTransactionsRepo(pg, TransactionsTable),
		log:          log,
	}
}

// WithTables points the store at differently named tables.
func (s *Store) WithTables(rentals, txs string) *Store {
	if rentals != "" {
		s.rentals = NewRentalsRepo(s.pg, rentals)
	}
	if txs != "" {
		s.transactions = NewTransactionsRepo(s.pg, txs)
	}
	return s
}

func (s *Store) Name() string { return "postgres" }

func (s *Store) ready(op string) error {
	if s.pg == nil || s.pg.Pool == nil {
		return fmt.Errorf("%s: %w", op, apperr.ErrStoreUnavailable)
	}
	return nil
}

func (s *Store) Init(ctx context.Context) error {
	if err := s.ready("init"); err != nil {
		return err
	}
	return EnsureSchema(ctx, s.pg, s.rentals.table, s.transactions.table)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.ready("ping"); err != nil {
		return err
	}
	return s.pg.Pool.Ping(ctx)
}

func (s *Store) AddRental(ctx context.Context, r models.Rental) (int64, error) {
	if err := s.ready("add rental"); err != nil {
		return 0, err
	}
	id, err := s.rentals.Insert(ctx, r)
	if err != nil {
		return 0, err
	}
	s.log.Info("[PG][ADD] rental inserted", zap.Int64("id", id))
	return id, nil
}

func (s *Store) AddTransaction(ctx context.Context, t models.Transaction) (int64, error) {
	if err := s.ready("add transaction"); err != nil {
		return 0, err
	}
	id, err := s.transactions.Insert(ctx, t)
	if err != nil {
		return 0, err
	}
	s.log.Info("[PG][ADD] transaction inserted", zap.Int64("id", id))
	return id, nil
}

// AddRentals is the bulk path used by imports.
func (s *Store) AddRentals(ctx context.Context, rs []models.Rental) ([]int64, []error) {
	if err := s.ready("add rentals"); err != nil {
		errs := make([]error, len(rs))
		for i := range errs {
			errs[i] = err
		}
		return make([]int64, len(rs)), errs
	}
	return s.rentals.InsertBatch(ctx, rs)
}

func (s *Store) FetchMonth(ctx context.Context, year, month int) ([]models.Rental, []models.Transaction, error) {
	if err := s.ready("fetch month"); err != nil {
		return nil, nil, err
	}
	rentals, err := s.rentals.ListByReferenceMonth(ctx, models.ReferenceMonth(year, month))
	if err != nil {
		return nil, nil, err
	}
	from, to := models.MonthRange(year, month)
	txs, err := s.transactions.ListBetween(ctx, from, to)
	if err != nil {
		return nil, nil, err
	}
	return rentals, txs, nil
}

func (s *Store) Summarize(ctx context.Context, year, month int) (models.Summary, error) {
	if err := s.ready("summarize"); err != nil {
		return models.Summary{}, err
	}
	rs, err := s.rentals.Summary(ctx, models.ReferenceMonth(year, month))
	if err != nil {
		return models.Summary{}, err
	}
	from, to := models.MonthRange(year, month)
	ts, err := s.transactions.Summary(ctx, from, to)
	if err != nil {
		return models.Summary{}, err
	}
	return models.Summary{
		Year:         year,
		Month:        month,
		Rentals:      rs,
		Transactions: ts,
		Balance:      models.BalanceOf(rs, ts),
	}, nil
}

func (s *Store) UpdateRentalStatus(ctx context.Context, id int64, status models.RentalStatus) (bool, error) {
	if err := s.ready("update status"); err != nil {
		return false, err
	}
	return s.rentals.UpdateStatus(ctx, id, status)
}

func (s *Store) Delete(ctx context.Context, coll models.Collection, id int64) (bool, error) {
	var table string
	switch coll {
	case models.CollectionRentals:
		table = s.rentals.table
	case models.CollectionTransactions:
		table = s.transactions.table
	default:
		return false, nil
	}
	if err := s.ready("delete"); err != nil {
		return false, err
	}
	return deleteByID(ctx, s.pg, table, id)
}
