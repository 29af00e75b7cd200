package ledger

import (
	"context"
	"fmt"
	"time"

	"quadra_financeiro/internal/apperr"
	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/ports"

	"go.uber.org/zap"
)

// MonthView is what a month page shows: the rows billed under it.
type MonthView struct {
	Year         int                  `json:"ano"`
	Month        int                  `json:"mes"`
	Rentals      []models.Rental      `json:"alugueis"`
	Transactions []models.Transaction `json:"transacoes"`
}

// YearView lists every month of a year with its summary, plus year totals.
type YearView struct {
	Year         int                       `json:"ano"`
	Months       []YearMonth               `json:"meses"`
	Rentals      models.RentalSummary      `json:"alugueis"`
	Transactions models.TransactionSummary `json:"transacoes"`
	Balance      models.Balance            `json:"saldo"`
}

type YearMonth struct {
	MonthView
	Summary models.Summary `json:"resumo"`
}

// Service is the Access Layer the transport and importer talk to. It
// validates input before any store call and audits every mutation.
type Service struct {
	store ports.Store
	audit ports.Auditor
	log   *zap.Logger
	now   func() time.Time
}

func New(store ports.Store, audit ports.Auditor, log *zap.Logger) *Service {
	if audit == nil {
		audit = ports.NopAuditor{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, audit: audit, log: log, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) StoreName() string {
	if s.store == nil {
		return "none"
	}
	return s.store.Name()
}

func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return apperr.ErrStoreUnavailable
	}
	return s.store.Ping(ctx)
}

func (s *Service) AddRental(ctx context.Context, r models.Rental) (int64, error) {
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		s.record(ctx, models.ActionAddRental, models.CollectionRentals, 0, rentalPayload(r), err)
		return 0, err
	}
	if s.store == nil {
		return 0, fmt.Errorf("add rental: %w", apperr.ErrStoreUnavailable)
	}

	id, err := s.store.AddRental(ctx, r)
	s.record(ctx, models.ActionAddRental, models.CollectionRentals, id, rentalPayload(r), err)
	if err != nil {
		s.log.Error("[LEDGER][ADD] rental failed", zap.String("client", r.Client), zap.Error(err))
		return 0, err
	}
	s.log.Info("[LEDGER][ADD] rental added",
		zap.Int64("id", id),
		zap.String("reference_month", r.ReferenceMonth),
		zap.Float64("amount", r.Amount),
	)
	return id, nil
}

// AddRentals adds many rentals, using the store's bulk path when it has
// one. Results line up with the input; an invalid row does not stop the
// others. A bulk store commits all valid rows or none of them.
func (s *Service) AddRentals(ctx context.Context, rs []models.Rental) ([]int64, []error) {
	ids := make([]int64, len(rs))
	errs := make([]error, len(rs))

	bulk, ok := s.store.(ports.BulkRentalStore)
	if !ok {
		for i, r := range rs {
			ids[i], errs[i] = s.AddRental(ctx, r)
		}
		return ids, errs
	}

	valid := make([]models.Rental, 0, len(rs))
	pos := make([]int, 0, len(rs))
	for i, r := range rs {
		r = r.Normalize()
		if err := r.Validate(); err != nil {
			errs[i] = err
			s.record(ctx, models.ActionAddRental, models.CollectionRentals, 0, rentalPayload(r), err)
			continue
		}
		valid = append(valid, r)
		pos = append(pos, i)
	}
	if len(valid) == 0 {
		return ids, errs
	}

	got, gotErrs := bulk.AddRentals(ctx, valid)
	for j, i := range pos {
		if j < len(got) {
			ids[i] = got[j]
		}
		if j < len(gotErrs) {
			errs[i] = gotErrs[j]
		}
		s.record(ctx, models.ActionAddRental, models.CollectionRentals, ids[i], rentalPayload(valid[j]), errs[i])
	}
	s.log.Info("[LEDGER][ADD] rental batch stored", zap.Int("rows", len(valid)), zap.String("store", s.StoreName()))
	return ids, errs
}

func (s *Service) AddTransaction(ctx context.Context, t models.Transaction) (int64, error) {
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		s.record(ctx, models.ActionAddTransaction, models.CollectionTransactions, 0, transactionPayload(t), err)
		return 0, err
	}
	if s.store == nil {
		return 0, fmt.Errorf("add transaction: %w", apperr.ErrStoreUnavailable)
	}

	id, err := s.store.AddTransaction(ctx, t)
	s.record(ctx, models.ActionAddTransaction, models.CollectionTransactions, id, transactionPayload(t), err)
	if err != nil {
		s.log.Error("[LEDGER][ADD] transaction failed", zap.String("description", t.Description), zap.Error(err))
		return 0, err
	}
	s.log.Info("[LEDGER][ADD] transaction added",
		zap.Int64("id", id),
		zap.String("type", string(t.Type)),
		zap.Float64("amount", t.Amount),
	)
	return id, nil
}

func (s *Service) FetchMonth(ctx context.Context, year, month int) (MonthView, error) {
	if err := models.CheckMonth(year, month); err != nil {
		return MonthView{}, err
	}
	if s.store == nil {
		return MonthView{}, fmt.Errorf("fetch month: %w", apperr.ErrStoreUnavailable)
	}
	rentals, txs, err := s.store.FetchMonth(ctx, year, month)
	if err != nil {
		return MonthView{}, err
	}
	if rentals == nil {
		rentals = []models.Rental{}
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return MonthView{Year: year, Month: month, Rentals: rentals, Transactions: txs}, nil
}

func (s *Service) Summarize(ctx context.Context, year, month int) (models.Summary, error) {
	if err := models.CheckMonth(year, month); err != nil {
		return models.Summary{}, err
	}
	if s.store == nil {
		return models.Summary{}, fmt.Errorf("summarize: %w", apperr.ErrStoreUnavailable)
	}
	return s.store.Summarize(ctx, year, month)
}

// FetchYear walks the twelve months of a year. Totals are recomputed from
// the rows rather than added up from monthly floats.
func (s *Service) FetchYear(ctx context.Context, year int) (YearView, error) {
	if err := models.CheckMonth(year, 1); err != nil {
		return YearView{}, err
	}
	view := YearView{Year: year, Months: make([]YearMonth, 0, 12)}
	var rentals []models.Rental
	var txs []models.Transaction
	for m := 1; m <= 12; m++ {
		mv, err := s.FetchMonth(ctx, year, m)
		if err != nil {
			return YearView{}, fmt.Errorf("fetch year %d month %d: %w", year, m, err)
		}
		rentals = append(rentals, mv.Rentals...)
		txs = append(txs, mv.Transactions...)
		view.Months = append(view.Months, YearMonth{
			MonthView: mv,
			Summary:   models.Summarize(year, m, mv.Rentals, mv.Transactions),
		})
	}
	total := models.Summarize(year, 0, rentals, txs)
	view.Rentals = total.Rentals
	view.Transactions = total.Transactions
	view.Balance = total.Balance
	return view, nil
}

// UpdateRentalStatus accepts any spelling ParseRentalStatus understands.
func (s *Service) UpdateRentalStatus(ctx context.Context, id int64, status string) (bool, error) {
	st, ok := models.ParseRentalStatus(status)
	payload := map[string]any{"status": string(st)}
	if !ok {
		err := apperr.Invalid("status", fmt.Sprintf("unknown status %q", status))
		s.record(ctx, models.ActionUpdateStatus, models.CollectionRentals, id, payload, err)
		return false, err
	}
	if id <= 0 {
		err := apperr.Invalid("id", "must be positive")
		s.record(ctx, models.ActionUpdateStatus, models.CollectionRentals, id, payload, err)
		return false, err
	}
	if s.store == nil {
		return false, fmt.Errorf("update status: %w", apperr.ErrStoreUnavailable)
	}

	updated, err := s.store.UpdateRentalStatus(ctx, id, st)
	s.recordOutcome(ctx, models.ActionUpdateStatus, models.CollectionRentals, id, payload, updated, err)
	if err != nil {
		s.log.Error("[LEDGER][UPDATE] status change failed", zap.Int64("id", id), zap.Error(err))
		return false, err
	}
	if !updated {
		s.log.Warn("[LEDGER][UPDATE] rental not found", zap.Int64("id", id))
	}
	return updated, nil
}

// Delete reports false for an unknown collection or a missing id.
func (s *Service) Delete(ctx context.Context, collection string, id int64) (bool, error) {
	coll, ok := models.ParseCollection(collection)
	if !ok {
		s.log.Warn("[LEDGER][DELETE] unknown collection", zap.String("collection", collection))
		return false, nil
	}
	if s.store == nil {
		return false, fmt.Errorf("delete: %w", apperr.ErrStoreUnavailable)
	}

	deleted, err := s.store.Delete(ctx, coll, id)
	s.recordOutcome(ctx, models.ActionDelete, coll, id, nil, deleted, err)
	if err != nil {
		s.log.Error("[LEDGER][DELETE] failed", zap.String("collection", string(coll)), zap.Int64("id", id), zap.Error(err))
		return false, err
	}
	if deleted {
		s.log.Info("[LEDGER][DELETE] record deleted", zap.String("collection", string(coll)), zap.Int64("id", id))
	}
	return deleted, nil
}

func (s *Service) Options() models.Options {
	return models.OptionsAt(s.now())
}

func (s *Service) recordOutcome(ctx context.Context, action string, coll models.Collection, id int64, payload map[string]any, found bool, err error) {
	if err == nil && !found {
		s.audit.Record(ctx, s.event(ctx, action, coll, id, payload, models.EventStatusNotMatched, nil))
		return
	}
	s.record(ctx, action, coll, id, payload, err)
}

func (s *Service) record(ctx context.Context, action string, coll models.Collection, id int64, payload map[string]any, err error) {
	status := models.EventStatusDone
	if err != nil {
		status = models.EventStatusFailed
	}
	s.audit.Record(ctx, s.event(ctx, action, coll, id, payload, status, err))
}

func (s *Service) event(ctx context.Context, action string, coll models.Collection, id int64, payload map[string]any, status string, err error) models.Event {
	ev := models.Event{
		Action:     action,
		Collection: coll,
		RecordID:   id,
		Payload:    payload,
		Status:     status,
		Actor:      ports.Actor(ctx),
		At:         s.now().UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

func rentalPayload(r models.Rental) map[string]any {
	return map[string]any{
		"dia_semana":     r.Weekday,
		"mes_referencia": r.ReferenceMonth,
		"horario_inicio": r.StartTime,
		"horas_alugadas": r.Hours,
		"cliente_time":   r.Client,
		"valor":          r.Amount,
		"status":         string(r.Status),
	}
}

func transactionPayload(t models.Transaction) map[string]any {
	return map[string]any{
		"data_transacao": t.Date,
		"tipo":           string(t.Type),
		"descricao":      t.Description,
		"valor":          t.Amount,
		"observacao":     t.Note,
	}
}
