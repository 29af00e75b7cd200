package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quadra_financeiro/internal/adapters/tabular"
	"quadra_financeiro/internal/apperr"
	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/ports"
	"quadra_financeiro/internal/repository/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingAuditor struct {
	mu     sync.Mutex
	events []models.Event
}

func (a *recordingAuditor) Record(_ context.Context, ev models.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *recordingAuditor) last() models.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.events[len(a.events)-1]
}

// failingStore fails every call with err.
type failingStore struct {
	ports.Store
	err error
}

func (f failingStore) Name() string { return "failing" }
func (f failingStore) AddRental(context.Context, models.Rental) (int64, error) {
	return 0, f.err
}
func (f failingStore) UpdateRentalStatus(context.Context, int64, models.RentalStatus) (bool, error) {
	return false, f.err
}

var now = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *recordingAuditor) {
	t.Helper()
	log := zaptest.NewLogger(t)
	store := sheets.NewStore(tabular.NewMemory(), sheets.Options{
		Name:   "memory",
		Logger: log,
		Now:    func() time.Time { return now },
	})
	require.NoError(t, store.Init(context.Background()))
	audit := &recordingAuditor{}
	return New(store, audit, log).WithClock(func() time.Time { return now }), audit
}

func rental() models.Rental {
	return models.Rental{
		Weekday:        "segunda-feira",
		ReferenceMonth: "03/2025",
		StartTime:      "10:00",
		Hours:          1.5,
		Client:         "  Time   A ",
		Amount:         90,
		Status:         "a vencer",
	}
}

func TestAddRentalNormalizesAndAudits(t *testing.T) {
	ctx := context.WithValue(context.Background(), ports.CtxActor, "admin")
	svc, audit := newService(t)

	id, err := svc.AddRental(ctx, rental())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	mv, err := svc.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)
	require.Len(t, mv.Rentals, 1)
	assert.Equal(t, "Segunda-feira", mv.Rentals[0].Weekday)
	assert.Equal(t, "Time A", mv.Rentals[0].Client)
	assert.Equal(t, models.StatusDue, mv.Rentals[0].Status)

	ev := audit.last()
	assert.Equal(t, models.ActionAddRental, ev.Action)
	assert.Equal(t, models.EventStatusDone, ev.Status)
	assert.Equal(t, int64(1), ev.RecordID)
	assert.Equal(t, "admin", ev.Actor)
	assert.Equal(t, now, ev.At)
}

func TestAddRentalRejectsInvalidInput(t *testing.T) {
	svc, audit := newService(t)

	r := rental()
	r.Hours = 1.2
	_, err := svc.AddRental(context.Background(), r)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "horas_alugadas", ve.Field)
	assert.Equal(t, models.EventStatusFailed, audit.last().Status)

	mv, err := svc.FetchMonth(context.Background(), 2025, 3)
	require.NoError(t, err)
	assert.Empty(t, mv.Rentals)
}

func TestAddTransaction(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddTransaction(ctx, models.Transaction{Date: "2025-03-05", Type: "saida", Description: "Conta de luz", Amount: 120})
	require.NoError(t, err)
	_, err = svc.AddTransaction(ctx, models.Transaction{Date: "05/03/2025", Type: "Entrada", Description: "Bar", Amount: 10})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.AddTransaction(ctx, models.Transaction{Date: "2025-03-06", Type: "Entrada", Description: " ", Amount: 10})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	mv, err := svc.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)
	require.Len(t, mv.Transactions, 1)
	assert.Equal(t, models.TypeOutflow, mv.Transactions[0].Type)
}

func TestFetchMonthRejectsBadMonth(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.FetchMonth(context.Background(), 2025, 13)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Summarize(context.Background(), 2025, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSummaryAndBalance(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	paid := rental()
	paid.Status = models.StatusPaid
	_, err := svc.AddRental(ctx, paid)
	require.NoError(t, err)
	_, err = svc.AddRental(ctx, rental())
	require.NoError(t, err)
	_, err = svc.AddTransaction(ctx, models.Transaction{Date: "2025-03-01", Type: models.TypeInflow, Description: "Bar", Amount: 30})
	require.NoError(t, err)
	_, err = svc.AddTransaction(ctx, models.Transaction{Date: "2025-03-02", Type: models.TypeOutflow, Description: "Luz", Amount: 50})
	require.NoError(t, err)

	sum, err := svc.Summarize(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 90.0, sum.Rentals.TotalPaid)
	assert.Equal(t, 90.0, sum.Rentals.TotalDue)
	assert.Equal(t, 2, sum.Rentals.Count)
	assert.Equal(t, 3.0, sum.Rentals.Hours)
	assert.Equal(t, 30.0, sum.Transactions.TotalInflow)
	assert.Equal(t, 50.0, sum.Transactions.TotalOutflow)
	assert.Equal(t, 120.0, sum.Balance.TotalIn)
	assert.Equal(t, 70.0, sum.Balance.Final)
}

func TestFetchYear(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	r := rental()
	_, err := svc.AddRental(ctx, r)
	require.NoError(t, err)
	r.ReferenceMonth = "11/2025"
	r.Status = models.StatusPaid
	_, err = svc.AddRental(ctx, r)
	require.NoError(t, err)
	r.ReferenceMonth = "01/2026"
	_, err = svc.AddRental(ctx, r)
	require.NoError(t, err)

	yv, err := svc.FetchYear(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, yv.Months, 12)
	assert.Len(t, yv.Months[2].Rentals, 1)
	assert.Len(t, yv.Months[10].Rentals, 1)
	assert.Empty(t, yv.Months[0].Rentals)
	assert.Equal(t, 2, yv.Rentals.Count)
	assert.Equal(t, 90.0, yv.Rentals.TotalPaid)
	assert.Equal(t, 90.0, yv.Months[10].Summary.Rentals.TotalPaid)
}

func TestUpdateRentalStatus(t *testing.T) {
	svc, audit := newService(t)
	ctx := context.Background()

	_, err := svc.AddRental(ctx, rental())
	require.NoError(t, err)

	ok, err := svc.UpdateRentalStatus(ctx, 1, "pago")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.EventStatusDone, audit.last().Status)

	ok, err = svc.UpdateRentalStatus(ctx, 99, "Pago")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, models.EventStatusNotMatched, audit.last().Status)

	_, err = svc.UpdateRentalStatus(ctx, 1, "Cancelado")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	mv, err := svc.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, mv.Rentals[0].Status)
}

func TestDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddRental(ctx, rental())
	require.NoError(t, err)

	ok, err := svc.Delete(ctx, "clientes", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Delete(ctx, "alugueis", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Delete(ctx, "alugueis", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreErrorsAreAudited(t *testing.T) {
	audit := &recordingAuditor{}
	boom := apperr.Quota("append", errors.New("429"))
	svc := New(failingStore{err: boom}, audit, zaptest.NewLogger(t))

	_, err := svc.AddRental(context.Background(), rental())
	assert.ErrorIs(t, err, apperr.ErrTransient)
	assert.Equal(t, models.EventStatusFailed, audit.last().Status)
	assert.Contains(t, audit.last().Error, "429")

	_, err = svc.UpdateRentalStatus(context.Background(), 1, "Pago")
	assert.ErrorIs(t, err, apperr.ErrTransient)
}

func TestMissingStore(t *testing.T) {
	svc := New(nil, nil, nil)
	_, err := svc.AddRental(context.Background(), rental())
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.ErrorIs(t, svc.Ping(context.Background()), apperr.ErrStoreUnavailable)
	assert.Equal(t, "none", svc.StoreName())
}

func TestOptions(t *testing.T) {
	svc, _ := newService(t)
	opts := svc.Options()
	assert.Len(t, opts.Weekdays, 7)
	assert.Equal(t, []int{2023, 2024, 2025, 2026, 2027}, opts.Years)
	assert.Equal(t, "09/2025", opts.ReferenceMonths[0])
	assert.Len(t, opts.ReferenceMonths, 19)
}

type bulkStore struct {
	ports.Store
	got []models.Rental
}

func (b *bulkStore) Name() string { return "bulk" }

func (b *bulkStore) AddRentals(_ context.Context, rs []models.Rental) ([]int64, []error) {
	ids := make([]int64, len(rs))
	for i := range rs {
		ids[i] = int64(len(b.got) + i + 10)
	}
	b.got = append(b.got, rs...)
	return ids, make([]error, len(rs))
}

func TestAddRentalsUsesBulkPath(t *testing.T) {
	store := &bulkStore{}
	audit := &recordingAuditor{}
	svc := New(store, audit, zaptest.NewLogger(t))

	bad := rental()
	bad.Hours = 0
	ids, errs := svc.AddRentals(context.Background(), []models.Rental{rental(), bad, rental()})

	assert.Equal(t, []int64{10, 0, 11}, ids)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], apperr.ErrValidation)
	assert.NoError(t, errs[2])
	require.Len(t, store.got, 2)
	assert.Equal(t, "Time A", store.got[0].Client)
	assert.Len(t, audit.events, 3)
}

func TestAddRentalsFallsBackToSingleAdds(t *testing.T) {
	svc, _ := newService(t)

	ids, errs := svc.AddRentals(context.Background(), []models.Rental{rental(), rental()})
	assert.Equal(t, []int64{1, 2}, ids)
	assert.Equal(t, []error{nil, nil}, errs)
}
