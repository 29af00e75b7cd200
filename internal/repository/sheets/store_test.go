package sheets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"quadra_financeiro/internal/adapters/tabular"
	"quadra_financeiro/internal/apperr"
	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

// countingWorkbook counts Values calls and can fail the next n of them.
type countingWorkbook struct {
	ports.Workbook

	mu       sync.Mutex
	values   int
	failNext int
	failWith error
}

func (w *countingWorkbook) Values(ctx context.Context, sheet string) ([][]string, error) {
	w.mu.Lock()
	w.values++
	if w.failNext > 0 {
		w.failNext--
		err := w.failWith
		w.mu.Unlock()
		return nil, err
	}
	w.mu.Unlock()
	return w.Workbook.Values(ctx, sheet)
}

func (w *countingWorkbook) calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.values
}

// gatedWorkbook parks the next armed Values call after it has read the
// sheet, until release is closed.
type gatedWorkbook struct {
	ports.Workbook

	mu      sync.Mutex
	armed   bool
	read    chan struct{}
	release chan struct{}
}

func (w *gatedWorkbook) arm() {
	w.mu.Lock()
	w.armed = true
	w.read = make(chan struct{})
	w.release = make(chan struct{})
	w.mu.Unlock()
}

func (w *gatedWorkbook) Values(ctx context.Context, sheet string) ([][]string, error) {
	rows, err := w.Workbook.Values(ctx, sheet)

	w.mu.Lock()
	gated := w.armed
	w.armed = false
	read, release := w.read, w.release
	w.mu.Unlock()

	if gated {
		close(read)
		<-release
	}
	return rows, err
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, wb ports.Workbook, opts Options) *Store {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	s := NewStore(wb, opts)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func exampleRental() models.Rental {
	return models.Rental{
		Weekday:        "Segunda-feira",
		ReferenceMonth: "03/2025",
		StartTime:      "10:00",
		Hours:          1.5,
		Client:         "Time A",
		Amount:         90.0,
		Status:         models.StatusDue,
	}
}

func TestExampleScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, tabular.NewMemory(), Options{})

	id, err := s.AddRental(ctx, exampleRental())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	rentals, txs, err := s.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.Empty(t, txs)

	want := exampleRental()
	want.ID = 1
	got := rentals[0]
	assert.True(t, got.CreatedAt.Equal(fixedNow))
	got.CreatedAt = time.Time{}
	assert.Equal(t, want, got)

	ok, err := s.UpdateRentalStatus(ctx, 1, models.StatusPaid)
	require.NoError(t, err)
	assert.True(t, ok)

	sum, err := s.Summarize(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 90.0, sum.Rentals.TotalPaid)
	assert.Equal(t, 0.0, sum.Rentals.TotalDue)
	assert.Equal(t, 1, sum.Rentals.Count)
	assert.Equal(t, 1.5, sum.Rentals.Hours)
}

func TestIDsStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, tabular.NewMemory(), Options{})

	var prev int64
	for i := 0; i < 5; i++ {
		id, err := s.AddRental(ctx, exampleRental())
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}

	id, err := s.AddTransaction(ctx, models.Transaction{
		Date: "2025-03-02", Type: models.TypeInflow, Description: "Bar", Amount: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id, "transactions keep their own sequence")

	next, err := s.NextID(ctx, models.CollectionRentals)
	require.NoError(t, err)
	assert.Equal(t, int64(6), next)
}

func TestNextIDSkipsUnreadableIDs(t *testing.T) {
	ctx := context.Background()
	wb := tabular.NewMemory()
	s := newTestStore(t, wb, Options{})

	require.NoError(t, wb.AppendRow(ctx, "alugueis", []string{"abc"}))
	require.NoError(t, wb.AppendRow(ctx, "alugueis", []string{"7"}))
	require.NoError(t, wb.AppendRow(ctx, "alugueis", []string{""}))

	next, err := s.NextID(ctx, models.CollectionRentals)
	require.NoError(t, err)
	assert.Equal(t, int64(8), next)

	empty, err := s.NextID(ctx, models.CollectionTransactions)
	require.NoError(t, err)
	assert.Equal(t, int64(1), empty)
}

func TestConcurrentAddsGetUniqueIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, tabular.NewMemory(), Options{})

	const n = 20
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.AddRental(ctx, exampleRental())
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}
}

func TestFetchMonthEmpty(t *testing.T) {
	s := newTestStore(t, tabular.NewMemory(), Options{})

	rentals, txs, err := s.FetchMonth(context.Background(), 2031, 1)
	require.NoError(t, err)
	assert.NotNil(t, rentals)
	assert.NotNil(t, txs)
	assert.Empty(t, rentals)
	assert.Empty(t, txs)
}

func TestFetchMonthFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, tabular.NewMemory(), Options{})

	add := func(day, start, ref string) {
		r := exampleRental()
		r.Weekday, r.StartTime, r.ReferenceMonth = day, start, ref
		_, err := s.AddRental(ctx, r)
		require.NoError(t, err)
	}
	add("Sábado", "09:00", "03/2025")
	add("Segunda-feira", "18:00", "03/2025")
	add("Segunda-feira", "08:00", "03/2025")
	add("Terça-feira", "08:00", "04/2025")

	for _, d := range []string{"2025-03-20", "2025-04-01", "2025-03-02"} {
		_, err := s.AddTransaction(ctx, models.Transaction{
			Date: d, Type: models.TypeOutflow, Description: "Luz", Amount: 5,
		})
		require.NoError(t, err)
	}

	rentals, txs, err := s.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)
	require.Len(t, rentals, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{rentals[0].ID, rentals[1].ID, rentals[2].ID})
	require.Len(t, txs, 2)
	assert.Equal(t, "2025-03-02", txs[0].Date)
	assert.Equal(t, "2025-03-20", txs[1].Date)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, tabular.NewMemory(), Options{})

	_, err := s.AddRental(ctx, exampleRental())
	require.NoError(t, err)
	before, _, err := s.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)

	ok, err := s.UpdateRentalStatus(ctx, 42, models.StatusPaid)
	require.NoError(t, err)
	assert.False(t, ok)

	after, _, err := s.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	ok, err = s.UpdateRentalStatus(ctx, 1, models.StatusOverdue)
	require.NoError(t, err)
	assert.True(t, ok)

	after, _, err = s.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)
	require.Len(t, after, 1)
	want := before[0]
	want.Status = models.StatusOverdue
	assert.Equal(t, want, after[0])
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, tabular.NewMemory(), Options{})

	_, err := s.AddRental(ctx, exampleRental())
	require.NoError(t, err)
	_, err = s.AddRental(ctx, exampleRental())
	require.NoError(t, err)

	ok, err := s.Delete(ctx, models.Collection("clientes"), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Delete(ctx, models.CollectionTransactions, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Delete(ctx, models.CollectionRentals, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	rentals, _, err := s.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.Equal(t, int64(2), rentals[0].ID)
}

func TestCacheServesReadsUntilWrite(t *testing.T) {
	ctx := context.Background()
	wb := &countingWorkbook{Workbook: tabular.NewMemory()}
	s := newTestStore(t, wb, Options{})

	_, err := s.AddRental(ctx, exampleRental())
	require.NoError(t, err)

	_, err = s.Summarize(ctx, 2025, 3)
	require.NoError(t, err)
	base := wb.calls()

	_, _, err = s.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)
	_, err = s.Summarize(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, base, wb.calls(), "cached reads must not reach the workbook")

	r := exampleRental()
	r.Amount = 60
	_, err = s.AddRental(ctx, r)
	require.NoError(t, err)

	sum, err := s.Summarize(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Rentals.Count)
	assert.Equal(t, 150.0, sum.Rentals.TotalDue)
}

func TestReadOverlappingWriteDoesNotCacheOldRows(t *testing.T) {
	ctx := context.Background()
	wb := &gatedWorkbook{Workbook: tabular.NewMemory()}
	s := newTestStore(t, wb, Options{})

	_, err := s.AddRental(ctx, exampleRental())
	require.NoError(t, err)

	wb.arm()
	done := make(chan error, 1)
	go func() {
		_, _, err := s.FetchMonth(ctx, 2025, 3)
		done <- err
	}()
	<-wb.read

	id, err := s.AddRental(ctx, exampleRental())
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	close(wb.release)
	require.NoError(t, <-done)

	rentals, _, err := s.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)
	require.Len(t, rentals, 2)

	sum, err := s.Summarize(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Rentals.Count)
}

func TestCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	wb := &countingWorkbook{Workbook: tabular.NewMemory()}
	s := newTestStore(t, wb, Options{
		TTL: time.Minute,
		Now: func() time.Time { return now },
	})

	_, _, err := s.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)
	base := wb.calls()

	now = now.Add(30 * time.Second)
	_, _, err = s.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, base, wb.calls())

	now = now.Add(time.Minute)
	_, _, err = s.FetchMonth(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Greater(t, wb.calls(), base)
}

func TestQuotaErrorsAreRetried(t *testing.T) {
	ctx := context.Background()
	var delays []time.Duration
	wb := &countingWorkbook{Workbook: tabular.NewMemory()}
	s := newTestStore(t, wb, Options{
		MinInterval: time.Millisecond,
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	})

	wb.mu.Lock()
	wb.failNext = 2
	wb.failWith = apperr.Quota("values", errors.New("429 too many requests"))
	wb.mu.Unlock()
	base := wb.calls()

	require.NoError(t, s.Ping(ctx))
	assert.Equal(t, 3, wb.calls()-base)
	require.Len(t, delays, 2)
	assert.LessOrEqual(t, delays[0], delays[1])
}

func TestNonQuotaErrorsAreNotRetried(t *testing.T) {
	ctx := context.Background()
	wb := &countingWorkbook{Workbook: tabular.NewMemory()}
	s := newTestStore(t, wb, Options{
		Sleep: func(context.Context, time.Duration) error {
			t.Fatal("unexpected backoff")
			return nil
		},
	})

	wb.mu.Lock()
	wb.failNext = 1
	wb.failWith = apperr.Unavailable("values", errors.New("403 forbidden"))
	wb.mu.Unlock()
	base := wb.calls()

	err := s.Ping(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.Equal(t, 1, wb.calls()-base)
}

func TestRetryPolicy(t *testing.T) {
	var delays []time.Duration
	p := retryPolicy{
		attempts: 3,
		base:     time.Second,
		sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
		log: zap.NewNop(),
	}

	calls := 0
	err := p.do(context.Background(), "op", func(context.Context) error {
		calls++
		return apperr.Quota("op", errors.New("rate limit"))
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTransient)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)

	calls = 0
	err = p.do(context.Background(), "op", func(context.Context) error {
		calls++
		return fmt.Errorf("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := retryPolicy{attempts: 3, base: time.Hour, sleep: sleepCtx, log: zap.NewNop()}
	err := p.do(ctx, "op", func(context.Context) error {
		return apperr.Quota("op", errors.New("rate limit"))
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestThrottleSpacesCalls(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, tabular.NewMemory(), Options{MinInterval: 40 * time.Millisecond})

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Ping(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

// stepWorkbook exposes sheet setup as separate steps and records when
// each remote call happened.
type stepWorkbook struct {
	*tabular.Memory

	mu     sync.Mutex
	added  map[string]bool
	header map[string]bool
	ops    []string
	at     []time.Time
}

func newStepWorkbook() *stepWorkbook {
	return &stepWorkbook{Memory: tabular.NewMemory(), added: map[string]bool{}, header: map[string]bool{}}
}

func (w *stepWorkbook) note(op string) {
	w.mu.Lock()
	w.ops = append(w.ops, op)
	w.at = append(w.at, time.Now())
	w.mu.Unlock()
}

func (w *stepWorkbook) HasSheet(_ context.Context, sheet string) (bool, error) {
	w.note("has")
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.added[sheet], nil
}

func (w *stepWorkbook) AddSheet(_ context.Context, sheet string) error {
	w.note("add")
	w.mu.Lock()
	w.added[sheet] = true
	w.mu.Unlock()
	return nil
}

func (w *stepWorkbook) WriteHeader(ctx context.Context, sheet string, header []string) error {
	w.note("header")
	w.mu.Lock()
	w.header[sheet] = true
	w.mu.Unlock()
	return w.Memory.EnsureSheet(ctx, sheet, header)
}

func (w *stepWorkbook) Values(ctx context.Context, sheet string) ([][]string, error) {
	w.note("values")
	w.mu.Lock()
	ready := w.header[sheet]
	w.mu.Unlock()
	if !ready {
		return [][]string{}, nil
	}
	return w.Memory.Values(ctx, sheet)
}

func TestInitThrottlesEverySetupStep(t *testing.T) {
	ctx := context.Background()
	const interval = 30 * time.Millisecond
	wb := newStepWorkbook()
	s := NewStore(wb, Options{MinInterval: interval, Logger: zaptest.NewLogger(t)})

	require.NoError(t, s.Init(ctx))

	assert.Equal(t, []string{
		"has", "add", "values", "header",
		"has", "add", "values", "header",
	}, wb.ops)
	for i := 1; i < len(wb.at); i++ {
		assert.GreaterOrEqual(t, wb.at[i].Sub(wb.at[i-1]), interval-5*time.Millisecond, "call %d (%s)", i, wb.ops[i])
	}

	rows, err := s.values(ctx, models.CollectionRentals, true)
	require.NoError(t, err)
	assert.Equal(t, [][]string{RentalHeader}, rows)

	wb.ops = nil
	require.NoError(t, s.Init(ctx))
	assert.Equal(t, []string{"has", "values", "has", "values"}, wb.ops)
}

func TestMinIntervalDefaults(t *testing.T) {
	s := NewStore(tabular.NewMemory(), Options{})
	assert.Equal(t, rate.Inf, s.limiter.Limit())
	assert.Zero(t, s.retry.base)
	assert.Equal(t, DefaultTTL, s.cache.TTL())
	assert.Equal(t, DefaultMaxAttempts, s.retry.attempts)

	s = NewStore(tabular.NewMemory(), Options{MinInterval: DefaultMinInterval})
	assert.Equal(t, rate.Every(time.Second), s.limiter.Limit())
	assert.Equal(t, time.Second, s.retry.base)
}

func TestMissingWorkbook(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, Options{Logger: zaptest.NewLogger(t)})

	_, err := s.AddRental(ctx, exampleRental())
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	_, _, err = s.FetchMonth(ctx, 2025, 3)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	_, err = s.UpdateRentalStatus(ctx, 1, models.StatusPaid)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	assert.ErrorIs(t, s.Init(ctx), apperr.ErrStoreUnavailable)
}

func TestCoercedValuesAreLoggedAndCountAsZero(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	wb := tabular.NewMemory()
	s := newTestStore(t, wb, Options{Logger: zap.New(core)})

	_, err := s.AddRental(ctx, exampleRental())
	require.NoError(t, err)
	require.NoError(t, wb.AppendRow(ctx, "alugueis", []string{
		"2", "Terça-feira", "03/2025", "11:00", "um", "Time B", "noventa", "Pago", "",
	}))
	s.InvalidateAll()

	sum, err := s.Summarize(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Rentals.Count)
	assert.Equal(t, 0.0, sum.Rentals.TotalPaid)
	assert.Equal(t, 90.0, sum.Rentals.TotalDue)

	entries := logs.FilterMessageSnippet("unreadable numbers").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["id"])
}
