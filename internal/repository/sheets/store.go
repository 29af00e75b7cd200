package sheets

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"quadra_financeiro/internal/apperr"
	"quadra_financeiro/internal/cache"
	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/ports"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Defaults used by config for remote workbooks.
const (
	DefaultTTL         = 5 * time.Minute
	DefaultMinInterval = time.Second
	DefaultMaxAttempts = 3
)

// Options tunes a Store. Zero values fall back to the defaults above,
// except MinInterval: NewStore does not apply DefaultMinInterval.
type Options struct {
	// Name is reported by Store.Name, e.g. "sheets" or "xlsx".
	Name string
	// TTL of cached reads. Negative disables the cache.
	TTL time.Duration
	// MinInterval spaces remote calls and is the retry backoff base.
	// Zero means no throttle and no backoff, as for the memory backend;
	// config passes DefaultMinInterval for remote backends.
	MinInterval time.Duration
	MaxAttempts int

	Now    func() time.Time
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *zap.Logger
}

// Store is the spreadsheet Access Layer. Reads go through a TTL cache,
// every remote call waits on a shared limiter and quota errors are retried.
// Allocation of ids and scan-then-mutate sequences hold mu so that requests
// served by one process never interleave them.
type Store struct {
	wb      ports.Workbook
	name    string
	cache   *cache.Cache
	limiter *rate.Limiter
	retry   retryPolicy
	now     func() time.Time
	log     *zap.Logger

	mu sync.Mutex
}

var _ ports.Store = (*Store)(nil)

func NewStore(wb ports.Workbook, opts Options) *Store {
	if opts.Name == "" {
		opts.Name = "sheets"
	}
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MinInterval < 0 {
		opts.MinInterval = 0
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	return &Store{
		wb:      wb,
		name:    opts.Name,
		cache:   cache.New(opts.TTL).WithClock(opts.Now),
		limiter: rate.NewLimiter(limit, 1),
		retry: retryPolicy{
			attempts: opts.MaxAttempts,
			base:     opts.MinInterval,
			sleep:    opts.Sleep,
			log:      opts.Logger,
		},
		now: opts.Now,
		log: opts.Logger,
	}
}

func (s *Store) Name() string { return s.name }

// Init creates both sheets with their headers when missing.
func (s *Store) Init(ctx context.Context) error {
	if s.wb == nil {
		return fmt.Errorf("init: %w", apperr.ErrStoreUnavailable)
	}
	for _, c := range models.Collections {
		if err := s.ensureSheet(ctx, c); err != nil {
			return fmt.Errorf("init %s: %w", c, err)
		}
	}
	s.log.Info("[SHEETS][INIT] worksheets ready", zap.String("store", s.name))
	return nil
}

// ensureSheet creates the worksheet and its header row. Remote workbooks
// that expose the individual steps get one throttled call per step.
func (s *Store) ensureSheet(ctx context.Context, c models.Collection) error {
	setup, ok := s.wb.(ports.SheetSetup)
	if !ok {
		return s.call(ctx, "ensure_sheet", func(ctx context.Context) error {
			return s.wb.EnsureSheet(ctx, string(c), headerFor(c))
		})
	}

	var exists bool
	err := s.call(ctx, "has_sheet", func(ctx context.Context) error {
		var err error
		exists, err = setup.HasSheet(ctx, string(c))
		return err
	})
	if err != nil {
		return err
	}
	if !exists {
		err := s.call(ctx, "add_sheet", func(ctx context.Context) error {
			return setup.AddSheet(ctx, string(c))
		})
		if err != nil {
			return err
		}
	}

	rows, err := s.values(ctx, c, false)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return nil
	}
	err = s.call(ctx, "write_header", func(ctx context.Context) error {
		return setup.WriteHeader(ctx, string(c), headerFor(c))
	})
	if err != nil {
		return err
	}
	s.invalidate(c)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.wb == nil {
		return fmt.Errorf("ping: %w", apperr.ErrStoreUnavailable)
	}
	_, err := s.values(ctx, models.CollectionRentals, false)
	return err
}

// NextID returns one past the largest id in the collection, or 1.
func (s *Store) NextID(ctx context.Context, coll models.Collection) (int64, error) {
	if s.wb == nil {
		return 0, fmt.Errorf("next id: %w", apperr.ErrStoreUnavailable)
	}
	key := "next_id|" + string(coll)
	if v, ok := s.cache.Get(key); ok {
		return v.(int64), nil
	}
	gen := s.cache.Gen()
	rows, err := s.values(ctx, coll, true)
	if err != nil {
		return 0, err
	}
	id := nextID(rows)
	s.cache.SetIfGen(key, id, gen)
	return id, nil
}

func (s *Store) AddRental(ctx context.Context, r models.Rental) (int64, error) {
	return s.add(ctx, models.CollectionRentals, func(id int64, at time.Time) []string {
		r.ID = id
		if r.CreatedAt.IsZero() {
			r.CreatedAt = at
		}
		return EncodeRental(r)
	})
}

func (s *Store) AddTransaction(ctx context.Context, t models.Transaction) (int64, error) {
	return s.add(ctx, models.CollectionTransactions, func(id int64, at time.Time) []string {
		t.ID = id
		if t.CreatedAt.IsZero() {
			t.CreatedAt = at
		}
		return EncodeTransaction(t)
	})
}

func (s *Store) add(ctx context.Context, coll models.Collection, encode func(id int64, at time.Time) []string) (int64, error) {
	if s.wb == nil {
		return 0, fmt.Errorf("add %s: %w", coll, apperr.ErrStoreUnavailable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.values(ctx, coll, false)
	if err != nil {
		return 0, fmt.Errorf("add %s: %w", coll, err)
	}
	id := nextID(rows)
	row := encode(id, s.now())

	err = s.call(ctx, "append_row", func(ctx context.Context) error {
		return s.wb.AppendRow(ctx, string(coll), row)
	})
	if err != nil {
		return 0, fmt.Errorf("add %s: %w", coll, err)
	}
	s.invalidate(coll)

	s.log.Info("[SHEETS][ADD] row appended",
		zap.String("collection", string(coll)),
		zap.Int64("id", id),
	)
	return id, nil
}

type monthRows struct {
	rentals []models.Rental
	txs     []models.Transaction
}

// FetchMonth returns the rentals billed under MM/YYYY and the transactions
// dated inside the calendar month.
func (s *Store) FetchMonth(ctx context.Context, year, month int) ([]models.Rental, []models.Transaction, error) {
	m, err := s.fetchMonth(ctx, year, month)
	if err != nil {
		return nil, nil, err
	}
	return slices.Clone(m.rentals), slices.Clone(m.txs), nil
}

func (s *Store) fetchMonth(ctx context.Context, year, month int) (monthRows, error) {
	if s.wb == nil {
		return monthRows{}, fmt.Errorf("fetch month: %w", apperr.ErrStoreUnavailable)
	}
	key := fmt.Sprintf("fetch_month|%s,%s|%s", models.CollectionRentals, models.CollectionTransactions, models.MonthKey(year, month))
	if v, ok := s.cache.Get(key); ok {
		return v.(monthRows), nil
	}
	gen := s.cache.Gen()

	rentals, err := s.rentals(ctx)
	if err != nil {
		return monthRows{}, fmt.Errorf("fetch month: %w", err)
	}
	txs, err := s.transactions(ctx)
	if err != nil {
		return monthRows{}, fmt.Errorf("fetch month: %w", err)
	}

	m := monthRows{
		rentals: make([]models.Rental, 0),
		txs:     make([]models.Transaction, 0),
	}
	ref := models.ReferenceMonth(year, month)
	for _, r := range rentals {
		if sameReferenceMonth(r.ReferenceMonth, ref, year, month) {
			m.rentals = append(m.rentals, r)
		}
	}
	prefix := models.MonthKey(year, month)
	for _, t := range txs {
		if strings.HasPrefix(t.Date, prefix) {
			m.txs = append(m.txs, t)
		}
	}
	models.SortRentals(m.rentals)
	models.SortTransactions(m.txs)

	s.cache.SetIfGen(key, m, gen)
	return m, nil
}

func (s *Store) Summarize(ctx context.Context, year, month int) (models.Summary, error) {
	key := fmt.Sprintf("summary|%s,%s|%s", models.CollectionRentals, models.CollectionTransactions, models.MonthKey(year, month))
	if v, ok := s.cache.Get(key); ok {
		return v.(models.Summary), nil
	}
	gen := s.cache.Gen()
	m, err := s.fetchMonth(ctx, year, month)
	if err != nil {
		return models.Summary{}, err
	}
	sum := models.Summarize(year, month, m.rentals, m.txs)
	s.cache.SetIfGen(key, sum, gen)
	return sum, nil
}

func (s *Store) UpdateRentalStatus(ctx context.Context, id int64, status models.RentalStatus) (bool, error) {
	if s.wb == nil {
		return false, fmt.Errorf("update status: %w", apperr.ErrStoreUnavailable)
	}
	coll := models.CollectionRentals

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.values(ctx, coll, false)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	rowNum, header := findRow(rows, id)
	if rowNum == 0 {
		return false, nil
	}
	col, ok := columnIndex(header)["status"]
	if !ok {
		col = slices.Index(RentalHeader, "status")
	}

	err = s.call(ctx, "update_cell", func(ctx context.Context) error {
		return s.wb.UpdateCell(ctx, string(coll), rowNum, col+1, string(status))
	})
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	s.invalidate(coll)

	s.log.Info("[SHEETS][UPDATE] rental status changed",
		zap.Int64("id", id),
		zap.String("status", string(status)),
	)
	return true, nil
}

// Delete removes the row with the given id. Unknown collections and
// missing ids report false.
func (s *Store) Delete(ctx context.Context, coll models.Collection, id int64) (bool, error) {
	if _, ok := models.ParseCollection(string(coll)); !ok {
		return false, nil
	}
	if s.wb == nil {
		return false, fmt.Errorf("delete: %w", apperr.ErrStoreUnavailable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.values(ctx, coll, false)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", coll, err)
	}
	rowNum, _ := findRow(rows, id)
	if rowNum == 0 {
		return false, nil
	}

	err = s.call(ctx, "delete_row", func(ctx context.Context) error {
		return s.wb.DeleteRow(ctx, string(coll), rowNum)
	})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", coll, err)
	}
	s.invalidate(coll)

	s.log.Info("[SHEETS][DELETE] row removed",
		zap.String("collection", string(coll)),
		zap.Int64("id", id),
	)
	return true, nil
}

// InvalidateAll drops every cached read.
func (s *Store) InvalidateAll() { s.cache.Clear() }

func (s *Store) invalidate(coll models.Collection) {
	n := s.cache.Invalidate(string(coll), "next_id", "summary")
	s.log.Debug("[SHEETS][CACHE] invalidated",
		zap.String("collection", string(coll)),
		zap.Int("keys", n),
	)
}

// call runs one remote operation behind the limiter, retrying on quota.
func (s *Store) call(ctx context.Context, op string, fn func(context.Context) error) error {
	return s.retry.do(ctx, op, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
}

// values reads a whole sheet. Mutations pass cached=false so that row
// positions come from the remote copy. The result is cached only if no
// write invalidated the cache while the read was in flight.
func (s *Store) values(ctx context.Context, coll models.Collection, cached bool) ([][]string, error) {
	key := "values|" + string(coll)
	if cached {
		if v, ok := s.cache.Get(key); ok {
			return v.([][]string), nil
		}
	}
	gen := s.cache.Gen()
	var rows [][]string
	err := s.call(ctx, "values", func(ctx context.Context) error {
		var err error
		rows, err = s.wb.Values(ctx, string(coll))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.SetIfGen(key, rows, gen)
	return rows, nil
}

func (s *Store) rentals(ctx context.Context) ([]models.Rental, error) {
	rows, err := s.values(ctx, models.CollectionRentals, true)
	if err != nil {
		return nil, err
	}
	var out []models.Rental
	eachRecord(rows, RentalHeader, func(n int, rec record) {
		r, coerced, err := DecodeRental(rec)
		if err != nil {
			s.log.Debug("[SHEETS][DECODE] skipping rental row", zap.Int("row", n), zap.Error(err))
			return
		}
		s.warnCoerced(models.CollectionRentals, r.ID, coerced)
		out = append(out, r)
	})
	return out, nil
}

func (s *Store) transactions(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.values(ctx, models.CollectionTransactions, true)
	if err != nil {
		return nil, err
	}
	var out []models.Transaction
	eachRecord(rows, TransactionHeader, func(n int, rec record) {
		t, coerced, err := DecodeTransaction(rec)
		if err != nil {
			s.log.Debug("[SHEETS][DECODE] skipping transaction row", zap.Int("row", n), zap.Error(err))
			return
		}
		s.warnCoerced(models.CollectionTransactions, t.ID, coerced)
		out = append(out, t)
	})
	return out, nil
}

func (s *Store) warnCoerced(coll models.Collection, id int64, fields []string) {
	if len(fields) == 0 {
		return
	}
	s.log.Warn("[SHEETS][DECODE] unreadable numbers treated as zero",
		zap.String("collection", string(coll)),
		zap.Int64("id", id),
		zap.Strings("fields", fields),
	)
}

// eachRecord calls fn for every data row with its 1-based sheet row number.
func eachRecord(rows [][]string, fallback []string, fn func(n int, rec record)) {
	if len(rows) == 0 {
		return
	}
	idx := columnIndex(rows[0])
	if _, ok := idx["id"]; !ok {
		idx = columnIndex(fallback)
	}
	for i, row := range rows[1:] {
		fn(i+2, toRecord(idx, row))
	}
}

// findRow returns the 1-based row number holding id, or 0.
func findRow(rows [][]string, id int64) (int, []string) {
	if len(rows) == 0 {
		return 0, nil
	}
	header := rows[0]
	col, ok := columnIndex(header)["id"]
	if !ok {
		col = 0
	}
	for i, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if v, err := strconv.ParseInt(strings.TrimSpace(row[col]), 10, 64); err == nil && v == id {
			return i + 2, header
		}
	}
	return 0, header
}

func nextID(rows [][]string) int64 {
	if len(rows) == 0 {
		return 1
	}
	col, ok := columnIndex(rows[0])["id"]
	if !ok {
		col = 0
	}
	var top int64
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if v, err := strconv.ParseInt(strings.TrimSpace(row[col]), 10, 64); err == nil && v > top {
			top = v
		}
	}
	return top + 1
}

func sameReferenceMonth(got, want string, year, month int) bool {
	if got == want {
		return true
	}
	y, m, err := models.ParseReferenceMonth(got)
	return err == nil && y == year && m == month
}
