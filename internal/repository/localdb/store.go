package localdb

import (
	"context"
	"fmt"
	"time"

	"quadra_financeiro/internal/apperr"
	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/ports"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS alugueis (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dia_semana TEXT NOT NULL,
		mes_referencia TEXT NOT NULL,
		horario_inicio TEXT NOT NULL,
		horas_alugadas REAL NOT NULL,
		cliente_time TEXT NOT NULL,
		valor REAL NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('A Vencer', 'Pago', 'Em Atraso')),
		data_criacao TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS transacoes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		data_transacao TEXT NOT NULL,
		tipo TEXT NOT NULL CHECK(tipo IN ('Entrada', 'Saída')),
		descricao TEXT NOT NULL,
		valor REAL NOT NULL,
		observacao TEXT,
		data_criacao TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alugueis_mes ON alugueis (mes_referencia)`,
	`CREATE INDEX IF NOT EXISTS idx_transacoes_data ON transacoes (data_transacao)`,
}

type rentalRow struct {
	ID            int64   `gorm:"column:id;primaryKey;autoIncrement"`
	DiaSemana     string  `gorm:"column:dia_semana"`
	MesReferencia string  `gorm:"column:mes_referencia"`
	HorarioInicio string  `gorm:"column:horario_inicio"`
	HorasAlugadas float64 `gorm:"column:horas_alugadas"`
	ClienteTime   string  `gorm:"column:cliente_time"`
	Valor         float64 `gorm:"column:valor"`
	Status        string  `gorm:"column:status"`
	DataCriacao   string  `gorm:"column:data_criacao"`
}

func (rentalRow) TableName() string { return string(models.CollectionRentals) }

type transactionRow struct {
	ID            int64   `gorm:"column:id;primaryKey;autoIncrement"`
	DataTransacao string  `gorm:"column:data_transacao"`
	Tipo          string  `gorm:"column:tipo"`
	Descricao     string  `gorm:"column:descricao"`
	Valor         float64 `gorm:"column:valor"`
	Observacao    *string `gorm:"column:observacao"`
	DataCriacao   string  `gorm:"column:data_criacao"`
}

func (transactionRow) TableName() string { return string(models.CollectionTransactions) }

// Store is the local relational Record Store kept in one SQLite file.
type Store struct {
	db  *gorm.DB
	now func() time.Time
	log *zap.Logger
}

var _ ports.Store = (*Store)(nil)

func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, now: time.Now, log: log}
}

func (s *Store) Name() string { return "sqlite" }

func (s *Store) ready(op string) error {
	if s.db == nil {
		return fmt.Errorf("%s: %w", op, apperr.ErrStoreUnavailable)
	}
	return nil
}

func (s *Store) Init(ctx context.Context) error {
	if err := s.ready("init"); err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.ready("ping"); err != nil {
		return err
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) AddRental(ctx context.Context, r models.Rental) (int64, error) {
	if err := s.ready("add rental"); err != nil {
		return 0, err
	}
	row := rentalRow{
		DiaSemana:     r.Weekday,
		MesReferencia: r.ReferenceMonth,
		HorarioInicio: r.StartTime,
		HorasAlugadas: r.Hours,
		ClienteTime:   r.Client,
		Valor:         r.Amount,
		Status:        string(r.Status),
		DataCriacao:   s.stamp(r.CreatedAt),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return 0, fmt.Errorf("insert alugueis: %w", err)
	}
	s.log.Info("[SQLITE][ADD] rental inserted", zap.Int64("id", row.ID))
	return row.ID, nil
}

func (s *Store) AddTransaction(ctx context.Context, t models.Transaction) (int64, error) {
	if err := s.ready("add transaction"); err != nil {
		return 0, err
	}
	row := transactionRow{
		DataTransacao: t.Date,
		Tipo:          string(t.Type),
		Descricao:     t.Description,
		Valor:         t.Amount,
		DataCriacao:   s.stamp(t.CreatedAt),
	}
	if t.Note != "" {
		note := t.Note
		row.Observacao = &note
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return 0, fmt.Errorf("insert transacoes: %w", err)
	}
	s.log.Info("[SQLITE][ADD] transaction inserted", zap.Int64("id", row.ID))
	return row.ID, nil
}

func (s *Store) FetchMonth(ctx context.Context, year, month int) ([]models.Rental, []models.Transaction, error) {
	if err := s.ready("fetch month"); err != nil {
		return nil, nil, err
	}

	var rrows []rentalRow
	err := s.db.WithContext(ctx).
		Where("mes_referencia = ?", models.ReferenceMonth(year, month)).
		Order("id").
		Find(&rrows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("select alugueis: %w", err)
	}

	var trows []transactionRow
	err = s.db.WithContext(ctx).
		Where("substr(data_transacao, 1, 7) = ?", models.MonthKey(year, month)).
		Order("data_transacao, id").
		Find(&trows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("select transacoes: %w", err)
	}

	rentals := make([]models.Rental, 0, len(rrows))
	for _, r := range rrows {
		rentals = append(rentals, models.Rental{
			ID:             r.ID,
			Weekday:        r.DiaSemana,
			ReferenceMonth: r.MesReferencia,
			StartTime:      r.HorarioInicio,
			Hours:          r.HorasAlugadas,
			Client:         r.ClienteTime,
			Amount:         r.Valor,
			Status:         models.RentalStatus(r.Status),
			CreatedAt:      parseStamp(r.DataCriacao),
		})
	}
	// weekday order is not alphabetical, so it is applied here
	models.SortRentals(rentals)

	txs := make([]models.Transaction, 0, len(trows))
	for _, t := range trows {
		tx := models.Transaction{
			ID:          t.ID,
			Date:        t.DataTransacao,
			Type:        models.TransactionType(t.Tipo),
			Description: t.Descricao,
			Amount:      t.Valor,
			CreatedAt:   parseStamp(t.DataCriacao),
		}
		if t.Observacao != nil {
			tx.Note = *t.Observacao
		}
		txs = append(txs, tx)
	}
	return rentals, txs, nil
}

// Summarize sums the fetched rows with decimals instead of SQL SUM over
// REAL columns, which drifts on values like 0.1.
func (s *Store) Summarize(ctx context.Context, year, month int) (models.Summary, error) {
	rentals, txs, err := s.FetchMonth(ctx, year, month)
	if err != nil {
		return models.Summary{}, err
	}
	return models.Summarize(year, month, rentals, txs), nil
}

func (s *Store) UpdateRentalStatus(ctx context.Context, id int64, status models.RentalStatus) (bool, error) {
	if err := s.ready("update status"); err != nil {
		return false, err
	}
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&rentalRow{}).Where("id = ?", id).Update("status", string(status))
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("update alugueis: %w", err)
	}
	return affected > 0, nil
}

func (s *Store) Delete(ctx context.Context, coll models.Collection, id int64) (bool, error) {
	var model any
	switch coll {
	case models.CollectionRentals:
		model = &rentalRow{}
	case models.CollectionTransactions:
		model = &transactionRow{}
	default:
		return false, nil
	}
	if err := s.ready("delete"); err != nil {
		return false, err
	}

	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(model)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", coll, err)
	}
	return affected > 0, nil
}

func (s *Store) stamp(t time.Time) string {
	if t.IsZero() {
		t = s.now()
	}
	return t.UTC().Format(time.RFC3339)
}

// parseStamp reads both RFC 3339 and sqlite's CURRENT_TIMESTAMP format.
func parseStamp(v string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
