package processors

import (
	"context"
	"errors"
	"strings"
	"time"

	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/ports"

	"go.uber.org/zap"
)

// Ledger is the part of the ledger service the processors write through.
type Ledger interface {
	AddRentals(ctx context.Context, rs []models.Rental) ([]int64, []error)
	AddTransaction(ctx context.Context, t models.Transaction) (int64, error)
}

type BaseProcessor struct {
	Ledger Ledger
	Items  ports.ImportLog
	Log    *zap.Logger
	Now    func() time.Time
}

func NewBaseProcessor(l Ledger, items ports.ImportLog, log *zap.Logger) *BaseProcessor {
	if items == nil {
		items = ports.NopImportLog{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BaseProcessor{Ledger: l, Items: items, Log: log, Now: time.Now}
}

type DepProvider interface {
	GetLedger() Ledger
}

func (b *BaseProcessor) GetLedger() Ledger { return b.Ledger }

func CheckDeps[T DepProvider](p T) error {
	if p.GetLedger() == nil {
		return errors.New("ledger not available")
	}
	return nil
}

func (b *BaseProcessor) logItem(ctx context.Context, modelType, modelID string, row map[string]string, err error, warnings []string) {
	it := ports.ImportItem{
		ImportRecordID: strings.TrimSpace(ports.ImportRecordID(ctx)),
		ModelType:      modelType,
		ModelID:        modelID,
		Payload:        row,
		Status:         "done",
		Errors:         strings.Join(warnings, "; "),
		CreatedAt:      b.Now().UTC(),
	}
	if err != nil {
		it.Status = "failed"
		it.Errors = err.Error()
	}
	b.Items.LogItem(ctx, it)
}
