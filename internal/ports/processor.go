package ports

import (
	"context"
	"time"
)

type ctxKey string

const (
	CtxImportRecordID ctxKey = "import_record_id"
	CtxActor          ctxKey = "actor"
)

type Processor interface {
	Type() string
	ProcessBatch(ctx context.Context, batch []map[string]string) error
}

type ImportItem struct {
	ImportRecordID string
	ModelType      string
	ModelID        string
	Payload        map[string]string
	Status         string
	Errors         string
	CreatedAt      time.Time
}

// ImportLog records per-row outcomes of an import run.
type ImportLog interface {
	LogItem(ctx context.Context, item ImportItem)
	MarkDone(ctx context.Context, importRecordID string, count int) error
	MarkFailed(ctx context.Context, importRecordID string, cause error) error
}

type NopImportLog struct{}

func (NopImportLog) LogItem(context.Context, ImportItem)             {}
func (NopImportLog) MarkDone(context.Context, string, int) error     { return nil }
func (NopImportLog) MarkFailed(context.Context, string, error) error { return nil }

func ImportRecordID(ctx context.Context) string {
	if v, ok := ctx.Value(CtxImportRecordID).(string); ok {
		return v
	}
	return ""
}

func Actor(ctx context.Context) string {
	if v, ok := ctx.Value(CtxActor).(string); ok {
		return v
	}
	return ""
}
