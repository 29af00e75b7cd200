package imports

import (
	"context"
	"encoding/json"
	"time"

	"quadra_financeiro/internal/ports"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const ImportRecordItemsCollection = "import_record_items"

const (
	ItemDone   = "done"
	ItemFailed = "failed"
)

type Item struct {
	ID             string    `bson:"_id" json:"id"`
	ImportRecordID string    `bson:"import_record_id" json:"import_record_id"`
	ModelType      string    `bson:"model_type" json:"model_type"`
	ModelID        string    `bson:"model_id" json:"model_id"`
	Payload        string    `bson:"payload" json:"payload"`
	Status         string    `bson:"status" json:"status"`
	Errors         string    `bson:"errors" json:"errors"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

var _ ports.ImportLog = (*Repo)(nil)

func (r *Repo) InsertItem(ctx context.Context, item Item) (*mongo.InsertOneResult, error) {
	if !r.Enabled() {
		return nil, mongo.ErrClientDisconnected
	}

	now := r.now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	doc := bson.D{
		{Key: "_id", Value: item.ID},
		{Key: "import_record_id", Value: item.ImportRecordID},
		{Key: "model_type", Value: item.ModelType},
		{Key: "model_id", Value: item.ModelID},
		{Key: "payload", Value: item.Payload},
		{Key: "status", Value: item.Status},
		{Key: "errors", Value: item.Errors},
		{Key: "created_at", Value: item.CreatedAt},
		{Key: "updated_at", Value: item.UpdatedAt},
	}

	return r.db.Collection(ImportRecordItemsCollection).InsertOne(ctx, doc, options.InsertOne())
}

// LogItem never fails the import; a write error is only logged.
func (r *Repo) LogItem(ctx context.Context, it ports.ImportItem) {
	if !r.Enabled() {
		return
	}

	b, _ := json.Marshal(it.Payload)

	if _, err := r.InsertItem(ctx, Item{
		ImportRecordID: it.ImportRecordID,
		ModelType:      it.ModelType,
		ModelID:        it.ModelID,
		Payload:        string(b),
		Status:         it.Status,
		Errors:         it.Errors,
		CreatedAt:      it.CreatedAt,
	}); err != nil {
		r.log.Error("[IMPORTS][MONGO][ERR] item not logged",
			zap.String("model_type", it.ModelType),
			zap.String("model_id", it.ModelID),
			zap.String("status", it.Status),
			zap.Error(err),
		)
	}
}
