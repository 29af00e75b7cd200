package audit

import (
	"context"
	"fmt"
	"time"

	mg "quadra_financeiro/internal/config/connections/mongo"
	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const EventsCollection = "ledger_events"

// Mongo persists ledger events. Writes are bounded by their own timeout so a
// slow audit store never holds up the request that caused the event.
type Mongo struct {
	coll    *mongo.Collection
	log     *zap.Logger
	timeout time.Duration
}

var _ ports.Auditor = (*Mongo)(nil)

func New(m *mg.Mongo, log *zap.Logger) ports.Auditor {
	if !m.Ready() {
		return ports.NopAuditor{}
	}
	return NewWithDB(m.Database, log)
}

func NewWithDB(db *mongo.Database, log *zap.Logger) *Mongo {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mongo{coll: db.Collection(EventsCollection), log: log, timeout: 3 * time.Second}
}

func (a *Mongo) Record(ctx context.Context, ev models.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	if _, err := a.coll.InsertOne(ctx, ev); err != nil {
		a.log.Error("[AUDIT][MONGO][ERR] event not stored",
			zap.String("action", ev.Action),
			zap.String("collection", string(ev.Collection)),
			zap.Int64("record_id", ev.RecordID),
			zap.Error(err),
		)
	}
}

// List returns the newest events first, optionally for one collection.
func (a *Mongo) List(ctx context.Context, coll models.Collection, limit int64) ([]models.Event, error) {
	filter := bson.M{}
	if coll != "" {
		filter["collection"] = coll
	}
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := a.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]models.Event, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return out, nil
}
