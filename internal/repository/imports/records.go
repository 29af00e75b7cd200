package imports

import (
	"context"
	"fmt"
	"time"

	mg "quadra_financeiro/internal/config/connections/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const ImportRecordsCollection = "import_records"

const (
	StatusParsed  = "parsed"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Record is one uploaded file waiting for, or done with, an import run.
type Record struct {
	ID        any        `bson:"_id,omitempty" json:"id"`
	Actor     string     `bson:"actor,omitempty" json:"actor,omitempty"`
	Count     int        `bson:"count" json:"count"`
	Status    string     `bson:"status" json:"status"`
	Errors    string     `bson:"errors,omitempty" json:"errors,omitempty"`
	Type      string     `bson:"type" json:"type"`
	Path      string     `bson:"path,omitempty" json:"path,omitempty"`
	Bucket    string     `bson:"bucket,omitempty" json:"bucket,omitempty"`
	Key       string     `bson:"key,omitempty" json:"key,omitempty"`
	SizeBytes int64      `bson:"size_bytes,omitempty" json:"size_bytes,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// Repo stores import records and their per-row items. A Repo built without
// a database accepts writes and drops them.
type Repo struct {
	db  *mongo.Database
	log *zap.Logger
	now func() time.Time
}

func NewRepo(m *mg.Mongo, log *zap.Logger) *Repo {
	r := &Repo{log: log, now: time.Now}
	if m.Ready() {
		r.db = m.Database
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

// NewRepoWithDB is used by tests that hand in a mocked database.
func NewRepoWithDB(db *mongo.Database, log *zap.Logger) *Repo {
	return &Repo{db: db, log: log, now: time.Now}
}

func (r *Repo) Enabled() bool { return r != nil && r.db != nil }

func (r *Repo) CreateRecord(ctx context.Context, rec Record) (string, error) {
	if !r.Enabled() {
		return "", mongo.ErrClientDisconnected
	}

	now := r.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = StatusParsed
	}
	if rec.ID == nil {
		rec.ID = primitive.NewObjectID()
	}

	res, err := r.db.Collection(ImportRecordsCollection).InsertOne(ctx, rec, options.InsertOne())
	if err != nil {
		return "", fmt.Errorf("insert import record: %w", err)
	}
	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	default:
		return fmt.Sprint(id), nil
	}
}

func (r *Repo) FindRecord(ctx context.Context, id string) (Record, error) {
	var out Record
	if !r.Enabled() {
		return out, mongo.ErrClientDisconnected
	}
	coll := r.db.Collection(ImportRecordsCollection)

	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&out); err == nil {
			out.ID = oid.Hex()
			return out, nil
		}
	}

	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		return out, fmt.Errorf("import record %s not found: %w", id, err)
	}
	out.ID = id
	return out, nil
}

func (r *Repo) ListRecords(ctx context.Context, filter bson.M, limit, skip int64) ([]Record, int64, error) {
	if !r.Enabled() {
		return nil, 0, mongo.ErrClientDisconnected
	}
	coll := r.db.Collection(ImportRecordsCollection)
	if filter == nil {
		filter = bson.M{}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if skip > 0 {
		opts.SetSkip(skip)
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	recs := make([]Record, 0)
	for cur.Next(ctx) {
		var rec Record
		if err := cur.Decode(&rec); err != nil {
			r.log.Warn("[IMPORTS][LIST] undecodable record", zap.Error(err))
			continue
		}
		if oid, ok := rec.ID.(primitive.ObjectID); ok {
			rec.ID = oid.Hex()
		}
		recs = append(recs, rec)
	}
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		total = int64(len(recs))
	}
	return recs, total, nil
}

// SetStatus looks the record up by ObjectId first, then by string id.
func (r *Repo) SetStatus(ctx context.Context, id, status string, extra bson.M) error {
	if !r.Enabled() {
		return mongo.ErrClientDisconnected
	}
	if id == "" {
		return fmt.Errorf("empty import record id")
	}
	if status == "" {
		return fmt.Errorf("empty status")
	}

	set := bson.M{"status": status, "updated_at": r.now().UTC()}
	for k, v := range extra {
		set[k] = v
	}
	update := bson.M{"$set": set}
	coll := r.db.Collection(ImportRecordsCollection)

	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		res, err := coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
		if err != nil {
			return err
		}
		if res.MatchedCount > 0 {
			return nil
		}
	}

	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("no import_record found with id %s (tried ObjectId and string)", id)
	}
	return nil
}

// MarkDone records the final row count of a finished import.
func (r *Repo) MarkDone(ctx context.Context, id string, count int) error {
	return r.SetStatus(ctx, id, StatusDone, bson.M{"count": count})
}

func (r *Repo) MarkFailed(ctx context.Context, id string, cause error) error {
	return r.SetStatus(ctx, id, StatusFailed, bson.M{"errors": cause.Error()})
}
