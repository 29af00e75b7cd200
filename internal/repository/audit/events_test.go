package audit

import (
	"context"
	"testing"
	"time"

	mg "quadra_financeiro/internal/config/connections/mongo"
	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWithoutMongoIsNop(t *testing.T) {
	assert.IsType(t, ports.NopAuditor{}, New(nil, nil))
	assert.IsType(t, ports.NopAuditor{}, New(&mg.Mongo{}, nil))
}

func TestMongoAuditor(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("record", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		a := NewWithDB(mt.DB, zap.NewNop())

		a.Record(context.Background(), models.Event{
			Action:     models.ActionAddRental,
			Collection: models.CollectionRentals,
			RecordID:   3,
			Status:     models.EventStatusDone,
		})

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		assert.Equal(mt, "insert", ev.CommandName)
		assert.Equal(mt, EventsCollection, ev.Command.Lookup("insert").StringValue())
		doc := ev.Command.Lookup("documents").Array().Index(0).Value().Document()
		assert.Equal(mt, int64(3), doc.Lookup("record_id").Int64())
		assert.Equal(mt, "alugueis", doc.Lookup("collection").StringValue())
	})

	mt.Run("record failure is only logged", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key",
		}))
		core, logs := observer.New(zapcore.ErrorLevel)
		a := NewWithDB(mt.DB, zap.New(core))

		a.Record(context.Background(), models.Event{Action: models.ActionDelete})
		assert.Equal(mt, 1, logs.FilterMessageSnippet("event not stored").Len())
	})

	mt.Run("list", func(mt *mtest.T) {
		at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		ns := mt.DB.Name() + "." + EventsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{
				{Key: "action", Value: models.ActionDelete},
				{Key: "collection", Value: "transacoes"},
				{Key: "record_id", Value: int64(9)},
				{Key: "status", Value: models.EventStatusNotMatched},
				{Key: "at", Value: at},
			},
		))
		a := NewWithDB(mt.DB, zap.NewNop())

		evs, err := a.List(context.Background(), models.CollectionTransactions, 10)
		require.NoError(mt, err)
		require.Len(mt, evs, 1)
		assert.Equal(mt, int64(9), evs[0].RecordID)
		assert.Equal(mt, models.CollectionTransactions, evs[0].Collection)
		assert.True(mt, evs[0].At.Equal(at))
	})
}
