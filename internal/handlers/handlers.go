package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"quadra_financeiro/internal/apperr"
	"quadra_financeiro/internal/config/connections/mongo"
	"quadra_financeiro/internal/config/connections/s3"
	"quadra_financeiro/internal/repository/imports"
	"quadra_financeiro/internal/services/importer"
	"quadra_financeiro/internal/services/ledger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RetryAfter is sent with 503 responses caused by backend quota errors.
const RetryAfter = 30 * time.Second

type Deps struct {
	Ledger   *ledger.Service
	Importer *importer.Service
	Records  *imports.Repo
	Mongo    *mongo.Mongo
	S3       *s3.S3
	Logger   *zap.Logger

	ImportTimeout time.Duration
	BatchSize     int
}

type Handlers struct {
	Deps

	// background imports, waited for on shutdown
	running sync.WaitGroup
}

func New(d Deps) *Handlers {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.ImportTimeout <= 0 {
		d.ImportTimeout = 15 * time.Minute
	}
	if d.BatchSize <= 0 {
		d.BatchSize = 1000
	}
	return &Handlers{Deps: d}
}

// Wait blocks until every background import has finished.
func (h *Handlers) Wait() { h.running.Wait() }

// fail maps an error to its HTTP status: 400 for validation, 503 for
// quota and store outages, 500 for anything else.
func (h *Handlers) fail(c *gin.Context, err error) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
		return
	}

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.KindQuota:
		h.Logger.Warn("[HTTP] backend quota", zap.String("path", c.FullPath()), zap.Error(err))
		c.Header("Retry-After", strconv.Itoa(int(RetryAfter.Seconds())))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record store is busy, try again shortly", "retry": true})
	case apperr.KindUnavailable:
		h.Logger.Error("[HTTP] store unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record store unavailable"})
	default:
		h.Logger.Error("[HTTP] internal error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathInt(c *gin.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, apperr.Invalid(name, "must be a number")
	}
	return n, nil
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("id", "must be a positive integer")
	}
	return id, nil
}
