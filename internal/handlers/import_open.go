package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"quadra_financeiro/internal/ports"
	"quadra_financeiro/internal/services/importer"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type importRequest struct {
	Type           string `json:"type"`
	FilePath       string `json:"file_path"`
	BatchSize      int    `json:"batch_size"`
	TimeoutMin     int    `json:"timeout_minutes,omitempty"`
	ImportRecordID string `json:"import_record_id"`
}

// Import starts a background import and answers 202 right away.
func (h *Handlers) Import(c *gin.Context) {
	if h.Importer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "importer not configured"})
		return
	}

	var req importRequest
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Logger.Warn("[IMPORT][REQ][ERR] bad JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad JSON: " + err.Error()})
		return
	}
	req.Type = strings.TrimSpace(req.Type)
	if strings.TrimSpace(req.FilePath) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_path is required"})
		return
	}
	if _, ok := h.Importer.Processors[req.Type]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be alugueis or transacoes"})
		return
	}
	if req.BatchSize <= 0 {
		req.BatchSize = h.BatchSize
	}

	timeout := h.ImportTimeout
	if req.TimeoutMin > 0 {
		timeout = time.Duration(req.TimeoutMin) * time.Minute
	}
	actor := ports.Actor(c.Request.Context())
	reqCopy := req

	h.running.Add(1)
	go func() {
		defer h.running.Done()
		start := time.Now()

		// detached from the request so the import outlives the response
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		res, err := h.Importer.Import(ctx, importer.Request{
			Type:           reqCopy.Type,
			FilePath:       reqCopy.FilePath,
			BatchSize:      reqCopy.BatchSize,
			ImportRecordID: reqCopy.ImportRecordID,
			Actor:          actor,
		})
		if err != nil {
			h.Logger.Error("[IMPORT][ERR][BG]",
				zap.String("type", reqCopy.Type),
				zap.String("path", reqCopy.FilePath),
				zap.Duration("took", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		h.Logger.Info("[IMPORT][OK][BG]",
			zap.String("type", reqCopy.Type),
			zap.String("source", res.Source),
			zap.String("format", res.Format),
			zap.Int("rows", res.RowsProcessed),
			zap.String("bucket", res.Bucket),
			zap.String("key", res.Key),
			zap.Int64("size", res.SizeBytes),
			zap.Duration("took", time.Since(start)),
		)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"status":           "started",
		"type":             req.Type,
		"file_path":        req.FilePath,
		"batch_size":       req.BatchSize,
		"import_record_id": req.ImportRecordID,
	})
}
