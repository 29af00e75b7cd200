package handlers

import (
	"fmt"
	"net/http"
	"time"

	"quadra_financeiro/internal/adapters/opener"
	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/ports"
	"quadra_financeiro/internal/repository/imports"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

// Upload accepts multipart/form-data with `file` and `type` fields, stores
// the file in S3 and creates an import record in Mongo.
func (h *Handlers) Upload(c *gin.Context) {
	if !h.S3.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads need S3"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	typ := c.PostForm("type")
	if typ == "" {
		typ = c.PostForm("action")
	}
	coll, ok := models.ParseCollection(typ)
	if ok && h.Importer != nil {
		_, ok = h.Importer.Processors[string(coll)]
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be alugueis or transacoes"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		h.Logger.Warn("[UPLOAD][ERR] missing file", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	key := opener.UploadKey(coll, fh.Filename, time.Now())
	info, err := h.S3.Client.PutObject(c.Request.Context(), h.S3.Bucket, key, f, fh.Size,
		minio.PutObjectOptions{ContentType: fh.Header.Get("Content-Type")})
	if err != nil {
		h.Logger.Error("[UPLOAD][ERR] s3 put", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store file"})
		return
	}

	s3path := fmt.Sprintf("s3://%s/%s", h.S3.Bucket, key)
	resp := gin.H{"path": s3path, "size": info.Size}

	if h.Records.Enabled() {
		id, err := h.Records.CreateRecord(c.Request.Context(), imports.Record{
			Actor:     ports.Actor(c.Request.Context()),
			Status:    imports.StatusParsed,
			Type:      string(coll),
			Path:      s3path,
			Bucket:    h.S3.Bucket,
			Key:       key,
			SizeBytes: info.Size,
		})
		if err != nil {
			h.Logger.Error("[UPLOAD][ERR] import record", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "file stored but import record failed", "path": s3path})
			return
		}
		resp["id"] = id
	}

	h.Logger.Info("[UPLOAD][OK]", zap.String("path", s3path), zap.Int64("size", info.Size))
	c.JSON(http.StatusCreated, resp)
}
