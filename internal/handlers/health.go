package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResp struct {
	OK     bool     `json:"ok"`
	Store  string   `json:"store"`
	Errors []string `json:"errors,omitempty"`
}

func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var errs []string

	if err := h.Ledger.Ping(ctx); err != nil {
		errs = append(errs, "store ping failed: "+err.Error())
	}
	if h.Mongo != nil {
		if err := h.Mongo.Ping(ctx); err != nil {
			errs = append(errs, "mongo ping failed: "+err.Error())
		}
	}
	if h.S3 != nil {
		if err := h.S3.Ping(ctx); err != nil {
			errs = append(errs, err.Error())
		}
	}

	resp := healthResp{OK: len(errs) == 0, Store: h.Ledger.StoreName(), Errors: errs}
	code := http.StatusOK
	if !resp.OK {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}
