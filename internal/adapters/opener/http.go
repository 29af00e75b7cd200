package opener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"quadra_financeiro/internal/ports"

	"go.uber.org/zap"
)

type HTTPOpener struct {
	Client *http.Client
	Log    *zap.Logger
}

func NewHTTPOpener(cli *http.Client, log *zap.Logger) *HTTPOpener {
	if cli == nil {
		cli = &http.Client{Timeout: 2 * time.Minute}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPOpener{Client: cli, Log: log}
}

// Open downloads url. HTML answers are refused: a sheet that is not
// shared publicly redirects to a sign-in page instead of the export.
func (h *HTTPOpener) Open(ctx context.Context, url string) (io.ReadCloser, ports.FileInfo, error) {
	h.Log.Info("[OPENER][HTTP][START]", zap.String("url", url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		h.Log.Error("[OPENER][HTTP][ERR] build request", zap.Error(err))
		return nil, ports.FileInfo{}, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		h.Log.Error("[OPENER][HTTP][ERR] do request", zap.Error(err))
		return nil, ports.FileInfo{}, err
	}
	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.Log.Error("[OPENER][HTTP][ERR] bad status",
			zap.Int("status", resp.StatusCode),
			zap.String("content_type", ct),
			zap.Int64("content_length", resp.ContentLength),
		)
		resp.Body.Close()
		return nil, ports.FileInfo{}, fmt.Errorf("http status %d", resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(ct); mt == "text/html" {
		h.Log.Error("[OPENER][HTTP][ERR] html instead of a spreadsheet", zap.String("url", url))
		resp.Body.Close()
		return nil, ports.FileInfo{}, errors.New("got an html page, not a spreadsheet export; is the sheet shared?")
	}
	size := resp.ContentLength
	if size < 0 {
		size = -1
	}
	h.Log.Info("[OPENER][HTTP][OK]", zap.String("content_type", ct), zap.Int64("size", size))
	return resp.Body, ports.FileInfo{
		Origin:      req.URL.Scheme,
		URL:         url,
		ContentType: ct,
		Size:        size,
		ETag:        resp.Header.Get("ETag"),
	}, nil
}
