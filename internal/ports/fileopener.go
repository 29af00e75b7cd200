package ports

import (
	"context"
	"io"

	"quadra_financeiro/internal/models"
)

// ImportFile names a spreadsheet export to load into one collection.
// Path is an http(s) URL, an s3://bucket/key URL or an object key.
type ImportFile struct {
	Collection models.Collection
	Path       string
}

// FileInfo describes where an import file was found.
type FileInfo struct {
	Collection  models.Collection
	Origin      string
	URL         string
	ContentType string
	Size        int64
	Bucket      string
	Key         string
	ETag        string
}

type FileOpener interface {
	Open(ctx context.Context, f ImportFile) (io.ReadCloser, FileInfo, error)
}
