package tabular

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"quadra_financeiro/internal/apperr"

	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var ErrBlobNotFound = errors.New("blob not found")

// Blob is the byte storage an XLSX workbook lives in.
type Blob interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, data []byte) error
}

type S3Client interface {
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Blob stores the workbook as a single object.
type S3Blob struct {
	Client S3Client
	Bucket string
	Key    string
}

func (b S3Blob) Get(ctx context.Context) ([]byte, error) {
	obj, err := b.Client.GetObject(ctx, b.Bucket, b.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ClassifyS3("xlsx.get_object", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrBlobNotFound
		}
		return nil, ClassifyS3("xlsx.get_object", err)
	}
	return data, nil
}

func (b S3Blob) Put(ctx context.Context, data []byte) error {
	_, err := b.Client.PutObject(ctx, b.Bucket, b.Key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: xlsxContentType})
	return ClassifyS3("xlsx.put_object", err)
}

// XLSX is a Workbook kept in one .xlsx file. Every write is a full
// read-modify-write of the file, serialized by mu.
type XLSX struct {
	blob Blob
	mu   sync.Mutex
}

func NewXLSX(blob Blob) *XLSX {
	return &XLSX{blob: blob}
}

func (x *XLSX) EnsureSheet(ctx context.Context, sheet string, header []string) error {
	return x.update(ctx, "xlsx.ensure_sheet", func(f *excelize.File) (bool, error) {
		idx, err := f.GetSheetIndex(sheet)
		if err != nil {
			return false, err
		}
		changed := false
		if idx == -1 {
			if _, err := f.NewSheet(sheet); err != nil {
				return false, err
			}
			changed = true
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return false, err
		}
		if len(rows) == 0 {
			hdr := toCells(header)
			if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
				return false, err
			}
			changed = true
		}
		if sheet != "Sheet1" {
			if i, _ := f.GetSheetIndex("Sheet1"); i != -1 {
				if rows, _ := f.GetRows("Sheet1"); len(rows) == 0 {
					if err := f.DeleteSheet("Sheet1"); err != nil {
						return false, err
					}
					changed = true
				}
			}
		}
		return changed, nil
	})
}

func (x *XLSX) Values(ctx context.Context, sheet string) ([][]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.open(ctx)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperr.Backend("xlsx.values", err)
	}
	return rows, nil
}

func (x *XLSX) AppendRow(ctx context.Context, sheet string, row []string) error {
	return x.update(ctx, "xlsx.append_row", func(f *excelize.File) (bool, error) {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return false, err
		}
		cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
		if err != nil {
			return false, err
		}
		cells := toCells(row)
		return true, f.SetSheetRow(sheet, cell, &cells)
	})
}

func (x *XLSX) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	return x.update(ctx, "xlsx.update_cell", func(f *excelize.File) (bool, error) {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return false, err
		}
		return true, f.SetCellStr(sheet, cell, value)
	})
}

func (x *XLSX) DeleteRow(ctx context.Context, sheet string, row int) error {
	return x.update(ctx, "xlsx.delete_row", func(f *excelize.File) (bool, error) {
		return true, f.RemoveRow(sheet, row)
	})
}

func (x *XLSX) open(ctx context.Context) (*excelize.File, error) {
	data, err := x.blob.Get(ctx)
	if errors.Is(err, ErrBlobNotFound) {
		return excelize.NewFile(), nil
	}
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Backend("xlsx.open", err)
	}
	return f, nil
}

func (x *XLSX) update(ctx context.Context, op string, fn func(f *excelize.File) (bool, error)) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.open(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	changed, err := fn(f)
	if err != nil {
		return apperr.Backend(op, err)
	}
	if !changed {
		return nil
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return apperr.Backend(op, fmt.Errorf("encode workbook: %w", err))
	}
	return x.blob.Put(ctx, buf.Bytes())
}
