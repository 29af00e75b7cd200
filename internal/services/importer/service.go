package importer

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/ports"
	"quadra_financeiro/internal/utils"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// MaxFileBytes bounds how much of an import file is read into memory.
const MaxFileBytes = 64 << 20

type Request struct {
	Type           string
	FilePath       string
	BatchSize      int
	ImportRecordID string
	Actor          string
}

type Result struct {
	Source        string
	FilePath      string
	Format        string
	Sheet         string
	RowsProcessed int
	SHA256        string
	ContentType   string
	Bucket        string
	Key           string
	SizeBytes     int64
	ETag          string
}

type Service struct {
	Opener     ports.FileOpener
	Processors map[string]ports.Processor
	Records    ports.ImportLog
	DefaultBS  int
	Logger     *zap.Logger
}

func NewService(opener ports.FileOpener, registry map[string]ports.Processor, records ports.ImportLog, defaultBatch int, log *zap.Logger) *Service {
	if defaultBatch <= 0 {
		defaultBatch = 1000
	}
	if records == nil {
		records = ports.NopImportLog{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Opener: opener, Processors: registry, Records: records, DefaultBS: defaultBatch, Logger: log}
}

// Import reads the file and feeds it to the processor registered for the
// request type. The import record, when given, is marked done or failed.
func (s *Service) Import(ctx context.Context, req Request) (Result, error) {
	res, err := s.run(ctx, req)
	if req.ImportRecordID == "" {
		return res, err
	}
	if err != nil {
		if mErr := s.Records.MarkFailed(ctx, req.ImportRecordID, err); mErr != nil {
			s.Logger.Warn("[IMP][RECORD][ERR] mark failed", zap.String("import_record_id", req.ImportRecordID), zap.Error(mErr))
		}
		return res, err
	}
	if mErr := s.Records.MarkDone(ctx, req.ImportRecordID, res.RowsProcessed); mErr != nil {
		s.Logger.Warn("[IMP][RECORD][ERR] mark done", zap.String("import_record_id", req.ImportRecordID), zap.Error(mErr))
	}
	return res, nil
}

func (s *Service) run(ctx context.Context, req Request) (Result, error) {
	t0 := time.Now()
	ctx = context.WithValue(ctx, ports.CtxImportRecordID, req.ImportRecordID)
	if req.Actor != "" {
		ctx = context.WithValue(ctx, ports.CtxActor, req.Actor)
	}
	log := s.Logger.With(
		zap.String("type", req.Type),
		zap.String("path", req.FilePath),
		zap.String("import_record_id", req.ImportRecordID),
	)
	log.Info("[IMP][START]", zap.Int("batch_size", req.BatchSize))

	proc, ok := s.Processors[req.Type]
	if !ok {
		log.Error("[IMP][ERR] no processor for type")
		return Result{}, errors.New("no processor for type: " + req.Type)
	}

	rc, meta, err := s.Opener.Open(ctx, ports.ImportFile{
		Collection: models.Collection(req.Type),
		Path:       req.FilePath,
	})
	if err != nil {
		log.Error("[IMP][ERR] open", zap.Error(err))
		return Result{}, err
	}
	defer rc.Close()

	hasher := sha256.New()
	data, err := io.ReadAll(io.LimitReader(io.TeeReader(rc, hasher), MaxFileBytes+1))
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", req.FilePath, err)
	}
	if len(data) > MaxFileBytes {
		return Result{}, fmt.Errorf("file larger than %d bytes", MaxFileBytes)
	}

	format := detectFormat(req.FilePath, meta.ContentType)
	log.Info("[IMP] source opened",
		zap.String("source", meta.Origin),
		zap.String("url", meta.URL),
		zap.String("etag", meta.ETag),
		zap.String("content_type", meta.ContentType),
		zap.Int("bytes", len(data)),
		zap.String("detected_format", format),
	)

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.DefaultBS
	}

	xlsx := func() (int, string, error) { return s.streamXLSX(ctx, data, req.Type, proc, batchSize) }
	csvr := func() (int, string, error) {
		n, err := s.streamCSV(ctx, data, proc, batchSize)
		return n, "", err
	}

	order := []struct {
		name string
		fn   func() (int, string, error)
	}{{"xlsx", xlsx}, {"csv", csvr}}
	if format == "csv" {
		order[0], order[1] = order[1], order[0]
	}

	var (
		total int
		sheet string
	)
	err = nil
	for i, step := range order {
		total, sheet, err = step.fn()
		if err == nil {
			format = step.name
			break
		}
		// a processor error means the file was readable; do not retry it as another format
		if total > 0 || i == len(order)-1 || errors.Is(err, errProcessor) {
			break
		}
		log.Warn("[IMP] reader failed, trying next format", zap.String("format", step.name), zap.Error(err))
	}
	if err != nil {
		log.Error("[IMP][ERR] read pipeline", zap.Error(err))
		return Result{}, err
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	log.Info("[IMP][DONE]",
		zap.String("format", format),
		zap.Int("rows", total),
		zap.String("sha256", sum),
		zap.Duration("duration", time.Since(t0)),
	)

	return Result{
		Source:        meta.Origin,
		FilePath:      req.FilePath,
		Format:        format,
		Sheet:         sheet,
		RowsProcessed: total,
		SHA256:        sum,
		ContentType:   meta.ContentType,
		Bucket:        meta.Bucket,
		Key:           meta.Key,
		SizeBytes:     meta.Size,
		ETag:          meta.ETag,
	}, nil
}

var errProcessor = errors.New("processor failed")

func (s *Service) flush(ctx context.Context, proc ports.Processor, batch []map[string]string) error {
	if err := proc.ProcessBatch(ctx, batch); err != nil {
		return fmt.Errorf("%w: %w", errProcessor, err)
	}
	return nil
}

func (s *Service) streamCSV(ctx context.Context, data []byte, proc ports.Processor, batchSize int) (int, error) {
	start := time.Now()
	reader := csv.NewReader(bufio.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))))
	reader.FieldsPerRecord = -1
	reader.Comma = sniffDelimiter(data)

	header, err := reader.Read()
	if err != nil {
		return 0, err
	}
	s.Logger.Debug("[IMP][CSV] header", zap.Strings("header", header))

	batch := make([]map[string]string, 0, batchSize)
	total, batches := 0, 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.Logger.Warn("[IMP][CSV][WARN] read row", zap.Error(err))
			continue
		}
		if blank(record) {
			continue
		}
		batch = append(batch, toMap(header, record))

		if len(batch) >= batchSize {
			if e := s.flush(ctx, proc, batch); e != nil {
				return total, e
			}
			total += len(batch)
			batches++
			batch = make([]map[string]string, 0, batchSize)
		}
	}
	if len(batch) > 0 {
		if e := s.flush(ctx, proc, batch); e != nil {
			return total, e
		}
		total += len(batch)
		batches++
	}
	s.Logger.Info("[IMP][CSV][DONE]", zap.Int("rows", total), zap.Int("batches", batches), zap.Duration("duration", time.Since(start)))
	return total, nil
}

// streamXLSX reads the sheet named after the import type, or the first
// sheet when there is none.
func (s *Service) streamXLSX(ctx context.Context, data []byte, typ string, proc ports.Processor, batchSize int) (int, string, error) {
	start := time.Now()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	sheet := pickSheet(f.GetSheetList(), typ)
	if sheet == "" {
		return 0, "", errors.New("xlsx has no sheets")
	}
	s.Logger.Debug("[IMP][XLSX] sheet", zap.String("sheet", sheet))

	rows, err := f.Rows(sheet)
	if err != nil {
		return 0, sheet, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, sheet, rows.Error()
	}
	header, err := rows.Columns()
	if err != nil {
		return 0, sheet, err
	}

	batch := make([]map[string]string, 0, batchSize)
	total, batches := 0, 0

	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			s.Logger.Warn("[IMP][XLSX][WARN] read row", zap.Error(err))
			continue
		}
		if blank(cols) {
			continue
		}
		batch = append(batch, toMap(header, cols))

		if len(batch) >= batchSize {
			if e := s.flush(ctx, proc, batch); e != nil {
				return total, sheet, e
			}
			total += len(batch)
			batches++
			batch = make([]map[string]string, 0, batchSize)
		}
	}
	if err := rows.Error(); err != nil {
		return total, sheet, err
	}
	if len(batch) > 0 {
		if e := s.flush(ctx, proc, batch); e != nil {
			return total, sheet, e
		}
		total += len(batch)
		batches++
	}
	s.Logger.Info("[IMP][XLSX][DONE]", zap.String("sheet", sheet), zap.Int("rows", total), zap.Int("batches", batches), zap.Duration("duration", time.Since(start)))
	return total, sheet, nil
}

// ---------- helpers ----------

func pickSheet(sheets []string, typ string) string {
	if len(sheets) == 0 {
		return ""
	}
	want := utils.FoldKey(typ)
	for _, sh := range sheets {
		if utils.FoldKey(sh) == want {
			return sh
		}
	}
	return sheets[0]
}

// toMap keys each cell by its header, lowercased with spaces as underscores.
func toMap(header []string, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, key := range header {
		key = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
		if key == "" {
			continue
		}
		val := ""
		if i < len(row) {
			val = row[i]
		}
		m[key] = strings.TrimSpace(val)
	}
	return m
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// sniffDelimiter picks ';' for files exported by spreadsheets in locales
// that use the comma as decimal separator.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func detectFormat(filePath, contentType string) string {
	p := filePath
	if u, err := url.Parse(filePath); err == nil && u != nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	switch ext {
	case "xlsx":
		return "xlsx"
	case "csv":
		return "csv"
	}
	med, _, _ := mime.ParseMediaType(contentType)
	switch med {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "xlsx"
	case "text/csv", "application/csv", "text/plain":
		return "csv"
	}
	return ""
}
