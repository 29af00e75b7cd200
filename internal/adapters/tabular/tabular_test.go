package tabular

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"quadra_financeiro/internal/apperr"
	"quadra_financeiro/internal/ports"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

var header = []string{"id", "descricao", "valor"}

type memBlob struct {
	mu   sync.Mutex
	data []byte
	puts int
}

func (b *memBlob) Get(context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, ErrBlobNotFound
	}
	return append([]byte(nil), b.data...), nil
}

func (b *memBlob) Put(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), data...)
	b.puts++
	return nil
}

// exerciseWorkbook runs the same row operations against any Workbook.
func exerciseWorkbook(t *testing.T, wb ports.Workbook) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, wb.EnsureSheet(ctx, "transacoes", header))
	require.NoError(t, wb.EnsureSheet(ctx, "transacoes", header))

	rows, err := wb.Values(ctx, "transacoes")
	require.NoError(t, err)
	assert.Equal(t, [][]string{header}, rows)

	require.NoError(t, wb.AppendRow(ctx, "transacoes", []string{"1", "Rede", "120.00"}))
	require.NoError(t, wb.AppendRow(ctx, "transacoes", []string{"2", "Bola", "80.00"}))
	require.NoError(t, wb.AppendRow(ctx, "transacoes", []string{"3", "Luz", "200.00"}))

	require.NoError(t, wb.UpdateCell(ctx, "transacoes", 3, 3, "85.00"))
	require.NoError(t, wb.DeleteRow(ctx, "transacoes", 2))

	rows, err = wb.Values(ctx, "transacoes")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		header,
		{"2", "Bola", "85.00"},
		{"3", "Luz", "200.00"},
	}, rows)
}

func TestMemoryWorkbook(t *testing.T) {
	exerciseWorkbook(t, NewMemory())
}

func TestMemoryWorkbookErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.Values(ctx, "nope")
	assert.Error(t, err)
	require.NoError(t, m.EnsureSheet(ctx, "a", header))
	assert.Error(t, m.DeleteRow(ctx, "a", 5))
	assert.Error(t, m.UpdateCell(ctx, "a", 0, 1, "x"))
}

func TestXLSXWorkbook(t *testing.T) {
	blob := &memBlob{}
	exerciseWorkbook(t, NewXLSX(blob))

	// a second handle over the same object sees the persisted rows
	rows, err := NewXLSX(blob).Values(context.Background(), "transacoes")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"3", "Luz", "200.00"}, rows[2])
}

func TestXLSXEnsureSheetSkipsUnchangedWrite(t *testing.T) {
	blob := &memBlob{}
	x := NewXLSX(blob)
	ctx := context.Background()

	require.NoError(t, x.EnsureSheet(ctx, "alugueis", header))
	puts := blob.puts
	require.NoError(t, x.EnsureSheet(ctx, "alugueis", header))
	assert.Equal(t, puts, blob.puts)
}

func TestClassifyGoogle(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"429", &googleapi.Error{Code: http.StatusTooManyRequests}, apperr.KindQuota},
		{"403 rate", &googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}}}, apperr.KindQuota},
		{"403 denied", &googleapi.Error{Code: http.StatusForbidden}, apperr.KindUnavailable},
		{"404", &googleapi.Error{Code: http.StatusNotFound}, apperr.KindUnavailable},
		{"500", &googleapi.Error{Code: http.StatusInternalServerError}, apperr.KindUnknown},
		{"wrapped", fmt.Errorf("x: %w", &googleapi.Error{Code: http.StatusTooManyRequests}), apperr.KindQuota},
		{"text mentioning quota is not enough", errors.New("quota 429"), apperr.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, apperr.KindOf(classifyGoogle("op", tc.err)))
		})
	}
	assert.NoError(t, classifyGoogle("op", nil))
}

func TestClassifyS3(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"slowdown", minio.ErrorResponse{Code: "SlowDown", StatusCode: http.StatusServiceUnavailable}, apperr.KindQuota},
		{"429", minio.ErrorResponse{StatusCode: http.StatusTooManyRequests}, apperr.KindQuota},
		{"no bucket", minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound}, apperr.KindUnavailable},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}, apperr.KindUnavailable},
		{"other", minio.ErrorResponse{Code: "InternalError", StatusCode: http.StatusInternalServerError}, apperr.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, apperr.KindOf(ClassifyS3("op", tc.err)))
		})
	}
}
