package ports

import (
	"context"

	"quadra_financeiro/internal/models"
)

// Store is a Record Store seen through the Access Layer. Update and delete
// report a missing target as false rather than an error.
type Store interface {
	Name() string
	AddRental(ctx context.Context, r models.Rental) (int64, error)
	AddTransaction(ctx context.Context, t models.Transaction) (int64, error)
	FetchMonth(ctx context.Context, year, month int) ([]models.Rental, []models.Transaction, error)
	Summarize(ctx context.Context, year, month int) (models.Summary, error)
	UpdateRentalStatus(ctx context.Context, id int64, status models.RentalStatus) (bool, error)
	Delete(ctx context.Context, coll models.Collection, id int64) (bool, error)
	Ping(ctx context.Context) error
}

// Workbook is the row-oriented API of a remote spreadsheet. Row and column
// numbers are 1-based and row 1 holds the header.
type Workbook interface {
	EnsureSheet(ctx context.Context, sheet string, header []string) error
	Values(ctx context.Context, sheet string) ([][]string, error)
	AppendRow(ctx context.Context, sheet string, row []string) error
	UpdateCell(ctx context.Context, sheet string, row, col int, value string) error
	DeleteRow(ctx context.Context, sheet string, row int) error
}

// SheetSetup is implemented by workbooks whose EnsureSheet needs several
// remote calls. The store runs each step as its own throttled call.
type SheetSetup interface {
	HasSheet(ctx context.Context, sheet string) (bool, error)
	AddSheet(ctx context.Context, sheet string) error
	WriteHeader(ctx context.Context, sheet string, header []string) error
}

type Auditor interface {
	Record(ctx context.Context, ev models.Event)
}

type NopAuditor struct{}

func (NopAuditor) Record(context.Context, models.Event) {}

// BulkRentalStore is implemented by stores that insert many rentals in one
// round trip. Results line up with the input slice.
type BulkRentalStore interface {
	AddRentals(ctx context.Context, rs []models.Rental) ([]int64, []error)
}
