package tabular

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"quadra_financeiro/internal/ports"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/sheets/v4"
)

// GoogleSheets is a Workbook over one Google spreadsheet. Values are written
// with RAW input so the sheet keeps exactly the strings the codec produced.
type GoogleSheets struct {
	svc           *sheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

func NewGoogleSheets(svc *sheets.Service, spreadsheetID string) *GoogleSheets {
	return &GoogleSheets{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}
}

var _ ports.SheetSetup = (*GoogleSheets)(nil)

// EnsureSheet runs the setup steps back to back. Callers that pace
// remote calls use the SheetSetup methods one by one instead.
func (g *GoogleSheets) EnsureSheet(ctx context.Context, sheet string, header []string) error {
	ok, err := g.HasSheet(ctx, sheet)
	if err != nil {
		return err
	}
	if !ok {
		if err := g.AddSheet(ctx, sheet); err != nil {
			return err
		}
	}
	rows, err := g.Values(ctx, sheet)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return nil
	}
	return g.WriteHeader(ctx, sheet, header)
}

func (g *GoogleSheets) HasSheet(ctx context.Context, sheet string) (bool, error) {
	_, err := g.sheetID(ctx, sheet)
	switch {
	case err == nil:
		return true, nil
	case errorsIsMissingSheet(err):
		return false, nil
	}
	return false, err
}

func (g *GoogleSheets) AddSheet(ctx context.Context, sheet string) error {
	resp, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: sheet},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return classifyGoogle("sheets.add_sheet", err)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
		g.mu.Lock()
		g.sheetIDs[sheet] = resp.Replies[0].AddSheet.Properties.SheetId
		g.mu.Unlock()
	}
	return nil
}

func (g *GoogleSheets) WriteHeader(ctx context.Context, sheet string, header []string) error {
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, a1(sheet, "A1"), &sheets.ValueRange{
		Values: [][]interface{}{toCells(header)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return classifyGoogle("sheets.write_header", err)
}

func (g *GoogleSheets) Values(ctx context.Context, sheet string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, quoteSheet(sheet)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, classifyGoogle("sheets.values", err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = fmt.Sprint(c)
		}
		out[i] = cells
	}
	return out, nil
}

func (g *GoogleSheets) AppendRow(ctx context.Context, sheet string, row []string) error {
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, a1(sheet, "A1"), &sheets.ValueRange{
		Values: [][]interface{}{toCells(row)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return classifyGoogle("sheets.append_row", err)
}

func (g *GoogleSheets) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("sheets.update_cell: %w", err)
	}
	_, err = g.svc.Spreadsheets.Values.Update(g.spreadsheetID, a1(sheet, cell), &sheets.ValueRange{
		Values: [][]interface{}{{value}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return classifyGoogle("sheets.update_cell", err)
}

func (g *GoogleSheets) DeleteRow(ctx context.Context, sheet string, row int) error {
	id, err := g.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	_, err = g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    id,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
					// sheet 0 and row index 0 are valid and must not be dropped as empty
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}).Context(ctx).Do()
	return classifyGoogle("sheets.delete_row", err)
}

type missingSheetError struct{ sheet string }

func (e missingSheetError) Error() string { return fmt.Sprintf("sheet %q not found", e.sheet) }

func errorsIsMissingSheet(err error) bool {
	_, ok := err.(missingSheetError)
	return ok
}

func (g *GoogleSheets) sheetID(ctx context.Context, sheet string) (int64, error) {
	g.mu.Lock()
	id, ok := g.sheetIDs[sheet]
	g.mu.Unlock()
	if ok {
		return id, nil
	}

	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).Do()
	if err != nil {
		return 0, classifyGoogle("sheets.get", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			g.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	if id, ok := g.sheetIDs[sheet]; ok {
		return id, nil
	}
	return 0, missingSheetError{sheet: sheet}
}

func quoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func a1(sheet, cell string) string {
	return quoteSheet(sheet) + "!" + cell
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
