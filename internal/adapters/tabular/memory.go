package tabular

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Memory keeps sheets in process memory. It backs offline mode and tests.
type Memory struct {
	mu     sync.Mutex
	sheets map[string][][]string
}

func NewMemory() *Memory {
	return &Memory{sheets: make(map[string][][]string)}
}

func (m *Memory) EnsureSheet(_ context.Context, sheet string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.sheets[sheet]
	if !ok || len(rows) == 0 {
		m.sheets[sheet] = [][]string{slices.Clone(header)}
	}
	return nil
}

func (m *Memory) Values(_ context.Context, sheet string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("memory: sheet %q not found", sheet)
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = slices.Clone(r)
	}
	return out, nil
}

func (m *Memory) AppendRow(_ context.Context, sheet string, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sheets[sheet]; !ok {
		return fmt.Errorf("memory: sheet %q not found", sheet)
	}
	m.sheets[sheet] = append(m.sheets[sheet], slices.Clone(row))
	return nil
}

func (m *Memory) UpdateCell(_ context.Context, sheet string, row, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("memory: sheet %q not found", sheet)
	}
	if row < 1 || row > len(rows) || col < 1 {
		return fmt.Errorf("memory: cell (%d,%d) out of range", row, col)
	}
	r := rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	rows[row-1] = r
	return nil
}

func (m *Memory) DeleteRow(_ context.Context, sheet string, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("memory: sheet %q not found", sheet)
	}
	if row < 1 || row > len(rows) {
		return fmt.Errorf("memory: row %d out of range", row)
	}
	m.sheets[sheet] = slices.Delete(rows, row-1, row)
	return nil
}
