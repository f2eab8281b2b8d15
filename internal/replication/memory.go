package replication

import (
	"context"
	"fmt"
	"sync"
)

// MemorySpreadsheet keeps sheets in process. It backs local runs without Google
// credentials and the tests.
type MemorySpreadsheet struct {
	mu     sync.Mutex
	sheets map[string][][]interface{}
}

func NewMemorySpreadsheet() *MemorySpreadsheet {
	return &MemorySpreadsheet{sheets: make(map[string][][]interface{})}
}

func (m *MemorySpreadsheet) Clear(_ context.Context, sheet string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[sheet] = nil
	return nil
}

func (m *MemorySpreadsheet) AppendRows(_ context.Context, sheet string, rows [][]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		m.sheets[sheet] = append(m.sheets[sheet], append([]interface{}(nil), row...))
	}
	return nil
}

func (m *MemorySpreadsheet) FindRow(_ context.Context, sheet string, key string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.sheets[sheet] {
		if len(row) > 0 && fmt.Sprint(row[0]) == key {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

func (m *MemorySpreadsheet) UpdateRow(_ context.Context, sheet string, row int, values []interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.sheets[sheet]
	if row < 1 || row > len(rows) {
		return fmt.Errorf("sheet %q has no row %d", sheet, row)
	}
	rows[row-1] = append([]interface{}(nil), values...)
	return nil
}

func (m *MemorySpreadsheet) DeleteRow(_ context.Context, sheet string, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.sheets[sheet]
	if row < 1 || row > len(rows) {
		return fmt.Errorf("sheet %q has no row %d", sheet, row)
	}
	m.sheets[sheet] = append(rows[:row-1], rows[row:]...)
	return nil
}

// Rows returns a copy of the sheet's rows
func (m *MemorySpreadsheet) Rows(sheet string) [][]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]interface{}, 0, len(m.sheets[sheet]))
	for _, row := range m.sheets[sheet] {
		out = append(out, append([]interface{}(nil), row...))
	}
	return out
}
