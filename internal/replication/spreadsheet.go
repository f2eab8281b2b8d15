package replication

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by the Unavailable backend
var ErrNotConfigured = errors.New("spreadsheet backend not configured")

// Spreadsheet is the tabular report the store is mirrored into. Rows are 1-based and
// row 1 holds the header.
type Spreadsheet interface {
	// Clear removes every value from the sheet
	Clear(ctx context.Context, sheet string) error
	// AppendRows adds rows after the last non-empty row
	AppendRows(ctx context.Context, sheet string, rows [][]interface{}) error
	// FindRow returns the index of the first row whose first cell equals key
	FindRow(ctx context.Context, sheet string, key string) (row int, found bool, err error)
	// UpdateRow overwrites the cells of row starting at the first column
	UpdateRow(ctx context.Context, sheet string, row int, values []interface{}) error
	// DeleteRow removes row, shifting the rows below it up
	DeleteRow(ctx context.Context, sheet string, row int) error
}

type unavailable struct {
	err error
}

// Unavailable returns a backend that fails every call with err (ErrNotConfigured when nil).
// It stands in when credentials could not be loaded so each mirror write is logged and dropped.
func Unavailable(err error) Spreadsheet {
	if err == nil {
		err = ErrNotConfigured
	}
	return unavailable{err: err}
}

func (u unavailable) Clear(context.Context, string) error { return u.err }

func (u unavailable) AppendRows(context.Context, string, [][]interface{}) error { return u.err }

func (u unavailable) FindRow(context.Context, string, string) (int, bool, error) {
	return 0, false, u.err
}

func (u unavailable) UpdateRow(context.Context, string, int, []interface{}) error { return u.err }

func (u unavailable) DeleteRow(context.Context, string, int) error { return u.err }
