package replication

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleSheets mirrors rows into a Google spreadsheet using a service account.
type GoogleSheets struct {
	srv           *sheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64 // tab title -> numeric sheet id, needed for row deletion
}

// NewGoogleSheets creates a Sheets v4 client from a service-account credentials file
func NewGoogleSheets(ctx context.Context, spreadsheetID, credentialsFile string) (*GoogleSheets, error) {
	return newGoogleSheets(ctx, spreadsheetID,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
}

func newGoogleSheets(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*GoogleSheets, error) {
	if spreadsheetID == "" {
		return nil, ErrNotConfigured
	}

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return &GoogleSheets{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

func (g *GoogleSheets) Clear(ctx context.Context, sheet string) error {
	_, err := g.srv.Spreadsheets.Values.
		Clear(g.spreadsheetID, quote(sheet), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	return err
}

func (g *GoogleSheets) AppendRows(ctx context.Context, sheet string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := g.srv.Spreadsheets.Values.
		Append(g.spreadsheetID, quote(sheet), &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (g *GoogleSheets) FindRow(ctx context.Context, sheet string, key string) (int, bool, error) {
	resp, err := g.srv.Spreadsheets.Values.
		Get(g.spreadsheetID, quote(sheet)+"!A:A").
		Context(ctx).
		Do()
	if err != nil {
		return 0, false, err
	}

	for i, row := range resp.Values {
		if len(row) > 0 && fmt.Sprint(row[0]) == key {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

func (g *GoogleSheets) UpdateRow(ctx context.Context, sheet string, row int, values []interface{}) error {
	_, err := g.srv.Spreadsheets.Values.
		Update(g.spreadsheetID, fmt.Sprintf("%s!A%d", quote(sheet), row), &sheets.ValueRange{
			Values: [][]interface{}{values},
		}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

func (g *GoogleSheets) DeleteRow(ctx context.Context, sheet string, row int) error {
	sheetID, err := g.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	_, err = g.srv.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
					// the first tab has id 0 and would otherwise be omitted
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}).Context(ctx).Do()
	return err
}

func (g *GoogleSheets) sheetID(ctx context.Context, sheet string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id, ok := g.sheetIDs[sheet]; ok {
		return id, nil
	}

	ss, err := g.srv.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			g.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}

	id, ok := g.sheetIDs[sheet]
	if !ok {
		return 0, fmt.Errorf("worksheet %q not found", sheet)
	}
	return id, nil
}

// quote wraps a tab title for A1 notation
func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}
