package replication

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeSheetsAPI struct {
	mu        sync.Mutex
	metaCalls int
	deletes   []map[string]interface{}
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"range":  "'Orders'!A1:A3",
			"values": [][]interface{}{{"Order ID"}, {"1"}, {"2"}},
		})
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/spreadsheets/report"):
		f.metaCalls++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"sheets": []interface{}{
				map[string]interface{}{"properties": map[string]interface{}{"title": "Orders", "sheetId": 42}},
			},
		})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		var body struct {
			Requests []struct {
				DeleteDimension struct {
					Range map[string]interface{} `json:"range"`
				} `json:"deleteDimension"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, req := range body.Requests {
			f.deletes = append(f.deletes, req.DeleteDimension.Range)
		}
		_, _ = w.Write([]byte(`{"spreadsheetId":"report"}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestSheets(t *testing.T) (*GoogleSheets, *fakeSheetsAPI) {
	t.Helper()
	api := &fakeSheetsAPI{}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	g, err := newGoogleSheets(context.Background(), "report",
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return g, api
}

func TestGoogleSheetsFindRow(t *testing.T) {
	g, _ := newTestSheets(t)
	ctx := context.Background()

	row, found, err := g.FindRow(ctx, "Orders", "2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, row)

	_, found, err = g.FindRow(ctx, "Orders", "9")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGoogleSheetsDeleteRowCachesSheetID(t *testing.T) {
	g, api := newTestSheets(t)
	ctx := context.Background()

	require.NoError(t, g.DeleteRow(ctx, "Orders", 3))
	require.NoError(t, g.DeleteRow(ctx, "Orders", 2))
	assert.ErrorContains(t, g.DeleteRow(ctx, "Archive", 2), "not found")

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.deletes, 2)
	assert.Equal(t, float64(42), api.deletes[0]["sheetId"])
	assert.Equal(t, "ROWS", api.deletes[0]["dimension"])
	assert.Equal(t, float64(2), api.deletes[0]["startIndex"])
	assert.Equal(t, float64(3), api.deletes[0]["endIndex"])
	assert.Equal(t, 2, api.metaCalls)
}

func TestNewGoogleSheetsRequiresID(t *testing.T) {
	_, err := NewGoogleSheets(context.Background(), "", "creds.json")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "'Orders'", quote("Orders"))
	assert.Equal(t, "'Bob''s'", quote("Bob's"))
}
