package replication_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ksred/order-bot/internal/replication"
	"github.com/ksred/order-bot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResyncAndStatsHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mem := replication.NewMemorySpreadsheet()
	processor := startProcessor(t, mem, replication.Config{})
	sink := replication.NewSink(processor, time.UTC)
	src := staticSource{
		platforms: []types.Platform{{ID: 1, Name: "Amazon"}},
		orders:    []types.Order{order(1, "Book")},
	}

	router := gin.New()
	handlers := replication.NewGinHandlers(sink, src)
	router.POST("/api/v1/internal/resync", handlers.ResyncHandler())
	router.GET("/api/v1/internal/stats", handlers.StatsHandler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/internal/resync", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []interface{}{"Order ID", uint(1)}, ids(mem.Rows("Orders")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/internal/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool              `json:"success"`
		Data    replication.Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(2), body.Data.Succeeded)
	assert.NotNil(t, body.Data.LastFullSync)
}

func TestStatsOmitUnsetTimestamps(t *testing.T) {
	processor := replication.NewProcessor(replication.NewMemorySpreadsheet(), replication.Config{})

	data, err := json.Marshal(processor.Stats())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "last_error_at")
	assert.NotContains(t, string(data), "last_full_sync")
	assert.NotContains(t, string(data), "0001-01-01")
}
