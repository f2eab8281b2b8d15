package replication

import (
	"github.com/gin-gonic/gin"
	"github.com/ksred/order-bot/pkg/response"
	"github.com/rs/zerolog/log"
)

// GinHandlers exposes replication controls on the internal API
type GinHandlers struct {
	sink   *Sink
	source Source
}

func NewGinHandlers(sink *Sink, source Source) *GinHandlers {
	return &GinHandlers{sink: sink, source: source}
}

// ResyncHandler handles POST /api/v1/internal/resync. It returns once both sheets are
// rewritten or the request is cancelled.
func (h *GinHandlers) ResyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		log.Info().
			Str("component", "replication_handlers").
			Str("client_id", c.GetString("clientID")).
			Msg("manual resync requested")

		if err := h.sink.Resync(c.Request.Context(), h.source); err != nil {
			log.Error().Str("component", "replication_handlers").Err(err).Msg("manual resync failed")
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, h.sink.Stats())
	}
}

// StatsHandler handles GET /api/v1/internal/stats
func (h *GinHandlers) StatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.sink.Stats())
	}
}
