package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ksred/order-bot/internal/bot"
	"github.com/ksred/order-bot/pkg/response"
	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("transport stopped")

// Handler turns one event into a response
type Handler interface {
	Handle(ctx context.Context, ev bot.Event) bot.Response
}

// Transport feeds events to the handler on a fixed set of workers. Events of one user
// always land on the same worker, so they are handled in arrival order while other
// users proceed in parallel.
type Transport struct {
	handler Handler
	sender  *Sender
	shards  []chan bot.Event
	wg      sync.WaitGroup

	// mu orders Enqueue against shutdown: done is closed under the write lock, so no
	// event can land in a queue after the workers' final drain has begun
	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

// NewTransport creates a transport with workers queues of queueSize events each
func NewTransport(handler Handler, sender *Sender, workers, queueSize int) *Transport {
	if workers <= 0 {
		workers = 8
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	shards := make([]chan bot.Event, workers)
	for i := range shards {
		shards[i] = make(chan bot.Event, queueSize)
	}
	return &Transport{
		handler: handler,
		sender:  sender,
		shards:  shards,
		done:    make(chan struct{}),
	}
}

// Start runs the workers until ctx is cancelled. Events already queued are still handled.
func (t *Transport) Start(ctx context.Context) {
	logger := log.With().Str("component", "telegram_transport").Logger()
	logger.Info().Int("workers", len(t.shards)).Msg("starting transport workers")

	for i := range t.shards {
		t.wg.Add(1)
		go t.work(t.shards[i])
	}

	<-ctx.Done()
	t.mu.Lock()
	t.stopped = true
	close(t.done)
	t.mu.Unlock()
	t.wg.Wait()
	logger.Info().Msg("transport workers stopped")
}

func (t *Transport) work(events <-chan bot.Event) {
	defer t.wg.Done()
	for {
		select {
		case ev := <-events:
			t.process(ev)
		case <-t.done:
			for {
				select {
				case ev := <-events:
					t.process(ev)
				default:
					return
				}
			}
		}
	}
}

func (t *Transport) process(ev bot.Event) {
	// handling is not bound to the transport context so shutdown finishes queued events
	resp := t.handler.Handle(context.Background(), ev)
	if err := t.sender.Deliver(resp); err != nil {
		log.Warn().
			Str("component", "telegram_transport").
			Int64("user_id", ev.UserID).
			Err(err).
			Msg("response partially delivered")
	}
}

// Enqueue hands ev to its worker, waiting while that worker's queue is full
func (t *Transport) Enqueue(ctx context.Context, ev bot.Event) error {
	key := ev.UserID
	if !ev.HasUser {
		key = ev.ChatID
	}
	if key < 0 {
		key = -key
	}
	shard := t.shards[key%int64(len(t.shards))]

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.stopped {
		return ErrStopped
	}

	// workers keep consuming until done is closed, which waits for this send
	select {
	case shard <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll long-polls the Bot API and enqueues updates until ctx is cancelled. Any webhook
// is removed first since the two delivery modes exclude each other.
func (t *Transport) Poll(ctx context.Context, api *tgbotapi.BotAPI) error {
	logger := log.With().Str("component", "telegram_poller").Logger()

	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	logger.Info().Str("bot", api.Self.UserName).Msg("polling for updates")

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			logger.Info().Msg("stopped polling")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			ev, ok := EventFromUpdate(update)
			if !ok {
				continue
			}
			if err := t.Enqueue(ctx, ev); err != nil {
				logger.Warn().Err(err).Int("update_id", update.UpdateID).Msg("dropping update")
			}
		}
	}
}

// RegisterWebhook points the Bot API at url. Telegram echoes secret in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery.
func RegisterWebhook(api *tgbotapi.BotAPI, url, secret string) error {
	params := tgbotapi.Params{"url": url, "drop_pending_updates": "true"}
	if secret != "" {
		params["secret_token"] = secret
	}
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	log.Info().Str("component", "telegram_webhook").Str("url", url).Msg("webhook registered")
	return nil
}

// WebhookHandler accepts updates pushed by the Bot API
func (t *Transport) WebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var update tgbotapi.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			response.BadRequest(c, "Invalid update payload")
			return
		}

		ev, ok := EventFromUpdate(update)
		if !ok {
			c.Status(http.StatusOK)
			return
		}

		if err := t.Enqueue(c.Request.Context(), ev); err != nil {
			log.Warn().Str("component", "telegram_webhook").Err(err).Int("update_id", update.UpdateID).Msg("failed to queue update")
			response.ServiceUnavailable(c, "Bot is shutting down")
			return
		}
		c.Status(http.StatusOK)
	}
}
