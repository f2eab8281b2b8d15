package replication

import (
	"context"
	"fmt"
	"time"

	"github.com/ksred/order-bot/internal/types"
	"github.com/rs/zerolog/log"
)

// Sink mirrors store mutations into the report. Every method returns immediately;
// failures are logged by the processor and never reach the caller.
type Sink struct {
	processor *Processor
	loc       *time.Location
}

// NewSink formats rows in loc and hands them to processor
func NewSink(processor *Processor, loc *time.Location) *Sink {
	if loc == nil {
		loc = time.UTC
	}
	return &Sink{processor: processor, loc: loc}
}

func (s *Sink) AppendPlatform(platform types.Platform) {
	s.processor.submit(job{
		op:       opAppend,
		kind:     KindPlatform,
		entityID: platform.ID,
		row:      FormatPlatformRow(platform, s.loc),
	})
}

func (s *Sink) DeletePlatform(platformID uint) {
	s.processor.submit(job{op: opDeleteRow, kind: KindPlatform, entityID: platformID})
}

func (s *Sink) AppendOrder(order types.Order) {
	s.processor.submit(job{
		op:       opAppend,
		kind:     KindOrder,
		entityID: order.ID,
		row:      FormatOrderRow(order, s.loc),
	})
}

func (s *Sink) UpdateOrder(order types.Order) {
	s.processor.submit(job{
		op:       opUpdateRow,
		kind:     KindOrder,
		entityID: order.ID,
		row:      FormatOrderRow(order, s.loc),
	})
}

func (s *Sink) DeleteOrder(orderID uint) {
	s.processor.submit(job{op: opDeleteRow, kind: KindOrder, entityID: orderID})
}

// FullSync rewrites both sheets from the given entities and waits for the worker to
// finish. It goes through the queue so it cannot interleave with per-mutation writes.
// Replication errors are logged, not returned; only ctx ends the wait early.
func (s *Sink) FullSync(ctx context.Context, platforms []types.Platform, orders []types.Order) {
	platformRows := make([][]interface{}, 0, len(platforms))
	for _, p := range platforms {
		platformRows = append(platformRows, FormatPlatformRow(p, s.loc))
	}
	orderRows := make([][]interface{}, 0, len(orders))
	for _, o := range orders {
		orderRows = append(orderRows, FormatOrderRow(o, s.loc))
	}

	logger := log.With().Str("component", "replication_sink").Logger()
	logger.Info().
		Int("orders", len(orders)).
		Int("platforms", len(platforms)).
		Msg("starting full synchronization")

	if err := s.processor.submitWait(ctx, job{op: opFullSync, kind: KindOrder, rows: orderRows}); err != nil {
		logger.Error().Err(err).Str("kind", string(KindOrder)).Msg("full synchronization not completed")
	}
	if err := s.processor.submitWait(ctx, job{op: opFullSync, kind: KindPlatform, rows: platformRows}); err != nil {
		logger.Error().Err(err).Str("kind", string(KindPlatform)).Msg("full synchronization not completed")
	}
}

// Source lists the authoritative entities for a full synchronization
type Source interface {
	ListPlatforms(ctx context.Context) ([]types.Platform, error)
	ListOrders(ctx context.Context, limit, offset int) ([]types.Order, error)
}

// Resync reads every platform and order from src and rewrites both sheets
func (s *Sink) Resync(ctx context.Context, src Source) error {
	platforms, err := src.ListPlatforms(ctx)
	if err != nil {
		return fmt.Errorf("failed to list platforms: %w", err)
	}
	orders, err := src.ListOrders(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to list orders: %w", err)
	}
	s.FullSync(ctx, platforms, orders)
	return nil
}

// Stats reports the processor counters
func (s *Sink) Stats() Stats {
	return s.processor.Stats()
}
