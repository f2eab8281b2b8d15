package orders

import (
	"context"
	"fmt"

	"github.com/ksred/order-bot/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Replicator receives every committed mutation. Implementations must return
// immediately; the gateway never waits on them and ignores their outcome.
type Replicator interface {
	AppendPlatform(platform types.Platform)
	DeletePlatform(platformID uint)
	AppendOrder(order types.Order)
	UpdateOrder(order types.Order)
	DeleteOrder(orderID uint)
}

// Service is the data store gateway used by the conversation flows
type Service struct {
	db         *Database
	replicator Replicator
}

// NewService creates a gateway over the given connection. A nil replicator disables mirroring.
func NewService(gormDB *gorm.DB, replicator Replicator) *Service {
	if replicator == nil {
		replicator = noopReplicator{}
	}
	return &Service{
		db:         NewDatabase(gormDB),
		replicator: replicator,
	}
}

// AddPlatform creates a platform. A taken name returns ErrDuplicateName.
func (s *Service) AddPlatform(ctx context.Context, name string) (*types.Platform, error) {
	platform := &types.Platform{Name: name}
	if err := s.db.CreatePlatform(ctx, platform); err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "orders").
		Uint("platform_id", platform.ID).
		Str("name", platform.Name).
		Msg("platform added")

	s.replicator.AppendPlatform(*platform)
	return platform, nil
}

// ListPlatforms returns all platforms ordered by id
func (s *Service) ListPlatforms(ctx context.Context) ([]types.Platform, error) {
	return s.db.GetPlatforms(ctx)
}

// GetPlatform returns nil, nil when the platform does not exist
func (s *Service) GetPlatform(ctx context.Context, platformID uint) (*types.Platform, error) {
	return s.db.GetPlatform(ctx, platformID)
}

// DeletePlatform removes a platform. While any order references it the store refuses
// with ErrReferentialIntegrity and nothing changes.
func (s *Service) DeletePlatform(ctx context.Context, platformID uint) error {
	if err := s.db.DeletePlatform(ctx, platformID); err != nil {
		return err
	}

	log.Info().
		Str("component", "orders").
		Uint("platform_id", platformID).
		Msg("platform deleted")

	s.replicator.DeletePlatform(platformID)
	return nil
}

// AddOrder persists a completed draft. PlatformID is trusted to reference an existing
// platform; an empty payment status is stored as types.DefaultPaymentStatus.
func (s *Service) AddOrder(ctx context.Context, order types.Order) (*types.Order, error) {
	order.ID = 0
	order.Platform = nil
	if order.PaymentStatus == "" {
		order.PaymentStatus = types.DefaultPaymentStatus
	}

	if err := s.db.CreateOrder(ctx, &order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	created, err := s.db.GetOrder(ctx, order.ID)
	if err != nil || created == nil {
		// The row is committed; fall back to what we wrote.
		created = &order
	}

	log.Info().
		Str("component", "orders").
		Uint("order_id", created.ID).
		Uint("platform_id", created.PlatformID).
		Msg("order added")

	s.replicator.AppendOrder(*created)
	return created, nil
}

// GetOrder returns nil, nil when the order does not exist
func (s *Service) GetOrder(ctx context.Context, orderID uint) (*types.Order, error) {
	return s.db.GetOrder(ctx, orderID)
}

// ListOrders returns orders newest first, sliced by limit and offset when positive
func (s *Service) ListOrders(ctx context.Context, limit, offset int) ([]types.Order, error) {
	return s.db.GetOrders(ctx, limit, offset)
}

// CountOrders returns the total number of orders
func (s *Service) CountOrders(ctx context.Context) (int64, error) {
	return s.db.CountOrders(ctx)
}

// UpdateOrder applies patch and returns the refreshed order, or nil, nil when the
// order no longer exists.
func (s *Service) UpdateOrder(ctx context.Context, orderID uint, patch types.OrderPatch) (*types.Order, error) {
	if len(patch) == 0 {
		return s.db.GetOrder(ctx, orderID)
	}

	found, err := s.db.UpdateOrderFields(ctx, orderID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", orderID, err)
	}
	if !found {
		return nil, nil
	}

	updated, err := s.db.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, nil
	}

	log.Info().
		Str("component", "orders").
		Uint("order_id", orderID).
		Int("fields", len(patch)).
		Msg("order updated")

	s.replicator.UpdateOrder(*updated)
	return updated, nil
}

// DeleteOrder physically removes an order
func (s *Service) DeleteOrder(ctx context.Context, orderID uint) error {
	if err := s.db.DeleteOrder(ctx, orderID); err != nil {
		return fmt.Errorf("failed to delete order %d: %w", orderID, err)
	}

	log.Info().
		Str("component", "orders").
		Uint("order_id", orderID).
		Msg("order deleted")

	s.replicator.DeleteOrder(orderID)
	return nil
}

type noopReplicator struct{}

func (noopReplicator) AppendPlatform(types.Platform) {}
func (noopReplicator) DeletePlatform(uint)           {}
func (noopReplicator) AppendOrder(types.Order)       {}
func (noopReplicator) UpdateOrder(types.Order)       {}
func (noopReplicator) DeleteOrder(uint)              {}
