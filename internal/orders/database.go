package orders

import (
	"context"
	"errors"

	"github.com/ksred/order-bot/internal/types"
	"gorm.io/gorm"
)

// Database is the gorm-backed gateway for platforms and orders. Each call is a single
// committed statement; constraint failures come back as ErrDuplicateName or
// ErrReferentialIntegrity.
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreatePlatform(ctx context.Context, platform *types.Platform) error {
	return translateError(d.db.WithContext(ctx).Create(platform).Error)
}

func (d *Database) GetPlatforms(ctx context.Context) ([]types.Platform, error) {
	var platforms []types.Platform
	if err := d.db.WithContext(ctx).Order("id ASC").Find(&platforms).Error; err != nil {
		return nil, err
	}
	return platforms, nil
}

func (d *Database) GetPlatform(ctx context.Context, platformID uint) (*types.Platform, error) {
	var platform types.Platform
	if err := d.db.WithContext(ctx).Where("id = ?", platformID).First(&platform).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &platform, nil
}

// DeletePlatform removes the row. Deleting an absent platform is not an error.
func (d *Database) DeletePlatform(ctx context.Context, platformID uint) error {
	return translateError(d.db.WithContext(ctx).Delete(&types.Platform{}, platformID).Error)
}

func (d *Database) CreateOrder(ctx context.Context, order *types.Order) error {
	return translateError(d.db.WithContext(ctx).Omit("Platform").Create(order).Error)
}

func (d *Database) GetOrder(ctx context.Context, orderID uint) (*types.Order, error) {
	var order types.Order
	if err := d.db.WithContext(ctx).Preload("Platform").Where("id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetOrders returns orders newest first. Non-positive limit or offset means no bound.
func (d *Database) GetOrders(ctx context.Context, limit, offset int) ([]types.Order, error) {
	query := d.db.WithContext(ctx).Preload("Platform").Order("id DESC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var orders []types.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *Database) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&types.Order{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateOrderFields writes only the columns present in patch and reports whether the order exists.
func (d *Database) UpdateOrderFields(ctx context.Context, orderID uint, patch types.OrderPatch) (bool, error) {
	result := d.db.WithContext(ctx).
		Model(&types.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}(patch))

	if result.Error != nil {
		return false, translateError(result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (d *Database) DeleteOrder(ctx context.Context, orderID uint) error {
	return d.db.WithContext(ctx).Delete(&types.Order{}, orderID).Error
}
