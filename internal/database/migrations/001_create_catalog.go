package migrations

import (
	"github.com/ksred/order-bot/internal/types"
	"gorm.io/gorm"
)

// CreateCatalog creates the platforms and orders tables. Platforms go first so the
// orders.platform_id foreign key has a target.
func CreateCatalog(db *gorm.DB) error {
	if err := db.AutoMigrate(&types.Platform{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&types.Order{}); err != nil {
		return err
	}

	return nil
}
