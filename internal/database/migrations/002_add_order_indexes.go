package migrations

import (
	"gorm.io/gorm"
)

// AddOrderIndexes adds the indexes used by the list and report queries
func AddOrderIndexes(db *gorm.DB) error {
	indexes := []string{
		// Newest-first listing
		`CREATE INDEX IF NOT EXISTS idx_orders_created
		 ON orders(created)`,

		// Platform deletion checks and per-platform lookups
		`CREATE INDEX IF NOT EXISTS idx_orders_platform_created
		 ON orders(platform_id, created)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
