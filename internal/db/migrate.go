package db

import (
	"gorm.io/gorm"

	"govbid/internal/domain"
)

// Models lists every table owned by the service, in dependency order.
var Models = []any{
	&domain.Bid{},
	&domain.ComplianceItem{},
	&domain.BidDocument{},
	&domain.Profile{},
	&domain.NotificationPreferences{},
	&domain.PipelineJob{},
}

// Migrate runs database migrations
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(Models...)
}
