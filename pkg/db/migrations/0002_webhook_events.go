package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
)

func init() {
	goose.AddMigrationContext(upWebhookEvents, downWebhookEvents)
}

// WebhookEvent records provider events that were fully processed.
type WebhookEvent struct {
	ID          string         `gorm:"type:text;primaryKey"`
	Provider    string         `gorm:"type:text;not null;index"`
	Type        string         `gorm:"type:text;not null"`
	Payload     datatypes.JSON `gorm:"type:jsonb"`
	ProcessedAt time.Time      `gorm:"type:timestamptz;not null;default:now()"`
}

func upWebhookEvents(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}
	return gormDB.WithContext(ctx).AutoMigrate(&WebhookEvent{})
}

func downWebhookEvents(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}
	return gormDB.WithContext(ctx).Migrator().DropTable(&WebhookEvent{})
}
