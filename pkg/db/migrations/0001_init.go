package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type Product struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name                   string    `gorm:"type:text;not null"`
	Description            string    `gorm:"type:text;not null"`
	PriceInCents           int64     `gorm:"type:bigint;not null;check:price_in_cents >= 0"`
	FilePath               string    `gorm:"type:text;not null"`
	ImagePath              string    `gorm:"type:text;not null;default:''"`
	IsAvailableForPurchase bool      `gorm:"type:boolean;not null;default:true"`
	CreatedAt              time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt              time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email     string    `gorm:"type:text;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type Order struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID `gorm:"type:uuid;not null;index"`
	PricePaidInCents int64     `gorm:"type:bigint;not null"`
	CreatedAt        time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt        time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	User             User      `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Product          Product   `gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

type DownloadVerification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	ExpiresAt time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Product   Product   `gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func openTx(tx *sql.Tx) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
}

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).AutoMigrate(
		&Product{},
		&User{},
		&Order{},
		&DownloadVerification{},
	); err != nil {
		return err
	}

	m := gormDB.WithContext(ctx).Migrator()
	if !m.HasConstraint(&Order{}, "User") {
		if err := m.CreateConstraint(&Order{}, "User"); err != nil {
			return err
		}
	}
	if !m.HasConstraint(&Order{}, "Product") {
		if err := m.CreateConstraint(&Order{}, "Product"); err != nil {
			return err
		}
	}
	if !m.HasConstraint(&DownloadVerification{}, "Product") {
		if err := m.CreateConstraint(&DownloadVerification{}, "Product"); err != nil {
			return err
		}
	}

	return nil
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&DownloadVerification{},
		&Order{},
		&User{},
		&Product{},
	)
}
