package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type GenerationRequest struct {
	ID           string         `gorm:"type:text;primaryKey"`
	Identifier   string         `gorm:"type:text;not null;index"`
	Type         string         `gorm:"type:text;not null"`
	Status       string         `gorm:"type:text;not null;index"`
	Result       string         `gorm:"type:text"`
	Reason       string         `gorm:"type:text"`
	Config       datatypes.JSON `gorm:"type:jsonb"`
	EnvConfig    datatypes.JSON `gorm:"type:jsonb"`
	CreationTime time.Time      `gorm:"type:timestamptz;not null;index"`
	Version      int            `gorm:"not null;default:0"`
}

func (GenerationRequest) TableName() string { return "generation_requests" }

type Sbom struct {
	ID                  string            `gorm:"type:text;primaryKey"`
	Identifier          string            `gorm:"type:text;not null;index"`
	RootPurl            string            `gorm:"type:text;index"`
	Bom                 datatypes.JSON    `gorm:"type:jsonb"`
	CreationTime        time.Time         `gorm:"type:timestamptz;not null;index"`
	GenerationRequestID string            `gorm:"type:text;not null;index"`
	GenerationRequest   GenerationRequest `gorm:"foreignKey:GenerationRequestID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Sbom) TableName() string { return "sboms" }

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).AutoMigrate(
		&GenerationRequest{},
		&Sbom{},
	); err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().CreateConstraint(&Sbom{}, "GenerationRequest")
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&Sbom{},
		&GenerationRequest{},
	)
}
