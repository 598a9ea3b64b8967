package uploads

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Record describes one stored image. Game state itself is never persisted;
// the ledger only keeps track of files written to disk.
type Record struct {
	GameID      string
	TeamColor   string
	CellIndex   int
	URL         string
	ContentType string
	Size        int64
	UploadedAt  time.Time
}

type Ledger interface {
	Record(ctx context.Context, rec Record) error
	Close() error
}

type NopLedger struct{}

func (NopLedger) Record(context.Context, Record) error { return nil }
func (NopLedger) Close() error                         { return nil }

type attachmentRow struct {
	ID          uint   `gorm:"primaryKey"`
	GameID      string `gorm:"index;size:32"`
	TeamColor   string `gorm:"size:32"`
	CellIndex   int
	URL         string
	ContentType string `gorm:"size:64"`
	Size        int64
	UploadedAt  time.Time
	CreatedAt   time.Time
}

func (attachmentRow) TableName() string { return "image_attachments" }

func toRow(rec Record) attachmentRow {
	return attachmentRow{
		GameID:      rec.GameID,
		TeamColor:   rec.TeamColor,
		CellIndex:   rec.CellIndex,
		URL:         rec.URL,
		ContentType: rec.ContentType,
		Size:        rec.Size,
		UploadedAt:  rec.UploadedAt,
	}
}

type GormLedger struct {
	db *gorm.DB
}

// OpenGormLedger connects to Postgres and makes sure the table exists.
func OpenGormLedger(ctx context.Context, dsn string) (*GormLedger, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	l := NewGormLedger(db)
	if err := l.Migrate(ctx); err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Migrate(ctx context.Context) error {
	if err := l.db.WithContext(ctx).AutoMigrate(&attachmentRow{}); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}

func (l *GormLedger) Record(ctx context.Context, rec Record) error {
	row := toRow(rec)
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	return nil
}

func (l *GormLedger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
