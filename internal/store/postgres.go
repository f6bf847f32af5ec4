package store

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/multierr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects through gorm's pgx-backed driver and migrates the messages table.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&Message{}); err != nil {
		return nil, multierr.Append(fmt.Errorf("migrate messages: %w", err), closeDB(db))
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Append(ctx context.Context, m Message) error {
	m.ID = 0
	if err := p.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]Message, error) {
	var out []Message
	q := p.db.WithContext(ctx).Order("received_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	// newest-first from the query, callers want oldest first
	slices.Reverse(out)
	return out, nil
}

func (p *Postgres) Close() error {
	return closeDB(p.db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("unwrap sql db: %w", err)
	}
	return sqlDB.Close()
}
