package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// kvEntry is one slot of the key-value table.
type kvEntry struct {
	Name      string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:longtext;not null"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string {
	return "kv_entries"
}

// GormKV stores slots as rows of a single table through gorm, so the same code
// runs against MySQL in production and SQLite for local use and tests.
type GormKV struct {
	db *gorm.DB
}

// OpenGorm connects with the given driver ("mysql" or "sqlite"), checks the
// connection and migrates the slot table.
func OpenGorm(ctx context.Context, driver, dsn string) (*GormKV, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return NewGormKV(ctx, db)
}

// NewGormKV wraps an existing connection and migrates the slot table.
func NewGormKV(ctx context.Context, db *gorm.DB) (*GormKV, error) {
	if err := db.WithContext(ctx).AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("migrate kv table: %w", err)
	}
	return &GormKV{db: db}, nil
}

func (g *GormKV) Get(ctx context.Context, key string) (string, bool, error) {
	var entries []kvEntry
	result := g.db.WithContext(ctx).Where("name = ?", key).Limit(1).Find(&entries)
	if result.Error != nil {
		return "", false, fmt.Errorf("get %s: %w", key, result.Error)
	}
	if len(entries) == 0 {
		return "", false, nil
	}
	return entries[0].Value, true, nil
}

func (g *GormKV) Set(ctx context.Context, key, value string) error {
	entry := kvEntry{Name: key, Value: value, UpdatedAt: time.Now()}
	result := g.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry)
	if result.Error != nil {
		return fmt.Errorf("set %s: %w", key, result.Error)
	}
	return nil
}

func (g *GormKV) Remove(ctx context.Context, key string) error {
	result := g.db.WithContext(ctx).Where("name = ?", key).Delete(&kvEntry{})
	if result.Error != nil {
		return fmt.Errorf("remove %s: %w", key, result.Error)
	}
	return nil
}

func (g *GormKV) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *GormKV) Durable() bool { return true }
