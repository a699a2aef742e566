package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/probelink/probelink/internal/domain"
)

// LoginHistoryRepository persists the audit trail of login attempts.
type LoginHistoryRepository interface {
	Record(attempt *domain.LoginAttempt) error
	Recent(limit int) ([]domain.LoginAttempt, error)
}

type GormLoginHistoryRepository struct{ db *gorm.DB }

func NewLoginHistoryRepository(db *gorm.DB) LoginHistoryRepository {
	return &GormLoginHistoryRepository{db: db}
}

func (r *GormLoginHistoryRepository) Record(attempt *domain.LoginAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *GormLoginHistoryRepository) Recent(limit int) ([]domain.LoginAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	var attempts []domain.LoginAttempt
	err := r.db.Order("created_at DESC, id DESC").Limit(limit).Find(&attempts).Error
	return attempts, err
}

// OpenDatabase opens the login-history database and migrates its schema.
// sqlite is the default embedded backend; postgres serves shared
// deployments.
func OpenDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.AutoMigrate(&domain.LoginAttempt{}); err != nil {
		return nil, fmt.Errorf("migrate login history schema: %w", err)
	}
	return db, nil
}
