package infrastructure

import (
	"fmt"

	"github.com/yourusername/media-fetch-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteFetchRepository implements FetchHistoryRepository using SQLite
type SQLiteFetchRepository struct {
	db *gorm.DB
}

// NewSQLiteFetchRepository creates a new SQLite repository
func NewSQLiteFetchRepository(dbPath string) (*SQLiteFetchRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.FetchRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteFetchRepository{db: db}, nil
}

// Create persists a new history record
func (r *SQLiteFetchRepository) Create(record *domain.FetchRecord) error {
	return r.db.Create(record).Error
}

// FindByID finds a record by ID
func (r *SQLiteFetchRepository) FindByID(id string) (*domain.FetchRecord, error) {
	var record domain.FetchRecord
	err := r.db.First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindAll finds records matching the given column filters, newest first
func (r *SQLiteFetchRepository) FindAll(filters map[string]interface{}) ([]*domain.FetchRecord, error) {
	var records []*domain.FetchRecord
	query := r.db

	for key, value := range filters {
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&records).Error
	return records, err
}

// Stats returns aggregate fetch counts grouped by status
func (r *SQLiteFetchRepository) Stats() (*domain.FetchStats, error) {
	stats := &domain.FetchStats{}

	if err := r.db.Model(&domain.FetchRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.FetchStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.FetchRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.FetchSucceeded:
			stats.Succeeded = sc.Count
		case domain.FetchFailed:
			stats.Failed = sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteFetchRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
