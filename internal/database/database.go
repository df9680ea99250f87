package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopcsv/internal/logger"
	"shopcsv/internal/models"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("record not found")

type Database struct {
	DB *gorm.DB
}

func New(databaseURL string, log *logger.Logger) (*Database, error) {
	var db *gorm.DB
	var err error

	gormConfig := &gorm.Config{
		Logger: log.Gorm(gormlogger.Warn),
	}

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), gormConfig)
	} else {
		// PostgreSQL for production, through the lib/pq driver
		var sqlDB *sql.DB
		sqlDB, err = sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db, err = gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.Store{}, &models.ReportJob{}); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveStore records the token of a freshly installed shop, replacing any earlier install.
func (d *Database) SaveStore(shopDomain, accessToken, scope string) (*models.Store, error) {
	var store models.Store
	err := d.DB.Where("shop_domain = ?", shopDomain).First(&store).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		store = models.Store{ShopDomain: shopDomain}
	case err != nil:
		return nil, fmt.Errorf("failed to fetch store: %w", err)
	}

	store.AccessToken = accessToken
	store.Scope = scope
	store.Status = models.StoreStatusActive

	if err := d.DB.Save(&store).Error; err != nil {
		return nil, fmt.Errorf("failed to save store: %w", err)
	}
	return &store, nil
}

// FindStoreByDomain returns the active install for a shop.
func (d *Database) FindStoreByDomain(shopDomain string) (*models.Store, error) {
	var store models.Store
	err := d.DB.Where("shop_domain = ? AND status = ?", shopDomain, models.StoreStatusActive).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store: %w", err)
	}
	return &store, nil
}

func (d *Database) FindStore(id string) (*models.Store, error) {
	var store models.Store
	err := d.DB.First(&store, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store: %w", err)
	}
	return &store, nil
}

// RevokeStore marks a store's token as no longer usable.
func (d *Database) RevokeStore(id string) error {
	return d.DB.Model(&models.Store{}).Where("id = ?", id).Update("status", models.StoreStatusRevoked).Error
}

func (d *Database) CreateReportJob(storeID string) (*models.ReportJob, error) {
	job := &models.ReportJob{
		StoreID: storeID,
		Status:  models.ReportJobStatusPending,
	}
	if err := d.DB.Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create report job: %w", err)
	}
	return job, nil
}

func (d *Database) FindReportJob(id string) (*models.ReportJob, error) {
	var job models.ReportJob
	err := d.DB.First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report job: %w", err)
	}
	return &job, nil
}

func (d *Database) MarkReportJobRunning(id string) error {
	now := time.Now()
	return d.updateJob(id, map[string]interface{}{
		"status":     models.ReportJobStatusRunning,
		"started_at": &now,
	})
}

func (d *Database) MarkReportJobCompleted(id string, csv []byte, rows int) error {
	now := time.Now()
	return d.updateJob(id, map[string]interface{}{
		"status":       models.ReportJobStatusCompleted,
		"csv":          csv,
		"row_count":    rows,
		"error":        nil,
		"completed_at": &now,
	})
}

func (d *Database) MarkReportJobFailed(id string, cause error) error {
	now := time.Now()
	msg := cause.Error()
	return d.updateJob(id, map[string]interface{}{
		"status":       models.ReportJobStatusFailed,
		"error":        &msg,
		"completed_at": &now,
	})
}

func (d *Database) updateJob(id string, fields map[string]interface{}) error {
	result := d.DB.Model(&models.ReportJob{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update report job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
