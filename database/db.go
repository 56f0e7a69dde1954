package database

import (
	"fmt"
	"time"

	"rental-ledger/config"
	"rental-ledger/logger"
	bookingModel "rental-ledger/models/booking"
	"rental-ledger/models/log"
	receiptModel "rental-ledger/models/receipt"
	transactionModel "rental-ledger/models/transaction"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var instance *gorm.DB

// InitDB opens the postgres connection, migrates every model and creates
// the supporting indexes
func InitDB(cfg config.App) (*gorm.DB, error) {
	var err error
	instance, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}
	logger.Success("Successfully connected to the database")

	sqlDB, err := instance.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := autoMigrate(); err != nil {
		logger.Error("Failed to run migrations", err)
		return nil, err
	}
	logger.Success("All migrations completed successfully")

	if err := createIndexes(); err != nil {
		logger.Error("Failed to create indexes", err)
		return nil, err
	}
	logger.Success("All indexes created successfully")

	return instance, nil
}

// autoMigrate runs auto migration for all models in dependency order
func autoMigrate() error {
	// Stage 1: ledger
	stage1Models := []interface{}{
		&bookingModel.Booking{},
		&bookingModel.BookingStatusEvent{},
	}

	for _, model := range stage1Models {
		if err := instance.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Stage 2: payments
	stage2Models := []interface{}{
		&transactionModel.Transaction{},
		&receiptModel.Receipt{},
	}

	for _, model := range stage2Models {
		if err := instance.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Stage 3: Logging
	if err := instance.AutoMigrate(&log.Log{}); err != nil {
		return fmt.Errorf("failed to migrate %T: %w", &log.Log{}, err)
	}

	return nil
}

// createIndexes creates the composite indexes gorm tags cannot express
func createIndexes() error {
	indexes := []struct {
		name string
		sql  string
	}{
		{"bookings property calendar", "CREATE INDEX IF NOT EXISTS idx_bookings_property_dates ON bookings(property_id, check_in, check_out) WHERE status <> 'cancelled'"},
		{"bookings created_at", "CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings(created_at DESC)"},
		{"transactions date", "CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date DESC)"},
		{"receipts date", "CREATE INDEX IF NOT EXISTS idx_receipts_date ON receipts(date DESC)"},
		{"logs method", "CREATE INDEX IF NOT EXISTS idx_logs_method ON logs(method)"},
	}

	for _, idx := range indexes {
		if err := instance.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("failed to create %s index: %w", idx.name, err)
		}
	}

	return nil
}

// Close releases the underlying connection pool
func Close() error {
	if instance == nil {
		return nil
	}
	sqlDB, err := instance.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
