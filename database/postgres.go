package database

import (
	"fmt"
	"time"

	"pos-payment-service/config"
	"pos-payment-service/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const connectAttempts = 10

// DSN builds the postgres connection string from config.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		cfg.PostgresHost, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB,
		cfg.PostgresPort, cfg.PostgresSSLMode, cfg.PostgresTimeZone,
	)
}

// Connect opens the database, retrying with a growing backoff while postgres
// comes up, and migrates the session tables.
func Connect(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	var db *gorm.DB
	var err error
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(DSN(cfg)), gormCfg)
		if err == nil {
			break
		}
		logger.Warn("DB connection failed, retrying", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(time.Duration(i+1) * 2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(&models.PaymentSession{}, &models.SessionRefund{}); err != nil {
		return nil, fmt.Errorf("AutoMigrate failed: %w", err)
	}
	logger.Info("Connected to PostgreSQL", zap.String("host", cfg.PostgresHost), zap.String("db", cfg.PostgresDB))
	return db, nil
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
