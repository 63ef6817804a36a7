// Package postgres implements the assessment repository over gorm with a pgx
// connection pool for health checks.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// DBManager owns the database connections: the gorm handle used by the
// repositories and a pgx pool used for health probes.
type DBManager struct {
	DB   *gorm.DB
	Pool *pgxpool.Pool
	log  logger.Logger
}

// NewDBManager opens the database connections and runs schema migration.
func NewDBManager(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*DBManager, error) {
	db, err := gorm.Open(gormpostgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxConnLifetime) * time.Minute)
	}
	if cfg.MaxConnIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.MaxConnIdleTime) * time.Minute)
	}

	if err := db.WithContext(ctx).AutoMigrate(&models.RiskAssessment{}); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "database connected",
		logger.String("host", cfg.Host),
		logger.String("database", cfg.Database),
	)
	return &DBManager{DB: db, Pool: pool, log: log.WithComponent("postgres")}, nil
}

// Ping verifies database connectivity.
func (m *DBManager) Ping(ctx context.Context) error {
	return m.Pool.Ping(ctx)
}

// Close releases both connections.
func (m *DBManager) Close() {
	m.Pool.Close()
	if sqlDB, err := m.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
