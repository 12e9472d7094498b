package archive

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Nooom01/automl-agent-system/config"
	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/types"
)

// Archive persists run outcomes to MySQL so strategies stay comparable
// across restarts
type Archive struct {
	db     *gorm.DB
	logger *log.Logger
}

// DSN renders the connection string for the archive database
func DSN(conf config.ArchiveConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		conf.User, conf.Password, conf.Host, conf.Port, conf.Name)
}

// Open connects to the archive database and migrates the outcome table when
// it is missing
func Open(conf config.ArchiveConfig, logger *log.Logger) (*Archive, error) {
	db, err := gorm.Open(mysql.Open(DSN(conf)), &gorm.Config{
		PrepareStmt: true,
		Logger:      gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to archive database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if !db.Migrator().HasTable(&StrategyOutcome{}) {
		if err := db.AutoMigrate(&StrategyOutcome{}); err != nil {
			return nil, fmt.Errorf("failed to migrate outcome table: %w", err)
		}
	}

	return &Archive{
		db:     db,
		logger: logger.With(log.LogParams{"service": "Archive"}),
	}, nil
}

// SaveRun archives every result of a finished run in one batch insert
func (a *Archive) SaveRun(ctx context.Context, view *types.RunView) error {
	if view == nil || len(view.Results) == 0 {
		return nil
	}
	outcomes := make([]StrategyOutcome, 0, len(view.Results))
	for _, result := range view.Results {
		if result == nil {
			continue
		}
		outcomes = append(outcomes, newOutcome(view, result))
	}
	if len(outcomes) == 0 {
		return nil
	}

	if err := a.db.WithContext(ctx).Create(&outcomes).Error; err != nil {
		return fmt.Errorf("failed to archive run %s: %w", view.ID, err)
	}
	a.logger.With(log.LogParams{
		"run":      view.ID,
		"outcomes": len(outcomes),
	}).Info("Archived run outcomes")
	return nil
}

// ListOutcomes returns the archived rows of one run in insertion order
func (a *Archive) ListOutcomes(ctx context.Context, runID string) ([]StrategyOutcome, error) {
	var outcomes []StrategyOutcome
	if err := a.db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&outcomes).Error; err != nil {
		return nil, fmt.Errorf("failed to list outcomes for run %s: %w", runID, err)
	}
	return outcomes, nil
}

// Close releases the underlying connection pool
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
