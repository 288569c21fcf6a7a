package database

import (
	"fmt"
	"time"

	"github.com/qaforum/engagement/internal/config"
	"github.com/qaforum/engagement/internal/logger"
	"github.com/qaforum/engagement/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Open creates and configures the database connection described by cfg
// and stores it in DB
func Open(cfg config.DatabaseConfig, verbose bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.URL)
	case "sqlite":
		dialector = sqlite.Open(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormLogger := gormlogger.Default.LogMode(gormlogger.Warn)
	if verbose {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == "sqlite" {
		// a single writer avoids SQLITE_BUSY and keeps :memory: databases shared
		maxOpen = 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	DB = db
	logger.Log.Info("✅ Database connected successfully", zap.String("driver", cfg.Driver))

	return db, nil
}

// Migrate runs auto-migration for the event log and the content tables
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	err := db.AutoMigrate(
		&models.Event{},
		&models.Question{},
		&models.Answer{},
		&models.Comment{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Log.Info("✅ Database migrations completed")
	return nil
}

// createIndexes adds the indexes gorm tags cannot express. Every statement
// is valid on both postgres and sqlite.
func createIndexes(db *gorm.DB) error {
	statements := []string{
		// Event log scans
		"CREATE INDEX IF NOT EXISTS idx_events_type_created ON events (event_type, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_events_feed_created ON events (feed_id, created_at) WHERE feed_id <> ''",
		"CREATE INDEX IF NOT EXISTS idx_events_session_created ON events (session_id, created_at) WHERE session_id <> ''",

		// Candidate and feed listings skip soft-deleted rows
		"CREATE INDEX IF NOT EXISTS idx_questions_live_created ON questions (created_at) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_answers_live_question ON answers (question_id) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_comments_live_created ON comments (created_at) WHERE deleted_at IS NULL",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}
