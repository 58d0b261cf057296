package pkg

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/EduCore-2025/exam-engine/internal/config"
	"github.com/EduCore-2025/exam-engine/internal/models"
)

func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// AutoMigrate creates or updates the engine's tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Exam{},
		&models.Registration{},
		&models.ExamSession{},
		&models.SessionAnswer{},
		&models.ExamResult{},
		&models.Contest{},
		&models.ContestParticipant{},
		&models.ContestSubmission{},
		&models.ContestResult{},
		&models.Question{},
	)
}
