package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Competition{},
		&models.Event{},
		&models.EventChiefJudge{},
		&models.EventJudge{},
		&models.EventContestant{},
		&models.JudgeContestantAssignment{},
		&models.Module{},
		&models.ProblemAttachment{},
		&models.AnswerAttachment{},
		&models.ScoringCriteria{},
		&models.ScoringItem{},
		&models.ScoringRecord{},
		&models.ScoringItemResult{},
		&models.ActivityLog{},
	)
}
