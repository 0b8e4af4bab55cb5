package service

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/models"
)

var testDBCounter atomic.Int64

// newTestDB opens an isolated in-memory database with the full schema. The
// named shared-cache DSN keeps the database alive across pooled connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:servicetest%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
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
	))

	return db
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func createUser(t *testing.T, db *gorm.DB, username, role string) models.User {
	t.Helper()

	user := models.User{
		Username: username,
		Password: "not-a-real-hash",
		Name:     username,
		Role:     role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createEvent(t *testing.T, db *gorm.DB, name string) models.Event {
	t.Helper()

	competition := models.Competition{
		Name:      name + " competition",
		StartTime: time.Now(),
		EndTime:   time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, db.Create(&competition).Error)

	event := models.Event{
		CompetitionID: competition.ID,
		Name:          name,
		StartTime:     time.Now(),
		EndTime:       time.Now().Add(8 * time.Hour),
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

func createModule(t *testing.T, db *gorm.DB, eventID uint, status string) models.Module {
	t.Helper()

	module := models.Module{
		EventID:         eventID,
		Name:            "Module",
		DurationMinutes: 180,
		Status:          status,
	}
	require.NoError(t, db.Create(&module).Error)
	return module
}

func addContestant(t *testing.T, db *gorm.DB, eventID, userID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.EventContestant{EventID: eventID, ContestantID: userID}).Error)
}

func addJudge(t *testing.T, db *gorm.DB, eventID, userID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.EventJudge{EventID: eventID, JudgeID: userID}).Error)
}

func addChiefJudge(t *testing.T, db *gorm.DB, eventID, userID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.EventChiefJudge{EventID: eventID, ChiefJudgeID: userID}).Error)
}

func assignContestant(t *testing.T, db *gorm.DB, eventID, judgeID, contestantID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.JudgeContestantAssignment{
		EventID:      eventID,
		JudgeID:      judgeID,
		ContestantID: contestantID,
	}).Error)
}

func createCriteriaWithItems(t *testing.T, db *gorm.DB, moduleID uint, items ...models.ScoringItem) models.ScoringCriteria {
	t.Helper()

	criteria := models.ScoringCriteria{ModuleID: moduleID, Items: items}
	require.NoError(t, db.Create(&criteria).Error)
	return criteria
}
