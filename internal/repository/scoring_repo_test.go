package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/models"
)

var repoDBCounter atomic.Int64

func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", repoDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Competition{},
		&models.Event{},
		&models.Module{},
		&models.ScoringCriteria{},
		&models.ScoringItem{},
		&models.ScoringRecord{},
		&models.ScoringItemResult{},
	))

	return db
}

func seedModule(t *testing.T, db *gorm.DB) models.Module {
	t.Helper()

	competition := models.Competition{Name: "regional 2026"}
	require.NoError(t, db.Create(&competition).Error)
	event := models.Event{CompetitionID: competition.ID, Name: "welding"}
	require.NoError(t, db.Create(&event).Error)
	module := models.Module{EventID: event.ID, Name: "Module A", DurationMinutes: 120, Status: models.ModuleStatusScoring}
	require.NoError(t, db.Create(&module).Error)
	return module
}

func seedItem(t *testing.T, db *gorm.DB, moduleID uint) models.ScoringItem {
	t.Helper()

	criteria := models.ScoringCriteria{ModuleID: moduleID}
	require.NoError(t, db.Create(&criteria).Error)
	item := models.ScoringItem{CriteriaID: criteria.ID, Description: "Seam", EvaluationType: models.EvaluationTypeObjective, MaxScore: 10}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func TestEnsureRecordIdempotent(t *testing.T) {
	db := newRepoDB(t)
	module := seedModule(t, db)
	repo := NewScoringRepository(db)
	ctx := context.Background()

	first, err := repo.EnsureRecord(ctx, module.ID, 7)
	require.NoError(t, err)
	second, err := repo.EnsureRecord(ctx, module.ID, 7)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&models.ScoringRecord{}).Count(&count)
	require.EqualValues(t, 1, count)
}

func TestCreateMissingRecordsSkipsExisting(t *testing.T) {
	db := newRepoDB(t)
	module := seedModule(t, db)
	repo := NewScoringRepository(db)
	ctx := context.Background()

	existing, err := repo.EnsureRecord(ctx, module.ID, 1)
	require.NoError(t, err)

	require.NoError(t, repo.CreateMissingRecords(ctx, module.ID, []uint{1, 2, 3}))
	require.NoError(t, repo.CreateMissingRecords(ctx, module.ID, []uint{1, 2, 3}))

	records, err := repo.ListRecords(ctx, module.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)

	kept, err := repo.GetRecord(ctx, module.ID, 1)
	require.NoError(t, err)
	require.Equal(t, existing.ID, kept.ID)
}

func TestUpsertChannelsStayIndependent(t *testing.T) {
	db := newRepoDB(t)
	module := seedModule(t, db)
	item := seedItem(t, db, module.ID)
	repo := NewScoringRepository(db)
	ctx := context.Background()

	record, err := repo.EnsureRecord(ctx, module.ID, 5)
	require.NoError(t, err)

	aiScore := 6.5
	suggestion := "porosity near the start"
	require.NoError(t, repo.UpsertAIResult(ctx, record.ID, item.ID, &aiScore, &suggestion))

	merged, err := repo.UpsertJudgeScore(ctx, record.ID, item.ID, 8)
	require.NoError(t, err)
	require.NotNil(t, merged.JudgeScore)
	require.InDelta(t, 8, *merged.JudgeScore, 0.001)
	require.NotNil(t, merged.AIScore)
	require.InDelta(t, 6.5, *merged.AIScore, 0.001)
	require.NotNil(t, merged.AISuggestion)

	// An AI rewrite must keep the judge's score untouched.
	newAI := 7.0
	require.NoError(t, repo.UpsertAIResult(ctx, record.ID, item.ID, &newAI, nil))

	stored, err := repo.GetRecord(ctx, module.ID, 5)
	require.NoError(t, err)
	require.Len(t, stored.ItemResults, 1)
	result := stored.ItemResults[0]
	require.NotNil(t, result.JudgeScore)
	require.InDelta(t, 8, *result.JudgeScore, 0.001)
	require.NotNil(t, result.AIScore)
	require.InDelta(t, 7.0, *result.AIScore, 0.001)

	var count int64
	db.Model(&models.ScoringItemResult{}).Count(&count)
	require.EqualValues(t, 1, count, "both channels share one result row per item")
}

func TestUpsertJudgeScoreCreatesResultRow(t *testing.T) {
	db := newRepoDB(t)
	module := seedModule(t, db)
	item := seedItem(t, db, module.ID)
	repo := NewScoringRepository(db)
	ctx := context.Background()

	record, err := repo.EnsureRecord(ctx, module.ID, 2)
	require.NoError(t, err)

	result, err := repo.UpsertJudgeScore(ctx, record.ID, item.ID, 9.5)
	require.NoError(t, err)
	require.Equal(t, record.ID, result.ScoringRecordID)
	require.Equal(t, item.ID, result.ScoringItemID)
	require.NotNil(t, result.JudgeScore)
	require.Nil(t, result.AIScore)
}
