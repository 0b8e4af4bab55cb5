package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skillarena/arena-api/internal/models"
)

// ScoringRepository defines data operations for rubrics, scoring records and
// per-item results. The two score channels (judge, AI) are written through
// separate upserts that only ever assign their own columns, so concurrent
// writes on the two channels cannot clobber each other.
type ScoringRepository interface {
	GetCriteriaByModule(ctx context.Context, moduleID uint) (models.ScoringCriteria, error)
	CreateCriteria(ctx context.Context, criteria *models.ScoringCriteria) error
	CreateItem(ctx context.Context, item *models.ScoringItem) error
	GetItemByID(ctx context.Context, id uint) (models.ScoringItem, error)
	UpdateItem(ctx context.Context, item *models.ScoringItem) error
	DeleteItem(ctx context.Context, id uint) error

	// EnsureRecord creates the (module, contestant) record if absent and
	// returns it either way. Safe to call concurrently.
	EnsureRecord(ctx context.Context, moduleID, contestantID uint) (models.ScoringRecord, error)
	// CreateMissingRecords bulk-materializes records for the contestant set,
	// silently skipping pairs that already exist.
	CreateMissingRecords(ctx context.Context, moduleID uint, contestantIDs []uint) error
	ListRecords(ctx context.Context, moduleID uint) ([]models.ScoringRecord, error)
	GetRecord(ctx context.Context, moduleID, contestantID uint) (models.ScoringRecord, error)

	UpsertJudgeScore(ctx context.Context, recordID, itemID uint, score float64) (models.ScoringItemResult, error)
	UpsertAIResult(ctx context.Context, recordID, itemID uint, score *float64, suggestion *string) error
}

type scoringRepository struct {
	db *gorm.DB
}

// NewScoringRepository instantiates the repository.
func NewScoringRepository(db *gorm.DB) ScoringRepository {
	return &scoringRepository{db: db}
}

func (r *scoringRepository) GetCriteriaByModule(ctx context.Context, moduleID uint) (models.ScoringCriteria, error) {
	var criteria models.ScoringCriteria
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order")
		}).
		Where("module_id = ?", moduleID).
		First(&criteria).Error
	if err != nil {
		return models.ScoringCriteria{}, err
	}

	return criteria, nil
}

func (r *scoringRepository) CreateCriteria(ctx context.Context, criteria *models.ScoringCriteria) error {
	return r.db.WithContext(ctx).Create(criteria).Error
}

func (r *scoringRepository) CreateItem(ctx context.Context, item *models.ScoringItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *scoringRepository) GetItemByID(ctx context.Context, id uint) (models.ScoringItem, error) {
	var item models.ScoringItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return models.ScoringItem{}, err
	}
	return item, nil
}

func (r *scoringRepository) UpdateItem(ctx context.Context, item *models.ScoringItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *scoringRepository) DeleteItem(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.ScoringItem{}, id).Error
}

func (r *scoringRepository) EnsureRecord(ctx context.Context, moduleID, contestantID uint) (models.ScoringRecord, error) {
	record := models.ScoringRecord{ModuleID: moduleID, ContestantID: contestantID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "module_id"}, {Name: "contestant_id"}},
			DoNothing: true,
		}).
		Create(&record).Error
	if err != nil {
		return models.ScoringRecord{}, err
	}

	if record.ID != 0 {
		return record, nil
	}

	// Conflict path: the row already existed, fetch it.
	err = r.db.WithContext(ctx).
		Where("module_id = ? AND contestant_id = ?", moduleID, contestantID).
		First(&record).Error
	if err != nil {
		return models.ScoringRecord{}, err
	}

	return record, nil
}

func (r *scoringRepository) CreateMissingRecords(ctx context.Context, moduleID uint, contestantIDs []uint) error {
	for _, contestantID := range contestantIDs {
		record := models.ScoringRecord{ModuleID: moduleID, ContestantID: contestantID}
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "module_id"}, {Name: "contestant_id"}},
				DoNothing: true,
			}).
			Create(&record).Error
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *scoringRepository) ListRecords(ctx context.Context, moduleID uint) ([]models.ScoringRecord, error) {
	var records []models.ScoringRecord
	err := r.db.WithContext(ctx).
		Preload("ItemResults").
		Where("module_id = ?", moduleID).
		Find(&records).Error
	return records, err
}

func (r *scoringRepository) GetRecord(ctx context.Context, moduleID, contestantID uint) (models.ScoringRecord, error) {
	var record models.ScoringRecord
	err := r.db.WithContext(ctx).
		Preload("ItemResults").
		Where("module_id = ? AND contestant_id = ?", moduleID, contestantID).
		First(&record).Error
	if err != nil {
		return models.ScoringRecord{}, err
	}

	return record, nil
}

func (r *scoringRepository) UpsertJudgeScore(ctx context.Context, recordID, itemID uint, score float64) (models.ScoringItemResult, error) {
	result := models.ScoringItemResult{
		ScoringRecordID: recordID,
		ScoringItemID:   itemID,
		JudgeScore:      &score,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scoring_record_id"}, {Name: "scoring_item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"judge_score", "updated_at"}),
		}).
		Create(&result).Error
	if err != nil {
		return models.ScoringItemResult{}, err
	}

	// Re-read so the caller observes the merged row, AI channel included.
	var merged models.ScoringItemResult
	err = r.db.WithContext(ctx).
		Where("scoring_record_id = ? AND scoring_item_id = ?", recordID, itemID).
		First(&merged).Error
	if err != nil {
		return models.ScoringItemResult{}, err
	}

	return merged, nil
}

func (r *scoringRepository) UpsertAIResult(ctx context.Context, recordID, itemID uint, score *float64, suggestion *string) error {
	result := models.ScoringItemResult{
		ScoringRecordID: recordID,
		ScoringItemID:   itemID,
		AIScore:         score,
		AISuggestion:    suggestion,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scoring_record_id"}, {Name: "scoring_item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"ai_score", "ai_suggestion", "updated_at"}),
		}).
		Create(&result).Error
}
