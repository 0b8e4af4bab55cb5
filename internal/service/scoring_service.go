package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/dto"
	"github.com/skillarena/arena-api/internal/models"
	"github.com/skillarena/arena-api/internal/repository"
)

// criteriaImportSchema validates a bulk rubric import document before any row
// is written.
const criteriaImportSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["items"],
	"properties": {
		"items": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["description", "evaluation_type", "max_score"],
				"properties": {
					"description": {"type": "string", "minLength": 1},
					"evaluation_type": {"type": "string", "enum": ["subjective", "objective"]},
					"max_score": {"type": "number", "exclusiveMinimum": 0},
					"sort_order": {"type": "integer", "minimum": 0}
				}
			}
		}
	}
}`

// ScoringService covers rubric authoring, the aggregate scoring view and
// judge score writes.
type ScoringService interface {
	GetCriteria(ctx context.Context, moduleID uint, actor Actor) (dto.CriteriaResponse, error)
	CreateCriteria(ctx context.Context, moduleID uint, items []dto.ScoringItemRequest, actor Actor) (dto.CriteriaResponse, error)
	ImportCriteria(ctx context.Context, moduleID uint, document []byte, actor Actor) (dto.CriteriaResponse, error)
	AddItem(ctx context.Context, moduleID uint, req dto.ScoringItemRequest, actor Actor) (dto.ScoringItemResponse, error)
	UpdateItem(ctx context.Context, moduleID, itemID uint, req dto.ScoringItemUpdateRequest, actor Actor) (dto.ScoringItemResponse, error)
	DeleteItem(ctx context.Context, moduleID, itemID uint, actor Actor) error

	GetScoringRecords(ctx context.Context, moduleID uint, actor Actor) ([]dto.ScoringRecordView, error)
	GetScoringRecord(ctx context.Context, moduleID, contestantID uint, actor Actor) (dto.ScoringRecordView, error)
	UpdateJudgeScore(ctx context.Context, moduleID, contestantID uint, req dto.JudgeScoreRequest, actor Actor) (dto.ItemResultResponse, error)
}

type scoringService struct {
	modules      repository.ModuleRepository
	events       repository.EventRepository
	scoring      repository.ScoringRepository
	access       AccessService
	cache        *RecordsCache
	feed         *ScoreFeed
	activity     ActivityRecorder
	sanitizer    *bluemonday.Policy
	importSchema *jsonschema.Schema
	logger       zerolog.Logger
}

// NewScoringService constructs the scoring service. The import schema is
// compiled once here; a compile failure is a programming error.
func NewScoringService(
	modules repository.ModuleRepository,
	events repository.EventRepository,
	scoring repository.ScoringRepository,
	access AccessService,
	cache *RecordsCache,
	feed *ScoreFeed,
	activity ActivityRecorder,
	logger zerolog.Logger,
) ScoringService {
	return &scoringService{
		modules:      modules,
		events:       events,
		scoring:      scoring,
		access:       access,
		cache:        cache,
		feed:         feed,
		activity:     activity,
		sanitizer:    bluemonday.StrictPolicy(),
		importSchema: jsonschema.MustCompileString("criteria-import.json", criteriaImportSchema),
		logger:       logger.With().Str("component", "scoring_service").Logger(),
	}
}

func (s *scoringService) GetCriteria(ctx context.Context, moduleID uint, actor Actor) (dto.CriteriaResponse, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return dto.CriteriaResponse{}, err
	}

	if err := s.authorizeCriteriaAccess(ctx, module.EventID, actor); err != nil {
		return dto.CriteriaResponse{}, err
	}

	criteria, err := s.scoring.GetCriteriaByModule(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CriteriaResponse{}, ErrCriteriaNotFound
		}
		return dto.CriteriaResponse{}, err
	}

	return dto.NewCriteriaResponse(criteria), nil
}

func (s *scoringService) CreateCriteria(ctx context.Context, moduleID uint, items []dto.ScoringItemRequest, actor Actor) (dto.CriteriaResponse, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return dto.CriteriaResponse{}, err
	}

	if err := s.authorizeCriteriaAccess(ctx, module.EventID, actor); err != nil {
		return dto.CriteriaResponse{}, err
	}

	if _, err := s.scoring.GetCriteriaByModule(ctx, moduleID); err == nil {
		return dto.CriteriaResponse{}, ErrCriteriaExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.CriteriaResponse{}, err
	}

	criteria := models.ScoringCriteria{ModuleID: moduleID}
	for i, item := range items {
		sortOrder := item.SortOrder
		if sortOrder == 0 {
			sortOrder = i
		}
		criteria.Items = append(criteria.Items, models.ScoringItem{
			Description:    s.sanitizer.Sanitize(item.Description),
			EvaluationType: item.EvaluationType,
			MaxScore:       item.MaxScore,
			SortOrder:      sortOrder,
		})
	}

	if err := s.scoring.CreateCriteria(ctx, &criteria); err != nil {
		return dto.CriteriaResponse{}, err
	}

	s.recordActivity(ctx, actor, "criteria.created", moduleID, map[string]interface{}{
		"criteria_id": criteria.ID,
		"item_count":  len(criteria.Items),
	})

	return dto.NewCriteriaResponse(criteria), nil
}

func (s *scoringService) ImportCriteria(ctx context.Context, moduleID uint, document []byte, actor Actor) (dto.CriteriaResponse, error) {
	var raw interface{}
	decoder := json.NewDecoder(bytes.NewReader(document))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return dto.CriteriaResponse{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	if err := s.importSchema.Validate(raw); err != nil {
		return dto.CriteriaResponse{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	var parsed struct {
		Items []dto.ScoringItemRequest `json:"items"`
	}
	if err := json.Unmarshal(document, &parsed); err != nil {
		return dto.CriteriaResponse{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	return s.CreateCriteria(ctx, moduleID, parsed.Items, actor)
}

func (s *scoringService) AddItem(ctx context.Context, moduleID uint, req dto.ScoringItemRequest, actor Actor) (dto.ScoringItemResponse, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return dto.ScoringItemResponse{}, err
	}

	if err := s.authorizeCriteriaAccess(ctx, module.EventID, actor); err != nil {
		return dto.ScoringItemResponse{}, err
	}

	criteria, err := s.scoring.GetCriteriaByModule(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScoringItemResponse{}, ErrCriteriaNotFound
		}
		return dto.ScoringItemResponse{}, err
	}

	item := models.ScoringItem{
		CriteriaID:     criteria.ID,
		Description:    s.sanitizer.Sanitize(req.Description),
		EvaluationType: req.EvaluationType,
		MaxScore:       req.MaxScore,
		SortOrder:      req.SortOrder,
	}
	if err := s.scoring.CreateItem(ctx, &item); err != nil {
		return dto.ScoringItemResponse{}, err
	}

	s.recordActivity(ctx, actor, "criteria.item_added", moduleID, map[string]interface{}{"item_id": item.ID})
	return itemResponse(item), nil
}

func (s *scoringService) UpdateItem(ctx context.Context, moduleID, itemID uint, req dto.ScoringItemUpdateRequest, actor Actor) (dto.ScoringItemResponse, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return dto.ScoringItemResponse{}, err
	}

	if err := s.authorizeCriteriaAccess(ctx, module.EventID, actor); err != nil {
		return dto.ScoringItemResponse{}, err
	}

	item, err := s.itemOfModule(ctx, moduleID, itemID)
	if err != nil {
		return dto.ScoringItemResponse{}, err
	}

	if req.Description != nil {
		item.Description = s.sanitizer.Sanitize(*req.Description)
	}
	if req.EvaluationType != nil {
		item.EvaluationType = *req.EvaluationType
	}
	if req.MaxScore != nil {
		item.MaxScore = *req.MaxScore
	}
	if req.SortOrder != nil {
		item.SortOrder = *req.SortOrder
	}

	if err := s.scoring.UpdateItem(ctx, &item); err != nil {
		return dto.ScoringItemResponse{}, err
	}

	s.recordActivity(ctx, actor, "criteria.item_updated", moduleID, map[string]interface{}{"item_id": item.ID})
	return itemResponse(item), nil
}

func (s *scoringService) DeleteItem(ctx context.Context, moduleID, itemID uint, actor Actor) error {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return err
	}

	if err := s.authorizeCriteriaAccess(ctx, module.EventID, actor); err != nil {
		return err
	}

	if _, err := s.itemOfModule(ctx, moduleID, itemID); err != nil {
		return err
	}

	if err := s.scoring.DeleteItem(ctx, itemID); err != nil {
		return err
	}

	s.recordActivity(ctx, actor, "criteria.item_deleted", moduleID, map[string]interface{}{"item_id": itemID})
	return nil
}

// GetScoringRecords returns one row per visible contestant, whether or not a
// scoring record exists yet. Rows without a record carry the full rubric with
// empty score cells so the caller always renders a complete grid.
func (s *scoringService) GetScoringRecords(ctx context.Context, moduleID uint, actor Actor) ([]dto.ScoringRecordView, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeRecordsAccess(ctx, module.EventID, actor); err != nil {
		return nil, err
	}

	// Judges see their assigned contestants only, so the shared cache would
	// leak rows between judges. Only the full-roster view is cached.
	fullRoster := actor.Role == models.RoleAdmin || actor.Role == models.RoleChiefJudge
	if fullRoster {
		if views, ok := s.cache.Get(ctx, moduleID); ok {
			return views, nil
		}
	}

	var roster []models.User
	if fullRoster {
		roster, err = s.events.ListContestants(ctx, module.EventID)
	} else {
		roster, err = s.events.ListAssignedContestants(ctx, module.EventID, actor.ID)
	}
	if err != nil {
		return nil, err
	}

	criteria, err := s.scoring.GetCriteriaByModule(ctx, moduleID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	records, err := s.scoring.ListRecords(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	recordsByContestant := make(map[uint]models.ScoringRecord, len(records))
	for _, record := range records {
		recordsByContestant[record.ContestantID] = record
	}

	views := make([]dto.ScoringRecordView, 0, len(roster))
	for _, contestant := range roster {
		record := recordsByContestant[contestant.ID]
		views = append(views, buildRecordView(contestant, record, criteria))
	}

	if fullRoster {
		s.cache.Set(ctx, moduleID, views)
	}

	return views, nil
}

func (s *scoringService) GetScoringRecord(ctx context.Context, moduleID, contestantID uint, actor Actor) (dto.ScoringRecordView, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return dto.ScoringRecordView{}, err
	}

	if err := s.authorizeRecordsAccess(ctx, module.EventID, actor); err != nil {
		return dto.ScoringRecordView{}, err
	}
	if actor.Role == models.RoleJudge {
		assigned, err := s.access.HasContestantAccess(ctx, actor.ID, contestantID, module.EventID)
		if err != nil {
			return dto.ScoringRecordView{}, err
		}
		if !assigned {
			return dto.ScoringRecordView{}, ErrAccessDenied
		}
	}

	record, err := s.scoring.GetRecord(ctx, moduleID, contestantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScoringRecordView{}, ErrRecordNotFound
		}
		return dto.ScoringRecordView{}, err
	}

	criteria, err := s.scoring.GetCriteriaByModule(ctx, moduleID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ScoringRecordView{}, err
	}

	contestant, err := s.contestantOf(ctx, module.EventID, contestantID)
	if err != nil {
		return dto.ScoringRecordView{}, err
	}

	return buildRecordView(contestant, record, criteria), nil
}

func (s *scoringService) UpdateJudgeScore(ctx context.Context, moduleID, contestantID uint, req dto.JudgeScoreRequest, actor Actor) (dto.ItemResultResponse, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return dto.ItemResultResponse{}, err
	}

	// Frozen wins over the not-open check so the caller learns the stronger
	// reason.
	if module.ScoringFrozen() {
		return dto.ItemResultResponse{}, ErrScoringFrozen
	}
	if !module.ScoringOpen() {
		return dto.ItemResultResponse{}, ErrModuleNotScoring
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleJudge:
		ok, err := s.access.HasEventAccess(ctx, actor.ID, module.EventID, actor.Role)
		if err != nil {
			return dto.ItemResultResponse{}, err
		}
		if !ok {
			return dto.ItemResultResponse{}, ErrAccessDenied
		}

		assigned, err := s.access.HasContestantAccess(ctx, actor.ID, contestantID, module.EventID)
		if err != nil {
			return dto.ItemResultResponse{}, err
		}
		if !assigned {
			return dto.ItemResultResponse{}, ErrAccessDenied
		}
	default:
		return dto.ItemResultResponse{}, ErrAccessDenied
	}

	item, err := s.itemOfModule(ctx, moduleID, req.ScoringItemID)
	if err != nil {
		return dto.ItemResultResponse{}, err
	}
	if req.JudgeScore > item.MaxScore {
		return dto.ItemResultResponse{}, ErrScoreOutOfRange
	}

	record, err := s.scoring.EnsureRecord(ctx, moduleID, contestantID)
	if err != nil {
		return dto.ItemResultResponse{}, err
	}

	result, err := s.scoring.UpsertJudgeScore(ctx, record.ID, item.ID, req.JudgeScore)
	if err != nil {
		return dto.ItemResultResponse{}, err
	}

	s.cache.Invalidate(ctx, moduleID)
	s.feed.Publish(ctx, ScoreEvent{Type: FeedScoreUpdated, ModuleID: moduleID, ContestantID: contestantID})
	s.recordActivity(ctx, actor, "score.judge_updated", moduleID, map[string]interface{}{
		"contestant_id":   contestantID,
		"scoring_item_id": item.ID,
		"judge_score":     req.JudgeScore,
	})

	return dto.NewItemResultResponse(result), nil
}

func (s *scoringService) loadModule(ctx context.Context, moduleID uint) (models.Module, error) {
	module, err := s.modules.GetByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Module{}, ErrModuleNotFound
		}
		return models.Module{}, err
	}
	return module, nil
}

// authorizeCriteriaAccess restricts rubric contents to admins and chief
// judges of the owning event.
func (s *scoringService) authorizeCriteriaAccess(ctx context.Context, eventID uint, actor Actor) error {
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleChiefJudge {
		return ErrAccessDenied
	}

	ok, err := s.access.HasEventAccess(ctx, actor.ID, eventID, actor.Role)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccessDenied
	}

	return nil
}

func (s *scoringService) authorizeRecordsAccess(ctx context.Context, eventID uint, actor Actor) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleChiefJudge, models.RoleJudge:
	default:
		return ErrAccessDenied
	}

	ok, err := s.access.HasEventAccess(ctx, actor.ID, eventID, actor.Role)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccessDenied
	}

	return nil
}

// itemOfModule loads an item and verifies it belongs to the module's rubric.
func (s *scoringService) itemOfModule(ctx context.Context, moduleID, itemID uint) (models.ScoringItem, error) {
	item, err := s.scoring.GetItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ScoringItem{}, ErrItemNotFound
		}
		return models.ScoringItem{}, err
	}

	criteria, err := s.scoring.GetCriteriaByModule(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ScoringItem{}, ErrItemNotFound
		}
		return models.ScoringItem{}, err
	}
	if item.CriteriaID != criteria.ID {
		return models.ScoringItem{}, ErrItemNotFound
	}

	return item, nil
}

func (s *scoringService) contestantOf(ctx context.Context, eventID, contestantID uint) (models.User, error) {
	contestants, err := s.events.ListContestants(ctx, eventID)
	if err != nil {
		return models.User{}, err
	}
	for _, contestant := range contestants {
		if contestant.ID == contestantID {
			return contestant, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

func (s *scoringService) recordActivity(ctx context.Context, actor Actor, action string, moduleID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	entry := ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "module",
		EntityID:   &moduleID,
		Metadata:   metadata,
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func itemResponse(item models.ScoringItem) dto.ScoringItemResponse {
	return dto.ScoringItemResponse{
		ID:             item.ID,
		Description:    item.Description,
		EvaluationType: item.EvaluationType,
		MaxScore:       item.MaxScore,
		SortOrder:      item.SortOrder,
	}
}

// buildRecordView merges a roster entry, an optional record and the rubric
// into one grid row. A zero-ID record yields stub cells for every item.
func buildRecordView(contestant models.User, record models.ScoringRecord, criteria models.ScoringCriteria) dto.ScoringRecordView {
	resultsByItem := make(map[uint]models.ScoringItemResult, len(record.ItemResults))
	for _, result := range record.ItemResults {
		resultsByItem[result.ScoringItemID] = result
	}

	cells := make([]dto.ItemResultView, 0, len(criteria.Items))
	for _, item := range criteria.Items {
		cell := dto.ItemResultView{
			ScoringItemID:  item.ID,
			Description:    item.Description,
			EvaluationType: item.EvaluationType,
			MaxScore:       item.MaxScore,
		}
		if result, ok := resultsByItem[item.ID]; ok {
			resultID := result.ID
			cell.ResultID = &resultID
			cell.JudgeScore = result.JudgeScore
			cell.AIScore = result.AIScore
			cell.AISuggestion = result.AISuggestion
		}
		cells = append(cells, cell)
	}

	return dto.ScoringRecordView{
		RecordID:       record.ID,
		ContestantID:   contestant.ID,
		Username:       contestant.Username,
		ContestantName: contestant.Name,
		ItemResults:    cells,
	}
}
