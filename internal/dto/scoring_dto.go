package dto

import "github.com/skillarena/arena-api/internal/models"

// ScoringItemRequest carries the fields to add a rubric item.
type ScoringItemRequest struct {
	Description    string  `json:"description" validate:"required"`
	EvaluationType string  `json:"evaluation_type" validate:"required,oneof=subjective objective"`
	MaxScore       float64 `json:"max_score" validate:"required,gt=0"`
	SortOrder      int     `json:"sort_order"`
}

// ScoringItemUpdateRequest carries optional rubric item updates.
type ScoringItemUpdateRequest struct {
	Description    *string  `json:"description"`
	EvaluationType *string  `json:"evaluation_type" validate:"omitempty,oneof=subjective objective"`
	MaxScore       *float64 `json:"max_score" validate:"omitempty,gt=0"`
	SortOrder      *int     `json:"sort_order"`
}

// ScoringItemResponse is the public projection of a rubric item.
type ScoringItemResponse struct {
	ID             uint    `json:"id"`
	Description    string  `json:"description"`
	EvaluationType string  `json:"evaluation_type"`
	MaxScore       float64 `json:"max_score"`
	SortOrder      int     `json:"sort_order"`
}

// CriteriaResponse is the rubric with its items in evaluation order.
type CriteriaResponse struct {
	ID       uint                  `json:"id"`
	ModuleID uint                  `json:"module_id"`
	Items    []ScoringItemResponse `json:"items"`
}

// NewCriteriaResponse converts a criteria model, preserving item order.
func NewCriteriaResponse(criteria models.ScoringCriteria) CriteriaResponse {
	items := make([]ScoringItemResponse, 0, len(criteria.Items))
	for _, item := range criteria.Items {
		items = append(items, ScoringItemResponse{
			ID:             item.ID,
			Description:    item.Description,
			EvaluationType: item.EvaluationType,
			MaxScore:       item.MaxScore,
			SortOrder:      item.SortOrder,
		})
	}

	return CriteriaResponse{
		ID:       criteria.ID,
		ModuleID: criteria.ModuleID,
		Items:    items,
	}
}

// JudgeScoreRequest carries a judge's score for one rubric item.
type JudgeScoreRequest struct {
	ScoringItemID uint    `json:"scoring_item_id" validate:"required"`
	JudgeScore    float64 `json:"judge_score" validate:"gte=0"`
}

// ItemResultView is one score cell of the aggregate scoring view. ResultID
// is nil when no result row exists yet; rubric fields are always present so
// the caller can render the full rubric.
type ItemResultView struct {
	ResultID       *uint    `json:"id"`
	ScoringItemID  uint     `json:"scoring_item_id"`
	JudgeScore     *float64 `json:"judge_score"`
	AIScore        *float64 `json:"ai_score"`
	AISuggestion   *string  `json:"ai_suggestion"`
	Description    string   `json:"description"`
	EvaluationType string   `json:"evaluation_type"`
	MaxScore       float64  `json:"max_score"`
}

// ScoringRecordView is one roster row of the aggregate scoring view.
// RecordID is zero when the record has not been materialized yet.
type ScoringRecordView struct {
	RecordID       uint             `json:"id"`
	ContestantID   uint             `json:"contestant_id"`
	Username       string           `json:"username"`
	ContestantName string           `json:"contestant_name"`
	ItemResults    []ItemResultView `json:"item_results"`
}

// ItemResultResponse is the projection of a persisted score cell.
type ItemResultResponse struct {
	ID              uint     `json:"id"`
	ScoringRecordID uint     `json:"scoring_record_id"`
	ScoringItemID   uint     `json:"scoring_item_id"`
	JudgeScore      *float64 `json:"judge_score"`
	AIScore         *float64 `json:"ai_score"`
	AISuggestion    *string  `json:"ai_suggestion"`
}

// NewItemResultResponse converts a result model.
func NewItemResultResponse(result models.ScoringItemResult) ItemResultResponse {
	return ItemResultResponse{
		ID:              result.ID,
		ScoringRecordID: result.ScoringRecordID,
		ScoringItemID:   result.ScoringItemID,
		JudgeScore:      result.JudgeScore,
		AIScore:         result.AIScore,
		AISuggestion:    result.AISuggestion,
	}
}
