package ai

import "context"

// Criteria is the rubric handed to an evaluation strategy.
type Criteria struct {
	ID       uint
	ModuleID uint
	Items    []CriteriaItem
}

// CriteriaItem is a single gradable entry, listed in evaluation order.
type CriteriaItem struct {
	ID             uint
	Description    string
	EvaluationType string
	MaxScore       float64
	SortOrder      int
}

// Attachment points at an uploaded file by its storage path.
type Attachment struct {
	ID           uint
	ContestantID uint
	Filename     string
	Filepath     string
}

// ItemResult is the per-item outcome of a strategy run. Score and Suggestion
// are both optional; objective items fill Score, subjective items Suggestion.
type ItemResult struct {
	ScoringItemID uint     `json:"scoring_item_id"`
	Score         *float64 `json:"ai_score"`
	Suggestion    *string  `json:"ai_suggestion"`
}

// Strategy grades one contestant's answer attachments against the rubric.
// Implementations walk the criteria items in their sort order because item
// descriptions may carry sequential context such as image numbers.
type Strategy func(ctx context.Context, criteria Criteria, problemAttachments, answerAttachments []Attachment) ([]ItemResult, error)

// VisionRequest carries one image and the prompt to grade it with.
type VisionRequest struct {
	ImageData []byte
	MIMEType  string
	Prompt    string
	Objective bool
}

// VisionModel is an external model capable of scoring an image against a
// textual prompt. Objective requests expect a bare numeric response.
type VisionModel interface {
	Evaluate(ctx context.Context, req VisionRequest) (string, error)
}
