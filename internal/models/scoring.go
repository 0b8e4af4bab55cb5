package models

import "time"

// Evaluation types for a scoring item. Objective items expect a numeric
// response from the automated evaluator; subjective items expect free text.
const (
	EvaluationTypeSubjective = "subjective"
	EvaluationTypeObjective  = "objective"
)

// ValidEvaluationType reports whether the value is a known evaluation type.
func ValidEvaluationType(value string) bool {
	return value == EvaluationTypeSubjective || value == EvaluationTypeObjective
}

// ScoringCriteria is the rubric attached to a module, at most one per module.
type ScoringCriteria struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	ModuleID  uint          `gorm:"not null;uniqueIndex" json:"module_id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Module    Module        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Items     []ScoringItem `gorm:"foreignKey:CriteriaID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items"`
}

// ScoringItem is one gradable line entry of a rubric. SortOrder defines both
// the display order and the order the automated evaluator walks the items in.
type ScoringItem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CriteriaID     uint      `gorm:"not null;index" json:"criteria_id"`
	Description    string    `gorm:"type:text;not null" json:"description"`
	EvaluationType string    `gorm:"size:50;not null" json:"evaluation_type"`
	MaxScore       float64   `gorm:"not null" json:"max_score"`
	SortOrder      int       `gorm:"default:0" json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ScoringRecord is the per-(module, contestant) scoring container. The
// composite unique index makes repeated materialization idempotent.
type ScoringRecord struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	ModuleID     uint                `gorm:"not null;uniqueIndex:idx_scoring_records_module_contestant" json:"module_id"`
	ContestantID uint                `gorm:"not null;uniqueIndex:idx_scoring_records_module_contestant" json:"contestant_id"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Module       Module              `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Contestant   User                `gorm:"foreignKey:ContestantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ItemResults  []ScoringItemResult `gorm:"foreignKey:ScoringRecordID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"item_results,omitempty"`
}

// ScoringItemResult is the score cell for one (record, item) pair. The judge
// channel and the AI channel are independent: an upsert on one channel must
// never touch the columns of the other.
type ScoringItemResult struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ScoringRecordID uint      `gorm:"not null;uniqueIndex:idx_scoring_item_results_record_item" json:"scoring_record_id"`
	ScoringItemID   uint      `gorm:"not null;uniqueIndex:idx_scoring_item_results_record_item" json:"scoring_item_id"`
	JudgeScore      *float64  `json:"judge_score"`
	AIScore         *float64  `gorm:"column:ai_score" json:"ai_score"`
	AISuggestion    *string   `gorm:"column:ai_suggestion;type:text" json:"ai_suggestion"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
