package dto

import (
	"time"

	"github.com/skillarena/arena-api/internal/models"
)

// ModuleCreateRequest carries the fields to create a module.
type ModuleCreateRequest struct {
	EventID         uint   `json:"event_id" validate:"required"`
	Name            string `json:"name" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0"`
}

// ModuleUpdateRequest carries optional module updates. Status changes go
// through the dedicated status operation instead.
type ModuleUpdateRequest struct {
	Name            *string `json:"name"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,gt=0"`
}

// ModuleStatusRequest carries the requested lifecycle status.
type ModuleStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress finished scoring scoring_finished"`
}

// ModuleResponse is the list projection of a module.
type ModuleResponse struct {
	ID              uint      `json:"id"`
	EventID         uint      `json:"event_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewModuleResponse converts a model into its list projection.
func NewModuleResponse(module models.Module) ModuleResponse {
	return ModuleResponse{
		ID:              module.ID,
		EventID:         module.EventID,
		Name:            module.Name,
		DurationMinutes: module.DurationMinutes,
		Status:          module.Status,
		CreatedAt:       module.CreatedAt,
	}
}

// ModuleDetailResponse is the detail projection. ProblemAttachments and
// ScoringCriteria are nil when the viewer's role may not see them.
type ModuleDetailResponse struct {
	ModuleResponse
	ProblemAttachments []AttachmentResponse `json:"problem_attachments"`
	ScoringCriteria    *CriteriaResponse    `json:"scoring_criteria,omitempty"`
}
