package dto

import (
	"time"

	"github.com/skillarena/arena-api/internal/models"
)

// EventCreateRequest carries the fields to create an event.
type EventCreateRequest struct {
	CompetitionID uint      `json:"competition_id" validate:"required"`
	Name          string    `json:"name" validate:"required"`
	StartTime     time.Time `json:"start_time" validate:"required"`
	EndTime       time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

// EventUpdateRequest carries optional event updates.
type EventUpdateRequest struct {
	Name      *string    `json:"name"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// EventResponse is the list projection of an event.
type EventResponse struct {
	ID            uint      `json:"id"`
	CompetitionID uint      `json:"competition_id"`
	Name          string    `json:"name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

// NewEventResponse converts a model into its list projection.
func NewEventResponse(event models.Event) EventResponse {
	return EventResponse{
		ID:            event.ID,
		CompetitionID: event.CompetitionID,
		Name:          event.Name,
		StartTime:     event.StartTime,
		EndTime:       event.EndTime,
	}
}

// EventDetailResponse is the detail projection, including rosters and
// modules.
type EventDetailResponse struct {
	EventResponse
	ChiefJudges []UserResponse   `json:"chief_judges"`
	Judges      []UserResponse   `json:"judges"`
	Contestants []UserResponse   `json:"contestants"`
	Modules     []ModuleResponse `json:"modules"`
}

// RosterRequest names the user to add to or remove from an event roster.
type RosterRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// JudgeAssignmentRequest links a judge to a contestant within an event.
type JudgeAssignmentRequest struct {
	JudgeID      uint `json:"judge_id" validate:"required"`
	ContestantID uint `json:"contestant_id" validate:"required"`
}
