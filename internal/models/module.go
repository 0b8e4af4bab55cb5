package models

import "time"

// Module status values. The workflow is linear but the core treats a status
// change as a validated overwrite; no rollback transition exists.
const (
	ModuleStatusPending         = "pending"
	ModuleStatusInProgress      = "in_progress"
	ModuleStatusFinished        = "finished"
	ModuleStatusScoring         = "scoring"
	ModuleStatusScoringFinished = "scoring_finished"
)

// ValidModuleStatus reports whether the value is a known module status.
func ValidModuleStatus(status string) bool {
	switch status {
	case ModuleStatusPending, ModuleStatusInProgress, ModuleStatusFinished,
		ModuleStatusScoring, ModuleStatusScoringFinished:
		return true
	default:
		return false
	}
}

// Module is one timed unit of competition work within an event.
type Module struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	EventID         uint      `gorm:"not null;index" json:"event_id"`
	Name            string    `gorm:"size:255;not null" json:"name"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	Status          string    `gorm:"size:50;not null;default:pending" json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Event           Event     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// ScoringOpen reports whether judge scores may currently be recorded.
func (m Module) ScoringOpen() bool {
	return m.Status == ModuleStatusScoring
}

// ScoringFrozen reports whether scoring has been closed for good.
func (m Module) ScoringFrozen() bool {
	return m.Status == ModuleStatusScoringFinished
}
