package models

import "time"

// Competition is the top-level container grouping one or more events.
type Competition struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	StartTime time.Time `gorm:"not null" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Events    []Event   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"events,omitempty"`
}

// Event is a single contest discipline inside a competition. Access for every
// non-admin role is granted through the assignment rows below.
type Event struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	CompetitionID uint        `gorm:"not null;index" json:"competition_id"`
	Name          string      `gorm:"size:255;not null" json:"name"`
	StartTime     time.Time   `gorm:"not null" json:"start_time"`
	EndTime       time.Time   `gorm:"not null" json:"end_time"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Competition   Competition `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Modules       []Module    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"modules,omitempty"`
}

// EventChiefJudge links a chief judge to an event.
type EventChiefJudge struct {
	EventID      uint `gorm:"primaryKey;autoIncrement:false" json:"event_id"`
	ChiefJudgeID uint `gorm:"primaryKey;autoIncrement:false" json:"chief_judge_id"`
}

// EventJudge links a judge to an event.
type EventJudge struct {
	EventID uint `gorm:"primaryKey;autoIncrement:false" json:"event_id"`
	JudgeID uint `gorm:"primaryKey;autoIncrement:false" json:"judge_id"`
}

// EventContestant links a contestant to an event. The set of rows for one
// event is the roster used when scoring records are materialized.
type EventContestant struct {
	EventID      uint `gorm:"primaryKey;autoIncrement:false" json:"event_id"`
	ContestantID uint `gorm:"primaryKey;autoIncrement:false" json:"contestant_id"`
}

// JudgeContestantAssignment restricts which contestants a judge may view and
// score within an event.
type JudgeContestantAssignment struct {
	EventID      uint `gorm:"primaryKey;autoIncrement:false" json:"event_id"`
	JudgeID      uint `gorm:"primaryKey;autoIncrement:false" json:"judge_id"`
	ContestantID uint `gorm:"primaryKey;autoIncrement:false" json:"contestant_id"`
}
