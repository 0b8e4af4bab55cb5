package models

import "time"

// ProblemAttachment is a file shared with every contestant of a module.
// Hidden from non-privileged roles while the module is still pending.
type ProblemAttachment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ModuleID  uint      `gorm:"not null;index" json:"module_id"`
	Filename  string    `gorm:"size:255;not null" json:"filename"`
	Filepath  string    `gorm:"size:512;not null" json:"filepath"`
	CreatedAt time.Time `json:"created_at"`
	Module    Module    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// AnswerAttachment is a file a contestant submitted for a module.
type AnswerAttachment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ModuleID     uint      `gorm:"not null;index:idx_answer_attachments_module_contestant" json:"module_id"`
	ContestantID uint      `gorm:"not null;index:idx_answer_attachments_module_contestant" json:"contestant_id"`
	Filename     string    `gorm:"size:255;not null" json:"filename"`
	Filepath     string    `gorm:"size:512;not null" json:"filepath"`
	CreatedAt    time.Time `json:"created_at"`
	Module       Module    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Contestant   User      `gorm:"foreignKey:ContestantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
