package dto

import (
	"time"

	"github.com/skillarena/arena-api/internal/models"
)

// AttachmentResponse is the public projection of an uploaded file.
type AttachmentResponse struct {
	ID           uint      `json:"id"`
	ModuleID     uint      `json:"module_id"`
	ContestantID uint      `json:"contestant_id,omitempty"`
	Filename     string    `json:"filename"`
	Filepath     string    `json:"filepath"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewProblemAttachmentResponse converts a problem attachment model.
func NewProblemAttachmentResponse(attachment models.ProblemAttachment) AttachmentResponse {
	return AttachmentResponse{
		ID:        attachment.ID,
		ModuleID:  attachment.ModuleID,
		Filename:  attachment.Filename,
		Filepath:  attachment.Filepath,
		CreatedAt: attachment.CreatedAt,
	}
}

// NewAnswerAttachmentResponse converts an answer attachment model.
func NewAnswerAttachmentResponse(attachment models.AnswerAttachment) AttachmentResponse {
	return AttachmentResponse{
		ID:           attachment.ID,
		ModuleID:     attachment.ModuleID,
		ContestantID: attachment.ContestantID,
		Filename:     attachment.Filename,
		Filepath:     attachment.Filepath,
		CreatedAt:    attachment.CreatedAt,
	}
}
