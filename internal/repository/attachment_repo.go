package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/models"
)

// AttachmentRepository defines data operations for problem and answer
// attachments.
type AttachmentRepository interface {
	ListProblem(ctx context.Context, moduleID uint) ([]models.ProblemAttachment, error)
	CreateProblem(ctx context.Context, attachment *models.ProblemAttachment) error
	GetProblemByID(ctx context.Context, id uint) (models.ProblemAttachment, error)
	DeleteProblem(ctx context.Context, id uint) error

	ListAnswers(ctx context.Context, moduleID, contestantID uint) ([]models.AnswerAttachment, error)
	CreateAnswer(ctx context.Context, attachment *models.AnswerAttachment) error
	GetAnswerByID(ctx context.Context, id uint) (models.AnswerAttachment, error)
	DeleteAnswer(ctx context.Context, id uint) error
}

type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository instantiates the repository.
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) ListProblem(ctx context.Context, moduleID uint) ([]models.ProblemAttachment, error) {
	var attachments []models.ProblemAttachment
	err := r.db.WithContext(ctx).
		Where("module_id = ?", moduleID).
		Order("created_at").
		Find(&attachments).Error
	return attachments, err
}

func (r *attachmentRepository) CreateProblem(ctx context.Context, attachment *models.ProblemAttachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *attachmentRepository) GetProblemByID(ctx context.Context, id uint) (models.ProblemAttachment, error) {
	var attachment models.ProblemAttachment
	if err := r.db.WithContext(ctx).First(&attachment, id).Error; err != nil {
		return models.ProblemAttachment{}, err
	}
	return attachment, nil
}

func (r *attachmentRepository) DeleteProblem(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.ProblemAttachment{}, id).Error
}

func (r *attachmentRepository) ListAnswers(ctx context.Context, moduleID, contestantID uint) ([]models.AnswerAttachment, error) {
	query := r.db.WithContext(ctx).Where("module_id = ?", moduleID)
	if contestantID != 0 {
		query = query.Where("contestant_id = ?", contestantID)
	}

	var attachments []models.AnswerAttachment
	err := query.Order("created_at").Find(&attachments).Error
	return attachments, err
}

func (r *attachmentRepository) CreateAnswer(ctx context.Context, attachment *models.AnswerAttachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *attachmentRepository) GetAnswerByID(ctx context.Context, id uint) (models.AnswerAttachment, error) {
	var attachment models.AnswerAttachment
	if err := r.db.WithContext(ctx).First(&attachment, id).Error; err != nil {
		return models.AnswerAttachment{}, err
	}
	return attachment, nil
}

func (r *attachmentRepository) DeleteAnswer(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.AnswerAttachment{}, id).Error
}
