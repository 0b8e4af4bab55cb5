package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/models"
)

// ModuleFilter narrows module queries. Viewer fields drive the role-scoped
// visibility: contestants never see pending modules.
type ModuleFilter struct {
	EventID       *uint
	ViewerID      uint
	ViewerRole    string
	ExcludeStatus string
}

// ModuleRepository defines data operations for modules.
type ModuleRepository interface {
	List(ctx context.Context, filter ModuleFilter) ([]models.Module, error)
	GetByID(ctx context.Context, id uint) (models.Module, error)
	Create(ctx context.Context, module *models.Module) error
	Update(ctx context.Context, module *models.Module) error
	UpdateStatus(ctx context.Context, id uint, status string) (models.Module, error)
	Delete(ctx context.Context, id uint) error
}

type moduleRepository struct {
	db *gorm.DB
}

// NewModuleRepository instantiates the repository.
func NewModuleRepository(db *gorm.DB) ModuleRepository {
	return &moduleRepository{db: db}
}

func (r *moduleRepository) List(ctx context.Context, filter ModuleFilter) ([]models.Module, error) {
	query := r.db.WithContext(ctx).Model(&models.Module{})

	switch filter.ViewerRole {
	case models.RoleChiefJudge:
		query = query.Where("event_id IN (?)", r.db.Model(&models.EventChiefJudge{}).Select("event_id").Where("chief_judge_id = ?", filter.ViewerID))
	case models.RoleJudge:
		query = query.Where("event_id IN (?)", r.db.Model(&models.EventJudge{}).Select("event_id").Where("judge_id = ?", filter.ViewerID))
	case models.RoleContestant:
		query = query.Where("event_id IN (?)", r.db.Model(&models.EventContestant{}).Select("event_id").Where("contestant_id = ?", filter.ViewerID))
	}

	if filter.ExcludeStatus != "" {
		query = query.Where("status <> ?", filter.ExcludeStatus)
	}

	if filter.EventID != nil {
		query = query.Where("event_id = ?", *filter.EventID)
	}

	var modules []models.Module
	if err := query.Order("created_at").Find(&modules).Error; err != nil {
		return nil, err
	}

	return modules, nil
}

func (r *moduleRepository) GetByID(ctx context.Context, id uint) (models.Module, error) {
	var module models.Module
	if err := r.db.WithContext(ctx).First(&module, id).Error; err != nil {
		return models.Module{}, err
	}

	return module, nil
}

func (r *moduleRepository) Create(ctx context.Context, module *models.Module) error {
	return r.db.WithContext(ctx).Create(module).Error
}

func (r *moduleRepository) Update(ctx context.Context, module *models.Module) error {
	return r.db.WithContext(ctx).Save(module).Error
}

func (r *moduleRepository) UpdateStatus(ctx context.Context, id uint, status string) (models.Module, error) {
	var module models.Module
	if err := r.db.WithContext(ctx).First(&module, id).Error; err != nil {
		return models.Module{}, err
	}

	module.Status = status
	if err := r.db.WithContext(ctx).Save(&module).Error; err != nil {
		return models.Module{}, err
	}

	return module, nil
}

func (r *moduleRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Module{}, id).Error
}
