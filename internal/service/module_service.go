package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/dto"
	"github.com/skillarena/arena-api/internal/models"
	"github.com/skillarena/arena-api/internal/repository"
)

// ModuleService covers module CRUD, role-scoped visibility and the lifecycle
// status operation.
type ModuleService interface {
	List(ctx context.Context, eventID *uint, actor Actor) ([]dto.ModuleResponse, error)
	Get(ctx context.Context, moduleID uint, actor Actor) (dto.ModuleDetailResponse, error)
	Create(ctx context.Context, req dto.ModuleCreateRequest, actor Actor) (dto.ModuleResponse, error)
	Update(ctx context.Context, moduleID uint, req dto.ModuleUpdateRequest, actor Actor) (dto.ModuleResponse, error)
	UpdateStatus(ctx context.Context, moduleID uint, status string, actor Actor) (dto.ModuleResponse, error)
	Delete(ctx context.Context, moduleID uint, actor Actor) error
}

type moduleService struct {
	modules     repository.ModuleRepository
	events      repository.EventRepository
	scoring     repository.ScoringRepository
	attachments repository.AttachmentRepository
	access      AccessService
	worker      *BackgroundWorker
	activity    ActivityRecorder
	logger      zerolog.Logger
}

// NewModuleService constructs the module service.
func NewModuleService(
	modules repository.ModuleRepository,
	events repository.EventRepository,
	scoring repository.ScoringRepository,
	attachments repository.AttachmentRepository,
	access AccessService,
	worker *BackgroundWorker,
	activity ActivityRecorder,
	logger zerolog.Logger,
) ModuleService {
	return &moduleService{
		modules:     modules,
		events:      events,
		scoring:     scoring,
		attachments: attachments,
		access:      access,
		worker:      worker,
		activity:    activity,
		logger:      logger.With().Str("component", "module_service").Logger(),
	}
}

func (s *moduleService) List(ctx context.Context, eventID *uint, actor Actor) ([]dto.ModuleResponse, error) {
	filter := repository.ModuleFilter{EventID: eventID}
	if !actor.IsAdmin() {
		filter.ViewerID = actor.ID
		filter.ViewerRole = actor.Role
	}
	// Contestants do not learn about modules before they start.
	if actor.Role == models.RoleContestant {
		filter.ExcludeStatus = models.ModuleStatusPending
	}

	modules, err := s.modules.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ModuleResponse, 0, len(modules))
	for _, module := range modules {
		responses = append(responses, dto.NewModuleResponse(module))
	}

	return responses, nil
}

func (s *moduleService) Get(ctx context.Context, moduleID uint, actor Actor) (dto.ModuleDetailResponse, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return dto.ModuleDetailResponse{}, err
	}

	ok, err := s.access.HasEventAccess(ctx, actor.ID, module.EventID, actor.Role)
	if err != nil {
		return dto.ModuleDetailResponse{}, err
	}
	if !ok {
		return dto.ModuleDetailResponse{}, ErrAccessDenied
	}

	// Pending modules stay invisible to contestants entirely.
	if actor.Role == models.RoleContestant && module.Status == models.ModuleStatusPending {
		return dto.ModuleDetailResponse{}, ErrModuleNotFound
	}

	detail := dto.ModuleDetailResponse{ModuleResponse: dto.NewModuleResponse(module)}

	if s.canSeeProblemAttachments(module, actor) {
		attachments, err := s.attachments.ListProblem(ctx, moduleID)
		if err != nil {
			return dto.ModuleDetailResponse{}, err
		}
		detail.ProblemAttachments = make([]dto.AttachmentResponse, 0, len(attachments))
		for _, attachment := range attachments {
			detail.ProblemAttachments = append(detail.ProblemAttachments, dto.NewProblemAttachmentResponse(attachment))
		}
	}

	if actor.Role == models.RoleAdmin || actor.Role == models.RoleChiefJudge {
		criteria, err := s.scoring.GetCriteriaByModule(ctx, moduleID)
		if err == nil {
			response := dto.NewCriteriaResponse(criteria)
			detail.ScoringCriteria = &response
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ModuleDetailResponse{}, err
		}
	}

	return detail, nil
}

func (s *moduleService) Create(ctx context.Context, req dto.ModuleCreateRequest, actor Actor) (dto.ModuleResponse, error) {
	if err := s.authorizeManage(ctx, req.EventID, actor); err != nil {
		return dto.ModuleResponse{}, err
	}

	if _, err := s.events.GetByID(ctx, req.EventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ModuleResponse{}, ErrEventNotFound
		}
		return dto.ModuleResponse{}, err
	}

	module := models.Module{
		EventID:         req.EventID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Status:          models.ModuleStatusPending,
	}
	if err := s.modules.Create(ctx, &module); err != nil {
		return dto.ModuleResponse{}, err
	}

	s.recordActivity(ctx, actor, "module.created", module.ID, nil)
	return dto.NewModuleResponse(module), nil
}

func (s *moduleService) Update(ctx context.Context, moduleID uint, req dto.ModuleUpdateRequest, actor Actor) (dto.ModuleResponse, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return dto.ModuleResponse{}, err
	}

	if err := s.authorizeManage(ctx, module.EventID, actor); err != nil {
		return dto.ModuleResponse{}, err
	}

	if req.Name != nil {
		module.Name = *req.Name
	}
	if req.DurationMinutes != nil {
		module.DurationMinutes = *req.DurationMinutes
	}

	if err := s.modules.Update(ctx, &module); err != nil {
		return dto.ModuleResponse{}, err
	}

	s.recordActivity(ctx, actor, "module.updated", module.ID, nil)
	return dto.NewModuleResponse(module), nil
}

// UpdateStatus overwrites the lifecycle status. On the transition to finished
// the scoring records for the event roster are materialized asynchronously;
// the status change itself does not wait for it.
func (s *moduleService) UpdateStatus(ctx context.Context, moduleID uint, status string, actor Actor) (dto.ModuleResponse, error) {
	if !models.ValidModuleStatus(status) {
		return dto.ModuleResponse{}, ErrInvalidStatus
	}

	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return dto.ModuleResponse{}, err
	}

	if err := s.authorizeManage(ctx, module.EventID, actor); err != nil {
		return dto.ModuleResponse{}, err
	}

	previous := module.Status
	updated, err := s.modules.UpdateStatus(ctx, moduleID, status)
	if err != nil {
		return dto.ModuleResponse{}, err
	}

	if status == models.ModuleStatusFinished && previous != models.ModuleStatusFinished {
		s.submitRecordMaterialization(updated)
	}

	s.recordActivity(ctx, actor, "module.status_changed", module.ID, map[string]interface{}{
		"from": previous,
		"to":   status,
	})

	return dto.NewModuleResponse(updated), nil
}

func (s *moduleService) Delete(ctx context.Context, moduleID uint, actor Actor) error {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return err
	}

	if !actor.IsAdmin() {
		return ErrAccessDenied
	}

	if err := s.modules.Delete(ctx, moduleID); err != nil {
		return err
	}

	s.recordActivity(ctx, actor, "module.deleted", module.ID, nil)
	return nil
}

// submitRecordMaterialization queues the roster-wide record creation. The
// upsert it runs is idempotent, so a retriggered transition is harmless.
func (s *moduleService) submitRecordMaterialization(module models.Module) {
	task := Task{
		Name: fmt.Sprintf("materialize-records-module-%d", module.ID),
		Run: func(ctx context.Context) error {
			contestants, err := s.events.ListContestants(ctx, module.EventID)
			if err != nil {
				return fmt.Errorf("list contestants for event %d: %w", module.EventID, err)
			}

			ids := make([]uint, 0, len(contestants))
			for _, contestant := range contestants {
				ids = append(ids, contestant.ID)
			}

			return s.scoring.CreateMissingRecords(ctx, module.ID, ids)
		},
	}

	if err := s.worker.Submit(task); err != nil {
		s.logger.Error().Err(err).Uint("module_id", module.ID).Msg("failed to queue record materialization")
	}
}

func (s *moduleService) loadModule(ctx context.Context, moduleID uint) (models.Module, error) {
	module, err := s.modules.GetByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Module{}, ErrModuleNotFound
		}
		return models.Module{}, err
	}
	return module, nil
}

// authorizeManage admits admins everywhere and chief judges on their own
// events.
func (s *moduleService) authorizeManage(ctx context.Context, eventID uint, actor Actor) error {
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleChiefJudge {
		return ErrAccessDenied
	}

	ok, err := s.access.HasEventAccess(ctx, actor.ID, eventID, actor.Role)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccessDenied
	}

	return nil
}

// canSeeProblemAttachments hides the problem statement until the module
// starts, except from the roles that authored it.
func (s *moduleService) canSeeProblemAttachments(module models.Module, actor Actor) bool {
	if actor.Role == models.RoleAdmin || actor.Role == models.RoleChiefJudge {
		return true
	}
	return module.Status != models.ModuleStatusPending
}

func (s *moduleService) recordActivity(ctx context.Context, actor Actor, action string, moduleID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	entry := ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "module",
		EntityID:   &moduleID,
		Metadata:   metadata,
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}
