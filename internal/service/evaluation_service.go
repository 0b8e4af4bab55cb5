package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/models"
	"github.com/skillarena/arena-api/internal/observability"
	"github.com/skillarena/arena-api/internal/repository"
	"github.com/skillarena/arena-api/pkg/ai"
)

// EvaluationService triggers automated evaluation runs. Both entry points
// return as soon as the run is admitted and queued; the run itself executes
// on the background worker and is observable only through its side effects.
type EvaluationService interface {
	TriggerModule(ctx context.Context, moduleID uint, actor Actor) error
	TriggerContestant(ctx context.Context, moduleID, contestantID uint, actor Actor) error
}

type evaluationService struct {
	modules     repository.ModuleRepository
	events      repository.EventRepository
	scoring     repository.ScoringRepository
	attachments repository.AttachmentRepository
	access      AccessService
	registry    *ai.Registry
	tracker     *EvaluationTracker
	worker      *BackgroundWorker
	cache       *RecordsCache
	feed        *ScoreFeed
	activity    ActivityRecorder
	runTimeout  time.Duration
	logger      zerolog.Logger
}

// NewEvaluationService constructs the evaluation orchestrator.
func NewEvaluationService(
	modules repository.ModuleRepository,
	events repository.EventRepository,
	scoring repository.ScoringRepository,
	attachments repository.AttachmentRepository,
	access AccessService,
	registry *ai.Registry,
	tracker *EvaluationTracker,
	worker *BackgroundWorker,
	cache *RecordsCache,
	feed *ScoreFeed,
	activity ActivityRecorder,
	runTimeout time.Duration,
	logger zerolog.Logger,
) EvaluationService {
	if runTimeout <= 0 {
		runTimeout = 10 * time.Minute
	}

	return &evaluationService{
		modules:     modules,
		events:      events,
		scoring:     scoring,
		attachments: attachments,
		access:      access,
		registry:    registry,
		tracker:     tracker,
		worker:      worker,
		cache:       cache,
		feed:        feed,
		activity:    activity,
		runTimeout:  runTimeout,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
	}
}

func (s *evaluationService) TriggerModule(ctx context.Context, moduleID uint, actor Actor) error {
	module, err := s.modules.GetByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrModuleNotFound
		}
		return err
	}

	if err := s.authorizeTrigger(ctx, module.EventID, actor, false); err != nil {
		return err
	}

	if !s.tracker.TryStart(moduleID, wholeModuleToken) {
		return ErrEvaluationInProgress
	}

	task := Task{
		Name: fmt.Sprintf("evaluate-module-%d", moduleID),
		Run: func(ctx context.Context) error {
			defer s.tracker.End(moduleID, wholeModuleToken)
			return s.runModule(ctx, module)
		},
	}

	if err := s.worker.Submit(task); err != nil {
		s.tracker.End(moduleID, wholeModuleToken)
		return err
	}

	observability.EvaluationsQueued().Inc()
	s.recordTrigger(ctx, actor, "evaluation.module_triggered", moduleID, nil)
	return nil
}

func (s *evaluationService) TriggerContestant(ctx context.Context, moduleID, contestantID uint, actor Actor) error {
	module, err := s.modules.GetByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrModuleNotFound
		}
		return err
	}

	if err := s.authorizeTrigger(ctx, module.EventID, actor, true); err != nil {
		return err
	}

	if !s.tracker.TryStart(moduleID, contestantID) {
		return ErrEvaluationInProgress
	}

	task := Task{
		Name: fmt.Sprintf("evaluate-module-%d-contestant-%d", moduleID, contestantID),
		Run: func(ctx context.Context) error {
			defer s.tracker.End(moduleID, contestantID)
			return s.runContestant(ctx, module, contestantID)
		},
	}

	if err := s.worker.Submit(task); err != nil {
		s.tracker.End(moduleID, contestantID)
		return err
	}

	observability.EvaluationsQueued().Inc()
	s.recordTrigger(ctx, actor, "evaluation.contestant_triggered", moduleID, &contestantID)
	return nil
}

// authorizeTrigger admits admins and chief judges; judges may additionally
// trigger single-contestant runs.
func (s *evaluationService) authorizeTrigger(ctx context.Context, eventID uint, actor Actor, allowJudge bool) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleChiefJudge:
	case models.RoleJudge:
		if !allowJudge {
			return ErrAccessDenied
		}
	default:
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

// runModule evaluates every contestant of the owning event. Failures in one
// contestant are logged and the loop continues; only setup failures abort
// the run.
func (s *evaluationService) runModule(parent context.Context, module models.Module) error {
	ctx, cancel := context.WithTimeout(parent, s.runTimeout)
	defer cancel()

	tracer := otel.Tracer("github.com/skillarena/arena-api/internal/service/evaluation")
	ctx, span := tracer.Start(ctx, "evaluation.module")
	span.SetAttributes(attribute.Int64("module_id", int64(module.ID)))
	defer span.End()

	setup, ok, err := s.loadRunSetup(ctx, module)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "setup_failed")
		return err
	}
	if !ok {
		return nil
	}

	contestants, err := s.events.ListContestants(ctx, module.EventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "roster_load_failed")
		return fmt.Errorf("list contestants for event %d: %w", module.EventID, err)
	}

	for _, contestant := range contestants {
		if err := s.evaluateContestant(ctx, module, contestant.ID, setup); err != nil {
			// Partial-failure isolation: log and move on to the next
			// contestant.
			s.logger.Error().Err(err).
				Uint("module_id", module.ID).
				Uint("contestant_id", contestant.ID).
				Msg("contestant evaluation failed")
		}
	}

	s.cache.Invalidate(ctx, module.ID)
	s.feed.Publish(ctx, ScoreEvent{Type: FeedModuleEvaluated, ModuleID: module.ID})
	s.logger.Info().Uint("module_id", module.ID).Msg("module evaluation completed")
	return nil
}

func (s *evaluationService) runContestant(parent context.Context, module models.Module, contestantID uint) error {
	ctx, cancel := context.WithTimeout(parent, s.runTimeout)
	defer cancel()

	tracer := otel.Tracer("github.com/skillarena/arena-api/internal/service/evaluation")
	ctx, span := tracer.Start(ctx, "evaluation.contestant")
	span.SetAttributes(
		attribute.Int64("module_id", int64(module.ID)),
		attribute.Int64("contestant_id", int64(contestantID)),
	)
	defer span.End()

	setup, ok, err := s.loadRunSetup(ctx, module)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "setup_failed")
		return err
	}
	if !ok {
		return nil
	}

	if err := s.evaluateContestant(ctx, module, contestantID, setup); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation_failed")
		return err
	}

	s.cache.Invalidate(ctx, module.ID)
	s.feed.Publish(ctx, ScoreEvent{Type: FeedContestantEvaluated, ModuleID: module.ID, ContestantID: contestantID})
	s.logger.Info().Uint("module_id", module.ID).Uint("contestant_id", contestantID).Msg("contestant evaluation completed")
	return nil
}

type runSetup struct {
	criteria           ai.Criteria
	problemAttachments []ai.Attachment
}

// loadRunSetup resolves the strategy preconditions. A missing strategy or
// missing criteria ends the run cleanly: ok is false and err is nil.
func (s *evaluationService) loadRunSetup(ctx context.Context, module models.Module) (runSetup, bool, error) {
	if !s.registry.HasEvaluator(module.ID) {
		s.logger.Info().Uint("module_id", module.ID).Msg("no evaluation strategy registered, skipping run")
		return runSetup{}, false, nil
	}

	criteria, err := s.scoring.GetCriteriaByModule(ctx, module.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Info().Uint("module_id", module.ID).Msg("no scoring criteria defined, skipping run")
			return runSetup{}, false, nil
		}
		return runSetup{}, false, fmt.Errorf("load criteria for module %d: %w", module.ID, err)
	}

	problem, err := s.attachments.ListProblem(ctx, module.ID)
	if err != nil {
		return runSetup{}, false, fmt.Errorf("load problem attachments for module %d: %w", module.ID, err)
	}

	return runSetup{
		criteria:           criteriaToAI(criteria),
		problemAttachments: problemAttachmentsToAI(problem),
	}, true, nil
}

// evaluateContestant runs the registered strategy for one contestant and
// persists the per-item results on the AI channel only.
func (s *evaluationService) evaluateContestant(ctx context.Context, module models.Module, contestantID uint, setup runSetup) error {
	answers, err := s.attachments.ListAnswers(ctx, module.ID, contestantID)
	if err != nil {
		return fmt.Errorf("load answer attachments: %w", err)
	}
	if len(answers) == 0 {
		s.logger.Info().
			Uint("module_id", module.ID).
			Uint("contestant_id", contestantID).
			Msg("no answer attachments, skipping contestant")
		return nil
	}

	results, err := s.registry.Evaluate(ctx, module.ID, setup.criteria, setup.problemAttachments, answerAttachmentsToAI(answers))
	if err != nil {
		return err
	}
	if results == nil {
		return nil
	}

	record, err := s.scoring.EnsureRecord(ctx, module.ID, contestantID)
	if err != nil {
		return fmt.Errorf("ensure scoring record: %w", err)
	}

	for _, result := range results {
		if err := s.scoring.UpsertAIResult(ctx, record.ID, result.ScoringItemID, result.Score, result.Suggestion); err != nil {
			return fmt.Errorf("persist result for item %d: %w", result.ScoringItemID, err)
		}
	}

	return nil
}

func (s *evaluationService) recordTrigger(ctx context.Context, actor Actor, action string, moduleID uint, contestantID *uint) {
	if s.activity == nil {
		return
	}

	metadata := map[string]interface{}{"module_id": moduleID}
	if contestantID != nil {
		metadata["contestant_id"] = *contestantID
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
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record evaluation trigger")
	}
}

func criteriaToAI(criteria models.ScoringCriteria) ai.Criteria {
	items := make([]ai.CriteriaItem, 0, len(criteria.Items))
	for _, item := range criteria.Items {
		items = append(items, ai.CriteriaItem{
			ID:             item.ID,
			Description:    item.Description,
			EvaluationType: item.EvaluationType,
			MaxScore:       item.MaxScore,
			SortOrder:      item.SortOrder,
		})
	}

	return ai.Criteria{ID: criteria.ID, ModuleID: criteria.ModuleID, Items: items}
}

func problemAttachmentsToAI(attachments []models.ProblemAttachment) []ai.Attachment {
	converted := make([]ai.Attachment, 0, len(attachments))
	for _, attachment := range attachments {
		converted = append(converted, ai.Attachment{
			ID:       attachment.ID,
			Filename: attachment.Filename,
			Filepath: attachment.Filepath,
		})
	}
	return converted
}

func answerAttachmentsToAI(attachments []models.AnswerAttachment) []ai.Attachment {
	converted := make([]ai.Attachment, 0, len(attachments))
	for _, attachment := range attachments {
		converted = append(converted, ai.Attachment{
			ID:           attachment.ID,
			ContestantID: attachment.ContestantID,
			Filename:     attachment.Filename,
			Filepath:     attachment.Filepath,
		})
	}
	return converted
}
