package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/dto"
	"github.com/skillarena/arena-api/internal/models"
	"github.com/skillarena/arena-api/internal/repository"
)

// EventService covers event CRUD, rosters and judge assignments. Roster
// mutation is restricted to admins and the event's chief judges.
type EventService interface {
	List(ctx context.Context, competitionID *uint, actor Actor) ([]dto.EventResponse, error)
	Get(ctx context.Context, eventID uint, actor Actor) (dto.EventDetailResponse, error)
	Create(ctx context.Context, req dto.EventCreateRequest, actor Actor) (dto.EventResponse, error)
	Update(ctx context.Context, eventID uint, req dto.EventUpdateRequest, actor Actor) (dto.EventResponse, error)
	Delete(ctx context.Context, eventID uint, actor Actor) error

	AddToRoster(ctx context.Context, eventID uint, role string, userID uint, actor Actor) error
	RemoveFromRoster(ctx context.Context, eventID uint, role string, userID uint, actor Actor) error
	AssignContestant(ctx context.Context, eventID uint, req dto.JudgeAssignmentRequest, actor Actor) error
	UnassignContestant(ctx context.Context, eventID uint, req dto.JudgeAssignmentRequest, actor Actor) error
}

type eventService struct {
	events   repository.EventRepository
	users    repository.UserRepository
	access   AccessService
	activity ActivityRecorder
	logger   zerolog.Logger
}

// NewEventService constructs the event service.
func NewEventService(
	events repository.EventRepository,
	users repository.UserRepository,
	access AccessService,
	activity ActivityRecorder,
	logger zerolog.Logger,
) EventService {
	return &eventService{
		events:   events,
		users:    users,
		access:   access,
		activity: activity,
		logger:   logger.With().Str("component", "event_service").Logger(),
	}
}

func (s *eventService) List(ctx context.Context, competitionID *uint, actor Actor) ([]dto.EventResponse, error) {
	var (
		events []models.Event
		err    error
	)
	if actor.IsAdmin() {
		events, err = s.events.List(ctx, competitionID)
	} else {
		events, err = s.events.ListForUser(ctx, actor.ID, actor.Role, competitionID)
	}
	if err != nil {
		return nil, err
	}

	responses := make([]dto.EventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, dto.NewEventResponse(event))
	}

	return responses, nil
}

func (s *eventService) Get(ctx context.Context, eventID uint, actor Actor) (dto.EventDetailResponse, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return dto.EventDetailResponse{}, err
	}

	ok, err := s.access.HasEventAccess(ctx, actor.ID, eventID, actor.Role)
	if err != nil {
		return dto.EventDetailResponse{}, err
	}
	if !ok {
		return dto.EventDetailResponse{}, ErrAccessDenied
	}

	detail := dto.EventDetailResponse{EventResponse: dto.NewEventResponse(event)}

	for _, module := range event.Modules {
		// Contestants do not learn about modules before they start.
		if actor.Role == models.RoleContestant && module.Status == models.ModuleStatusPending {
			continue
		}
		detail.Modules = append(detail.Modules, dto.NewModuleResponse(module))
	}

	chiefJudges, err := s.events.ListChiefJudges(ctx, eventID)
	if err != nil {
		return dto.EventDetailResponse{}, err
	}
	judges, err := s.events.ListJudges(ctx, eventID)
	if err != nil {
		return dto.EventDetailResponse{}, err
	}
	contestants, err := s.events.ListContestants(ctx, eventID)
	if err != nil {
		return dto.EventDetailResponse{}, err
	}

	detail.ChiefJudges = userResponses(chiefJudges)
	detail.Judges = userResponses(judges)
	detail.Contestants = userResponses(contestants)

	return detail, nil
}

func (s *eventService) Create(ctx context.Context, req dto.EventCreateRequest, actor Actor) (dto.EventResponse, error) {
	if !actor.IsAdmin() {
		return dto.EventResponse{}, ErrAccessDenied
	}

	event := models.Event{
		CompetitionID: req.CompetitionID,
		Name:          req.Name,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
	}
	if err := s.events.Create(ctx, &event); err != nil {
		return dto.EventResponse{}, err
	}

	s.recordActivity(ctx, actor, "event.created", event.ID, nil)
	return dto.NewEventResponse(event), nil
}

func (s *eventService) Update(ctx context.Context, eventID uint, req dto.EventUpdateRequest, actor Actor) (dto.EventResponse, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return dto.EventResponse{}, err
	}

	if err := s.authorizeManage(ctx, eventID, actor); err != nil {
		return dto.EventResponse{}, err
	}

	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.StartTime != nil {
		event.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		event.EndTime = *req.EndTime
	}

	if err := s.events.Update(ctx, &event); err != nil {
		return dto.EventResponse{}, err
	}

	s.recordActivity(ctx, actor, "event.updated", eventID, nil)
	return dto.NewEventResponse(event), nil
}

func (s *eventService) Delete(ctx context.Context, eventID uint, actor Actor) error {
	if !actor.IsAdmin() {
		return ErrAccessDenied
	}

	if _, err := s.loadEvent(ctx, eventID); err != nil {
		return err
	}

	if err := s.events.Delete(ctx, eventID); err != nil {
		return err
	}

	s.recordActivity(ctx, actor, "event.deleted", eventID, nil)
	return nil
}

// AddToRoster adds a user to the event roster matching their role. The user's
// actual role must match the roster being modified.
func (s *eventService) AddToRoster(ctx context.Context, eventID uint, role string, userID uint, actor Actor) error {
	if err := s.authorizeManage(ctx, eventID, actor); err != nil {
		return err
	}
	if _, err := s.loadEvent(ctx, eventID); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Role != role {
		return ErrInvalidRole
	}

	switch role {
	case models.RoleChiefJudge:
		err = s.events.AddChiefJudge(ctx, eventID, userID)
	case models.RoleJudge:
		err = s.events.AddJudge(ctx, eventID, userID)
	case models.RoleContestant:
		err = s.events.AddContestant(ctx, eventID, userID)
	default:
		return ErrInvalidRole
	}
	if err != nil {
		return err
	}

	s.recordActivity(ctx, actor, "event.roster_added", eventID, map[string]interface{}{
		"user_id": userID,
		"role":    role,
	})
	return nil
}

func (s *eventService) RemoveFromRoster(ctx context.Context, eventID uint, role string, userID uint, actor Actor) error {
	if err := s.authorizeManage(ctx, eventID, actor); err != nil {
		return err
	}
	if _, err := s.loadEvent(ctx, eventID); err != nil {
		return err
	}

	var err error
	switch role {
	case models.RoleChiefJudge:
		err = s.events.RemoveChiefJudge(ctx, eventID, userID)
	case models.RoleJudge:
		err = s.events.RemoveJudge(ctx, eventID, userID)
	case models.RoleContestant:
		err = s.events.RemoveContestant(ctx, eventID, userID)
	default:
		return ErrInvalidRole
	}
	if err != nil {
		return err
	}

	s.recordActivity(ctx, actor, "event.roster_removed", eventID, map[string]interface{}{
		"user_id": userID,
		"role":    role,
	})
	return nil
}

// AssignContestant links a judge to a contestant. Both must already be on the
// event's rosters.
func (s *eventService) AssignContestant(ctx context.Context, eventID uint, req dto.JudgeAssignmentRequest, actor Actor) error {
	if err := s.authorizeManage(ctx, eventID, actor); err != nil {
		return err
	}
	if _, err := s.loadEvent(ctx, eventID); err != nil {
		return err
	}

	isJudge, err := s.events.HasJudge(ctx, eventID, req.JudgeID)
	if err != nil {
		return err
	}
	isContestant, err := s.events.HasContestant(ctx, eventID, req.ContestantID)
	if err != nil {
		return err
	}
	if !isJudge || !isContestant {
		return ErrInvalidRole
	}

	if err := s.events.AssignContestantToJudge(ctx, eventID, req.JudgeID, req.ContestantID); err != nil {
		return err
	}

	s.recordActivity(ctx, actor, "event.contestant_assigned", eventID, map[string]interface{}{
		"judge_id":      req.JudgeID,
		"contestant_id": req.ContestantID,
	})
	return nil
}

func (s *eventService) UnassignContestant(ctx context.Context, eventID uint, req dto.JudgeAssignmentRequest, actor Actor) error {
	if err := s.authorizeManage(ctx, eventID, actor); err != nil {
		return err
	}
	if _, err := s.loadEvent(ctx, eventID); err != nil {
		return err
	}

	if err := s.events.UnassignContestantFromJudge(ctx, eventID, req.JudgeID, req.ContestantID); err != nil {
		return err
	}

	s.recordActivity(ctx, actor, "event.contestant_unassigned", eventID, map[string]interface{}{
		"judge_id":      req.JudgeID,
		"contestant_id": req.ContestantID,
	})
	return nil
}

func (s *eventService) loadEvent(ctx context.Context, eventID uint) (models.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Event{}, ErrEventNotFound
		}
		return models.Event{}, err
	}
	return event, nil
}

func (s *eventService) authorizeManage(ctx context.Context, eventID uint, actor Actor) error {
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

func (s *eventService) recordActivity(ctx context.Context, actor Actor, action string, eventID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	entry := ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "event",
		EntityID:   &eventID,
		Metadata:   metadata,
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func userResponses(users []models.User) []dto.UserResponse {
	responses := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, dto.NewUserResponse(user))
	}
	return responses
}
