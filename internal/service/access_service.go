package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/skillarena/arena-api/internal/models"
	"github.com/skillarena/arena-api/internal/repository"
)

// AccessService is the single decision point for event-level access. Admins
// always pass; every other role passes iff its assignment row links the user
// to the event. A missing row is an answer, never an error.
type AccessService interface {
	HasEventAccess(ctx context.Context, userID, eventID uint, role string) (bool, error)
	HasContestantAccess(ctx context.Context, judgeID, contestantID, eventID uint) (bool, error)
}

type accessService struct {
	events repository.EventRepository
	logger zerolog.Logger
}

// NewAccessService constructs the access decision service.
func NewAccessService(events repository.EventRepository, logger zerolog.Logger) AccessService {
	return &accessService{
		events: events,
		logger: logger.With().Str("component", "access_service").Logger(),
	}
}

func (s *accessService) HasEventAccess(ctx context.Context, userID, eventID uint, role string) (bool, error) {
	switch role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleChiefJudge:
		return s.events.HasChiefJudge(ctx, eventID, userID)
	case models.RoleJudge:
		return s.events.HasJudge(ctx, eventID, userID)
	case models.RoleContestant:
		return s.events.HasContestant(ctx, eventID, userID)
	default:
		return false, nil
	}
}

func (s *accessService) HasContestantAccess(ctx context.Context, judgeID, contestantID, eventID uint) (bool, error) {
	return s.events.HasJudgeContestantAssignment(ctx, eventID, judgeID, contestantID)
}
