package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/dto"
	"github.com/skillarena/arena-api/internal/models"
	"github.com/skillarena/arena-api/internal/repository"
)

func newEventService(t *testing.T, db *gorm.DB) EventService {
	t.Helper()

	events := repository.NewEventRepository(db)
	return NewEventService(
		events,
		repository.NewUserRepository(db),
		NewAccessService(events, testLogger()),
		nil,
		testLogger(),
	)
}

func TestEventListScopedToMembership(t *testing.T) {
	db := newTestDB(t)
	mine := createEvent(t, db, "welding")
	createEvent(t, db, "robotics")

	judge := createUser(t, db, "judge", models.RoleJudge)
	addJudge(t, db, mine.ID, judge.ID)

	svc := newEventService(t, db)

	scoped, err := svc.List(context.Background(), nil, Actor{ID: judge.ID, Role: models.RoleJudge})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, mine.ID, scoped[0].ID)

	all, err := svc.List(context.Background(), nil, Actor{ID: 99, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestEventDetailHidesPendingModulesFromContestants(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	createModule(t, db, event.ID, models.ModuleStatusPending)
	createModule(t, db, event.ID, models.ModuleStatusInProgress)

	contestant := createUser(t, db, "alice", models.RoleContestant)
	addContestant(t, db, event.ID, contestant.ID)

	svc := newEventService(t, db)

	detail, err := svc.Get(context.Background(), event.ID, Actor{ID: contestant.ID, Role: models.RoleContestant})
	require.NoError(t, err)
	require.Len(t, detail.Modules, 1)
	require.Equal(t, models.ModuleStatusInProgress, detail.Modules[0].Status)
	require.Len(t, detail.Contestants, 1)

	asAdmin, err := svc.Get(context.Background(), event.ID, Actor{ID: 99, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, asAdmin.Modules, 2)
}

func TestRosterRejectsRoleMismatch(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	judge := createUser(t, db, "judge", models.RoleJudge)

	svc := newEventService(t, db)
	admin := Actor{ID: 1, Role: models.RoleAdmin}

	// A judge account cannot join the contestant roster.
	err := svc.AddToRoster(context.Background(), event.ID, models.RoleContestant, judge.ID, admin)
	require.ErrorIs(t, err, ErrInvalidRole)

	require.NoError(t, svc.AddToRoster(context.Background(), event.ID, models.RoleJudge, judge.ID, admin))

	detail, err := svc.Get(context.Background(), event.ID, admin)
	require.NoError(t, err)
	require.Len(t, detail.Judges, 1)

	require.NoError(t, svc.RemoveFromRoster(context.Background(), event.ID, models.RoleJudge, judge.ID, admin))
	detail, err = svc.Get(context.Background(), event.ID, admin)
	require.NoError(t, err)
	require.Empty(t, detail.Judges)
}

func TestAssignContestantRequiresRosterMembership(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	judge := createUser(t, db, "judge", models.RoleJudge)
	contestant := createUser(t, db, "alice", models.RoleContestant)

	svc := newEventService(t, db)
	admin := Actor{ID: 1, Role: models.RoleAdmin}
	req := dto.JudgeAssignmentRequest{JudgeID: judge.ID, ContestantID: contestant.ID}

	// Both sides must already be on the event's rosters.
	err := svc.AssignContestant(context.Background(), event.ID, req, admin)
	require.ErrorIs(t, err, ErrInvalidRole)

	addJudge(t, db, event.ID, judge.ID)
	err = svc.AssignContestant(context.Background(), event.ID, req, admin)
	require.ErrorIs(t, err, ErrInvalidRole)

	addContestant(t, db, event.ID, contestant.ID)
	require.NoError(t, svc.AssignContestant(context.Background(), event.ID, req, admin))

	events := repository.NewEventRepository(db)
	access := NewAccessService(events, testLogger())
	assigned, err := access.HasContestantAccess(context.Background(), judge.ID, contestant.ID, event.ID)
	require.NoError(t, err)
	require.True(t, assigned)

	require.NoError(t, svc.UnassignContestant(context.Background(), event.ID, req, admin))
	assigned, err = access.HasContestantAccess(context.Background(), judge.ID, contestant.ID, event.ID)
	require.NoError(t, err)
	require.False(t, assigned)
}

func TestEventMutationsAdminOnly(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	chief := createUser(t, db, "chief", models.RoleChiefJudge)
	addChiefJudge(t, db, event.ID, chief.ID)

	svc := newEventService(t, db)

	err := svc.Delete(context.Background(), event.ID, Actor{ID: chief.ID, Role: models.RoleChiefJudge})
	require.ErrorIs(t, err, ErrAccessDenied)

	// Chief judges may rename their own event.
	name := "welding finals"
	updated, err := svc.Update(context.Background(), event.ID, dto.EventUpdateRequest{Name: &name}, Actor{ID: chief.ID, Role: models.RoleChiefJudge})
	require.NoError(t, err)
	require.Equal(t, "welding finals", updated.Name)

	require.NoError(t, svc.Delete(context.Background(), event.ID, Actor{ID: 1, Role: models.RoleAdmin}))
}
