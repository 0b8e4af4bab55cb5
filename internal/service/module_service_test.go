package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/dto"
	"github.com/skillarena/arena-api/internal/models"
	"github.com/skillarena/arena-api/internal/repository"
)

func newModuleService(t *testing.T, db *gorm.DB, worker *BackgroundWorker) ModuleService {
	t.Helper()

	events := repository.NewEventRepository(db)
	return NewModuleService(
		repository.NewModuleRepository(db),
		events,
		repository.NewScoringRepository(db),
		repository.NewAttachmentRepository(db),
		NewAccessService(events, testLogger()),
		worker,
		nil,
		testLogger(),
	)
}

func TestModuleListHidesPendingFromContestants(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	createModule(t, db, event.ID, models.ModuleStatusPending)
	visible := createModule(t, db, event.ID, models.ModuleStatusInProgress)

	contestant := createUser(t, db, "alice", models.RoleContestant)
	addContestant(t, db, event.ID, contestant.ID)

	svc := newModuleService(t, db, nil)

	modules, err := svc.List(context.Background(), nil, Actor{ID: contestant.ID, Role: models.RoleContestant})
	require.NoError(t, err)
	require.Len(t, modules, 1)
	require.Equal(t, visible.ID, modules[0].ID)

	all, err := svc.List(context.Background(), nil, Actor{ID: 99, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestModuleGetPendingContestantNotFound(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	pending := createModule(t, db, event.ID, models.ModuleStatusPending)

	contestant := createUser(t, db, "alice", models.RoleContestant)
	addContestant(t, db, event.ID, contestant.ID)

	svc := newModuleService(t, db, nil)

	// A pending module must be indistinguishable from a nonexistent one.
	_, err := svc.Get(context.Background(), pending.ID, Actor{ID: contestant.ID, Role: models.RoleContestant})
	require.ErrorIs(t, err, ErrModuleNotFound)

	detail, err := svc.Get(context.Background(), pending.ID, Actor{ID: 99, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, pending.ID, detail.ID)
}

func TestModuleGetCriteriaVisibility(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	module := createModule(t, db, event.ID, models.ModuleStatusInProgress)
	createCriteriaWithItems(t, db, module.ID,
		models.ScoringItem{Description: "Item", EvaluationType: models.EvaluationTypeObjective, MaxScore: 10},
	)

	judge := createUser(t, db, "judge", models.RoleJudge)
	addJudge(t, db, event.ID, judge.ID)

	svc := newModuleService(t, db, nil)

	asJudge, err := svc.Get(context.Background(), module.ID, Actor{ID: judge.ID, Role: models.RoleJudge})
	require.NoError(t, err)
	require.Nil(t, asJudge.ScoringCriteria)

	asAdmin, err := svc.Get(context.Background(), module.ID, Actor{ID: 99, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.NotNil(t, asAdmin.ScoringCriteria)
	require.Len(t, asAdmin.ScoringCriteria.Items, 1)
}

func TestModuleUpdateStatusRejectsUnknownStatus(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	module := createModule(t, db, event.ID, models.ModuleStatusPending)

	svc := newModuleService(t, db, nil)
	_, err := svc.UpdateStatus(context.Background(), module.ID, "paused", Actor{ID: 1, Role: models.RoleAdmin})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestModuleUpdateStatusDeniedForJudge(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	module := createModule(t, db, event.ID, models.ModuleStatusPending)

	judge := createUser(t, db, "judge", models.RoleJudge)
	addJudge(t, db, event.ID, judge.ID)

	svc := newModuleService(t, db, nil)
	_, err := svc.UpdateStatus(context.Background(), module.ID, models.ModuleStatusInProgress, Actor{ID: judge.ID, Role: models.RoleJudge})
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestModuleFinishMaterializesRecords(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	module := createModule(t, db, event.ID, models.ModuleStatusInProgress)

	for _, name := range []string{"alice", "bob", "carol"} {
		contestant := createUser(t, db, name, models.RoleContestant)
		addContestant(t, db, event.ID, contestant.ID)
	}

	worker := NewBackgroundWorker(8, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	svc := newModuleService(t, db, worker)
	updated, err := svc.UpdateStatus(context.Background(), module.ID, models.ModuleStatusFinished, Actor{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, models.ModuleStatusFinished, updated.Status)

	require.Eventually(t, func() bool {
		var count int64
		db.Model(&models.ScoringRecord{}).Where("module_id = ?", module.ID).Count(&count)
		return count == 3
	}, 2*time.Second, 10*time.Millisecond, "finish transition materializes one record per contestant")

	// A repeated transition through finished must not duplicate records.
	_, err = svc.UpdateStatus(context.Background(), module.ID, models.ModuleStatusScoring, Actor{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), module.ID, models.ModuleStatusFinished, Actor{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)

	require.Never(t, func() bool {
		var count int64
		db.Model(&models.ScoringRecord{}).Where("module_id = ?", module.ID).Count(&count)
		return count > 3
	}, 300*time.Millisecond, 25*time.Millisecond)
}

func TestModuleCreateRequiresEventAccess(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	other := createEvent(t, db, "robotics")

	chief := createUser(t, db, "chief", models.RoleChiefJudge)
	addChiefJudge(t, db, event.ID, chief.ID)

	svc := newModuleService(t, db, nil)
	actor := Actor{ID: chief.ID, Role: models.RoleChiefJudge}

	created, err := svc.Create(context.Background(), dto.ModuleCreateRequest{
		EventID:         event.ID,
		Name:            "Module A",
		DurationMinutes: 120,
	}, actor)
	require.NoError(t, err)
	require.Equal(t, models.ModuleStatusPending, created.Status)

	_, err = svc.Create(context.Background(), dto.ModuleCreateRequest{
		EventID:         other.ID,
		Name:            "Module B",
		DurationMinutes: 60,
	}, actor)
	require.ErrorIs(t, err, ErrAccessDenied)
}
