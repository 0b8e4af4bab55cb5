package service

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/models"
	"github.com/skillarena/arena-api/internal/repository"
	"github.com/skillarena/arena-api/pkg/blob"
)

// pngHeader is enough for content sniffing to identify image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

type fakeBlobStore map[string][]byte

func (s fakeBlobStore) Save(_ context.Context, name string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	path := "blobs/" + name
	s[path] = data
	return path, nil
}

func (s fakeBlobStore) Get(_ context.Context, path string) ([]byte, error) {
	data, ok := s[path]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return data, nil
}

func (s fakeBlobStore) Delete(_ context.Context, path string) error {
	delete(s, path)
	return nil
}

func newAttachmentService(t *testing.T, db *gorm.DB, store blob.Store) AttachmentService {
	t.Helper()

	events := repository.NewEventRepository(db)
	return NewAttachmentService(
		repository.NewModuleRepository(db),
		repository.NewAttachmentRepository(db),
		NewAccessService(events, testLogger()),
		store,
		nil,
		testLogger(),
	)
}

func TestUploadAnswerLifecycleRules(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	contestant := createUser(t, db, "alice", models.RoleContestant)
	addContestant(t, db, event.ID, contestant.ID)
	actor := Actor{ID: contestant.ID, Role: models.RoleContestant}

	store := fakeBlobStore{}
	svc := newAttachmentService(t, db, store)

	pending := createModule(t, db, event.ID, models.ModuleStatusPending)
	_, err := svc.UploadAnswer(context.Background(), pending.ID, "01.png", pngHeader, actor)
	require.ErrorIs(t, err, ErrModuleNotInProgress)

	running := createModule(t, db, event.ID, models.ModuleStatusInProgress)
	uploaded, err := svc.UploadAnswer(context.Background(), running.ID, "01.png", pngHeader, actor)
	require.NoError(t, err)
	require.Equal(t, "01.png", uploaded.Filename)
	require.Contains(t, store, uploaded.Filepath)

	// Only contestants submit answers.
	judge := createUser(t, db, "judge", models.RoleJudge)
	addJudge(t, db, event.ID, judge.ID)
	_, err = svc.UploadAnswer(context.Background(), running.ID, "02.png", pngHeader, Actor{ID: judge.ID, Role: models.RoleJudge})
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestUploadRejectsUnsupportedContent(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	module := createModule(t, db, event.ID, models.ModuleStatusInProgress)
	contestant := createUser(t, db, "alice", models.RoleContestant)
	addContestant(t, db, event.ID, contestant.ID)

	svc := newAttachmentService(t, db, fakeBlobStore{})

	// Content type comes from sniffing the bytes, not the filename.
	gif := append([]byte("GIF89a"), make([]byte, 16)...)
	_, err := svc.UploadAnswer(context.Background(), module.ID, "fake.png", gif, Actor{ID: contestant.ID, Role: models.RoleContestant})
	require.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestProblemAttachmentsHiddenWhilePending(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	module := createModule(t, db, event.ID, models.ModuleStatusPending)

	chief := createUser(t, db, "chief", models.RoleChiefJudge)
	judge := createUser(t, db, "judge", models.RoleJudge)
	addChiefJudge(t, db, event.ID, chief.ID)
	addJudge(t, db, event.ID, judge.ID)

	store := fakeBlobStore{}
	svc := newAttachmentService(t, db, store)

	_, err := svc.UploadProblem(context.Background(), module.ID, "task.png", pngHeader, Actor{ID: chief.ID, Role: models.RoleChiefJudge})
	require.NoError(t, err)

	// Authors still see the pending statement; everyone else waits for the
	// module to start.
	listed, err := svc.ListProblem(context.Background(), module.ID, Actor{ID: chief.ID, Role: models.RoleChiefJudge})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = svc.ListProblem(context.Background(), module.ID, Actor{ID: judge.ID, Role: models.RoleJudge})
	require.ErrorIs(t, err, ErrAccessDenied)

	require.NoError(t, db.Model(&models.Module{}).Where("id = ?", module.ID).Update("status", models.ModuleStatusInProgress).Error)
	listed, err = svc.ListProblem(context.Background(), module.ID, Actor{ID: judge.ID, Role: models.RoleJudge})
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestListAnswersScopedByRole(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	module := createModule(t, db, event.ID, models.ModuleStatusScoring)

	judge := createUser(t, db, "judge", models.RoleJudge)
	alice := createUser(t, db, "alice", models.RoleContestant)
	bob := createUser(t, db, "bob", models.RoleContestant)
	addJudge(t, db, event.ID, judge.ID)
	addContestant(t, db, event.ID, alice.ID)
	addContestant(t, db, event.ID, bob.ID)
	assignContestant(t, db, event.ID, judge.ID, alice.ID)

	createAnswerAttachment(t, db, module.ID, alice.ID, "alice.png")
	createAnswerAttachment(t, db, module.ID, bob.ID, "bob.png")

	svc := newAttachmentService(t, db, fakeBlobStore{})

	// A contestant always gets their own uploads, whatever filter they ask
	// for.
	own, err := svc.ListAnswers(context.Background(), module.ID, bob.ID, Actor{ID: alice.ID, Role: models.RoleContestant})
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, "alice.png", own[0].Filename)

	// Judges can pull assigned contestants only.
	assigned, err := svc.ListAnswers(context.Background(), module.ID, alice.ID, Actor{ID: judge.ID, Role: models.RoleJudge})
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	_, err = svc.ListAnswers(context.Background(), module.ID, bob.ID, Actor{ID: judge.ID, Role: models.RoleJudge})
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestDeleteAnswerRules(t *testing.T) {
	db := newTestDB(t)
	event := createEvent(t, db, "welding")
	module := createModule(t, db, event.ID, models.ModuleStatusInProgress)
	alice := createUser(t, db, "alice", models.RoleContestant)
	addContestant(t, db, event.ID, alice.ID)

	store := fakeBlobStore{}
	svc := newAttachmentService(t, db, store)
	actor := Actor{ID: alice.ID, Role: models.RoleContestant}

	uploaded, err := svc.UploadAnswer(context.Background(), module.ID, "01.png", pngHeader, actor)
	require.NoError(t, err)

	// Own upload, module still running: allowed.
	require.NoError(t, svc.DeleteAnswer(context.Background(), module.ID, uploaded.ID, actor))
	require.NotContains(t, store, uploaded.Filepath)

	require.NoError(t, db.Model(&models.Module{}).Where("id = ?", module.ID).Update("status", models.ModuleStatusFinished).Error)
	second := createAnswerAttachment(t, db, module.ID, alice.ID, "02.png")
	err = svc.DeleteAnswer(context.Background(), module.ID, second.ID, actor)
	require.ErrorIs(t, err, ErrModuleNotInProgress)

	// Admins can clean up regardless of lifecycle state.
	require.NoError(t, svc.DeleteAnswer(context.Background(), module.ID, second.ID, Actor{ID: 1, Role: models.RoleAdmin}))
}

func TestDownloadSniffsContentType(t *testing.T) {
	db := newTestDB(t)
	store := fakeBlobStore{"blobs/task.png": pngHeader}
	svc := newAttachmentService(t, db, store)

	data, contentType, err := svc.Download(context.Background(), "blobs/task.png")
	require.NoError(t, err)
	require.Equal(t, pngHeader, data)
	require.Equal(t, "image/png", contentType)

	_, _, err = svc.Download(context.Background(), "blobs/missing.png")
	require.ErrorIs(t, err, ErrAttachmentNotFound)
}
