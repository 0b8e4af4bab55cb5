package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/dto"
	"github.com/skillarena/arena-api/internal/models"
	"github.com/skillarena/arena-api/internal/repository"
	"github.com/skillarena/arena-api/pkg/blob"
)

// allowedUploadTypes sniffed from content, not from the client-supplied
// filename.
var allowedUploadTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"application/pdf": {},
	"application/zip": {},
	"text/plain":      {},
}

// ErrUnsupportedFileType rejects uploads whose sniffed content type is not on
// the allow list.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// AttachmentService covers problem and answer uploads. Problem files follow
// the module's visibility rules; answer files are always per contestant.
type AttachmentService interface {
	ListProblem(ctx context.Context, moduleID uint, actor Actor) ([]dto.AttachmentResponse, error)
	UploadProblem(ctx context.Context, moduleID uint, filename string, content []byte, actor Actor) (dto.AttachmentResponse, error)
	DeleteProblem(ctx context.Context, moduleID, attachmentID uint, actor Actor) error

	ListAnswers(ctx context.Context, moduleID, contestantID uint, actor Actor) ([]dto.AttachmentResponse, error)
	UploadAnswer(ctx context.Context, moduleID uint, filename string, content []byte, actor Actor) (dto.AttachmentResponse, error)
	DeleteAnswer(ctx context.Context, moduleID, attachmentID uint, actor Actor) error

	Download(ctx context.Context, path string) ([]byte, string, error)
}

type attachmentService struct {
	modules     repository.ModuleRepository
	attachments repository.AttachmentRepository
	access      AccessService
	store       blob.Store
	activity    ActivityRecorder
	logger      zerolog.Logger
}

// NewAttachmentService constructs the attachment service.
func NewAttachmentService(
	modules repository.ModuleRepository,
	attachments repository.AttachmentRepository,
	access AccessService,
	store blob.Store,
	activity ActivityRecorder,
	logger zerolog.Logger,
) AttachmentService {
	return &attachmentService{
		modules:     modules,
		attachments: attachments,
		access:      access,
		store:       store,
		activity:    activity,
		logger:      logger.With().Str("component", "attachment_service").Logger(),
	}
}

func (s *attachmentService) ListProblem(ctx context.Context, moduleID uint, actor Actor) ([]dto.AttachmentResponse, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeEvent(ctx, module.EventID, actor); err != nil {
		return nil, err
	}

	// The problem statement stays hidden until the module starts, except
	// from the roles that authored it.
	privileged := actor.Role == models.RoleAdmin || actor.Role == models.RoleChiefJudge
	if !privileged && module.Status == models.ModuleStatusPending {
		return nil, ErrAccessDenied
	}

	attachments, err := s.attachments.ListProblem(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AttachmentResponse, 0, len(attachments))
	for _, attachment := range attachments {
		responses = append(responses, dto.NewProblemAttachmentResponse(attachment))
	}

	return responses, nil
}

func (s *attachmentService) UploadProblem(ctx context.Context, moduleID uint, filename string, content []byte, actor Actor) (dto.AttachmentResponse, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return dto.AttachmentResponse{}, err
	}

	if actor.Role != models.RoleAdmin && actor.Role != models.RoleChiefJudge {
		return dto.AttachmentResponse{}, ErrAccessDenied
	}
	if err := s.authorizeEvent(ctx, module.EventID, actor); err != nil {
		return dto.AttachmentResponse{}, err
	}

	if err := checkUploadType(content); err != nil {
		return dto.AttachmentResponse{}, err
	}

	path, err := s.store.Save(ctx, filename, bytes.NewReader(content))
	if err != nil {
		return dto.AttachmentResponse{}, fmt.Errorf("store attachment: %w", err)
	}

	attachment := models.ProblemAttachment{
		ModuleID: moduleID,
		Filename: filename,
		Filepath: path,
	}
	if err := s.attachments.CreateProblem(ctx, &attachment); err != nil {
		return dto.AttachmentResponse{}, err
	}

	s.recordActivity(ctx, actor, "attachment.problem_uploaded", moduleID, map[string]interface{}{
		"attachment_id": attachment.ID,
		"filename":      filename,
	})

	return dto.NewProblemAttachmentResponse(attachment), nil
}

func (s *attachmentService) DeleteProblem(ctx context.Context, moduleID, attachmentID uint, actor Actor) error {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return err
	}

	if actor.Role != models.RoleAdmin && actor.Role != models.RoleChiefJudge {
		return ErrAccessDenied
	}
	if err := s.authorizeEvent(ctx, module.EventID, actor); err != nil {
		return err
	}

	attachment, err := s.attachments.GetProblemByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}
	if attachment.ModuleID != moduleID {
		return ErrAttachmentNotFound
	}

	if err := s.attachments.DeleteProblem(ctx, attachmentID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, attachment.Filepath); err != nil {
		s.logger.Warn().Err(err).Str("path", attachment.Filepath).Msg("failed to delete stored blob")
	}

	s.recordActivity(ctx, actor, "attachment.problem_deleted", moduleID, map[string]interface{}{"attachment_id": attachmentID})
	return nil
}

func (s *attachmentService) ListAnswers(ctx context.Context, moduleID, contestantID uint, actor Actor) ([]dto.AttachmentResponse, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeEvent(ctx, module.EventID, actor); err != nil {
		return nil, err
	}

	switch actor.Role {
	case models.RoleAdmin, models.RoleChiefJudge:
	case models.RoleJudge:
		if contestantID != 0 {
			assigned, err := s.access.HasContestantAccess(ctx, actor.ID, contestantID, module.EventID)
			if err != nil {
				return nil, err
			}
			if !assigned {
				return nil, ErrAccessDenied
			}
		}
	case models.RoleContestant:
		// Contestants only ever see their own submissions.
		contestantID = actor.ID
	default:
		return nil, ErrAccessDenied
	}

	attachments, err := s.attachments.ListAnswers(ctx, moduleID, contestantID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AttachmentResponse, 0, len(attachments))
	for _, attachment := range attachments {
		responses = append(responses, dto.NewAnswerAttachmentResponse(attachment))
	}

	return responses, nil
}

// UploadAnswer accepts a contestant's own submission while the module is
// running.
func (s *attachmentService) UploadAnswer(ctx context.Context, moduleID uint, filename string, content []byte, actor Actor) (dto.AttachmentResponse, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return dto.AttachmentResponse{}, err
	}

	if actor.Role != models.RoleContestant {
		return dto.AttachmentResponse{}, ErrAccessDenied
	}
	if err := s.authorizeEvent(ctx, module.EventID, actor); err != nil {
		return dto.AttachmentResponse{}, err
	}
	if module.Status != models.ModuleStatusInProgress {
		return dto.AttachmentResponse{}, ErrModuleNotInProgress
	}

	if err := checkUploadType(content); err != nil {
		return dto.AttachmentResponse{}, err
	}

	path, err := s.store.Save(ctx, filename, bytes.NewReader(content))
	if err != nil {
		return dto.AttachmentResponse{}, fmt.Errorf("store attachment: %w", err)
	}

	attachment := models.AnswerAttachment{
		ModuleID:     moduleID,
		ContestantID: actor.ID,
		Filename:     filename,
		Filepath:     path,
	}
	if err := s.attachments.CreateAnswer(ctx, &attachment); err != nil {
		return dto.AttachmentResponse{}, err
	}

	s.recordActivity(ctx, actor, "attachment.answer_uploaded", moduleID, map[string]interface{}{
		"attachment_id": attachment.ID,
		"filename":      filename,
	})

	return dto.NewAnswerAttachmentResponse(attachment), nil
}

func (s *attachmentService) DeleteAnswer(ctx context.Context, moduleID, attachmentID uint, actor Actor) error {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return err
	}

	attachment, err := s.attachments.GetAnswerByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}
	if attachment.ModuleID != moduleID {
		return ErrAttachmentNotFound
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleContestant:
		if attachment.ContestantID != actor.ID {
			return ErrAccessDenied
		}
		if module.Status != models.ModuleStatusInProgress {
			return ErrModuleNotInProgress
		}
	default:
		return ErrAccessDenied
	}

	if err := s.attachments.DeleteAnswer(ctx, attachmentID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, attachment.Filepath); err != nil {
		s.logger.Warn().Err(err).Str("path", attachment.Filepath).Msg("failed to delete stored blob")
	}

	s.recordActivity(ctx, actor, "attachment.answer_deleted", moduleID, map[string]interface{}{"attachment_id": attachmentID})
	return nil
}

// Download returns the raw bytes with the sniffed content type.
func (s *attachmentService) Download(ctx context.Context, path string) ([]byte, string, error) {
	content, err := s.store.Get(ctx, path)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, "", ErrAttachmentNotFound
		}
		return nil, "", err
	}

	return content, mimetype.Detect(content).String(), nil
}

func (s *attachmentService) loadModule(ctx context.Context, moduleID uint) (models.Module, error) {
	module, err := s.modules.GetByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Module{}, ErrModuleNotFound
		}
		return models.Module{}, err
	}
	return module, nil
}

func (s *attachmentService) authorizeEvent(ctx context.Context, eventID uint, actor Actor) error {
	ok, err := s.access.HasEventAccess(ctx, actor.ID, eventID, actor.Role)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccessDenied
	}
	return nil
}

func (s *attachmentService) recordActivity(ctx context.Context, actor Actor, action string, moduleID uint, metadata map[string]interface{}) {
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

func checkUploadType(content []byte) error {
	detected := mimetype.Detect(content)
	for mime := detected; mime != nil; mime = mime.Parent() {
		if _, ok := allowedUploadTypes[mime.String()]; ok {
			return nil
		}
	}
	return ErrUnsupportedFileType
}
