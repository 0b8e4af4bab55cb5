package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skillarena/arena-api/internal/models"
)

// EventRepository defines data operations for events, rosters and the
// assignment relations the permission checks are built on.
type EventRepository interface {
	List(ctx context.Context, competitionID *uint) ([]models.Event, error)
	ListForUser(ctx context.Context, userID uint, role string, competitionID *uint) ([]models.Event, error)
	GetByID(ctx context.Context, id uint) (models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id uint) error

	// Assignment existence, one relation per role.
	HasChiefJudge(ctx context.Context, eventID, userID uint) (bool, error)
	HasJudge(ctx context.Context, eventID, userID uint) (bool, error)
	HasContestant(ctx context.Context, eventID, userID uint) (bool, error)
	HasJudgeContestantAssignment(ctx context.Context, eventID, judgeID, contestantID uint) (bool, error)

	// Rosters.
	ListChiefJudges(ctx context.Context, eventID uint) ([]models.User, error)
	ListJudges(ctx context.Context, eventID uint) ([]models.User, error)
	ListContestants(ctx context.Context, eventID uint) ([]models.User, error)
	ListAssignedContestants(ctx context.Context, eventID, judgeID uint) ([]models.User, error)

	AddChiefJudge(ctx context.Context, eventID, userID uint) error
	AddJudge(ctx context.Context, eventID, userID uint) error
	AddContestant(ctx context.Context, eventID, userID uint) error
	RemoveChiefJudge(ctx context.Context, eventID, userID uint) error
	RemoveJudge(ctx context.Context, eventID, userID uint) error
	RemoveContestant(ctx context.Context, eventID, userID uint) error
	AssignContestantToJudge(ctx context.Context, eventID, judgeID, contestantID uint) error
	UnassignContestantFromJudge(ctx context.Context, eventID, judgeID, contestantID uint) error
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository instantiates the repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) List(ctx context.Context, competitionID *uint) ([]models.Event, error) {
	query := r.db.WithContext(ctx).Model(&models.Event{})
	if competitionID != nil {
		query = query.Where("competition_id = ?", *competitionID)
	}

	var events []models.Event
	if err := query.Order("start_time DESC").Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (r *eventRepository) ListForUser(ctx context.Context, userID uint, role string, competitionID *uint) ([]models.Event, error) {
	query := r.db.WithContext(ctx).Model(&models.Event{})

	switch role {
	case models.RoleChiefJudge:
		query = query.Where("id IN (?)", r.db.Model(&models.EventChiefJudge{}).Select("event_id").Where("chief_judge_id = ?", userID))
	case models.RoleJudge:
		query = query.Where("id IN (?)", r.db.Model(&models.EventJudge{}).Select("event_id").Where("judge_id = ?", userID))
	case models.RoleContestant:
		query = query.Where("id IN (?)", r.db.Model(&models.EventContestant{}).Select("event_id").Where("contestant_id = ?", userID))
	}

	if competitionID != nil {
		query = query.Where("competition_id = ?", *competitionID)
	}

	var events []models.Event
	if err := query.Order("start_time DESC").Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uint) (models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Preload("Modules").First(&event, id).Error; err != nil {
		return models.Event{}, err
	}

	return event, nil
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) Update(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *eventRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Event{}, id).Error
}

func (r *eventRepository) HasChiefJudge(ctx context.Context, eventID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.EventChiefJudge{}).
		Where("event_id = ? AND chief_judge_id = ?", eventID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *eventRepository) HasJudge(ctx context.Context, eventID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.EventJudge{}).
		Where("event_id = ? AND judge_id = ?", eventID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *eventRepository) HasContestant(ctx context.Context, eventID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.EventContestant{}).
		Where("event_id = ? AND contestant_id = ?", eventID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *eventRepository) HasJudgeContestantAssignment(ctx context.Context, eventID, judgeID, contestantID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.JudgeContestantAssignment{}).
		Where("event_id = ? AND judge_id = ? AND contestant_id = ?", eventID, judgeID, contestantID).
		Count(&count).Error
	return count > 0, err
}

func (r *eventRepository) ListChiefJudges(ctx context.Context, eventID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN event_chief_judges ecj ON ecj.chief_judge_id = users.id").
		Where("ecj.event_id = ?", eventID).
		Order("users.name").
		Find(&users).Error
	return users, err
}

func (r *eventRepository) ListJudges(ctx context.Context, eventID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN event_judges ej ON ej.judge_id = users.id").
		Where("ej.event_id = ?", eventID).
		Order("users.name").
		Find(&users).Error
	return users, err
}

func (r *eventRepository) ListContestants(ctx context.Context, eventID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN event_contestants ec ON ec.contestant_id = users.id").
		Where("ec.event_id = ?", eventID).
		Order("users.name").
		Find(&users).Error
	return users, err
}

func (r *eventRepository) ListAssignedContestants(ctx context.Context, eventID, judgeID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN judge_contestant_assignments jca ON jca.contestant_id = users.id").
		Where("jca.event_id = ? AND jca.judge_id = ?", eventID, judgeID).
		Order("users.name").
		Find(&users).Error
	return users, err
}

func (r *eventRepository) AddChiefJudge(ctx context.Context, eventID, userID uint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.EventChiefJudge{EventID: eventID, ChiefJudgeID: userID}).Error
}

func (r *eventRepository) AddJudge(ctx context.Context, eventID, userID uint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.EventJudge{EventID: eventID, JudgeID: userID}).Error
}

func (r *eventRepository) AddContestant(ctx context.Context, eventID, userID uint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.EventContestant{EventID: eventID, ContestantID: userID}).Error
}

func (r *eventRepository) RemoveChiefJudge(ctx context.Context, eventID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("event_id = ? AND chief_judge_id = ?", eventID, userID).
		Delete(&models.EventChiefJudge{}).Error
}

func (r *eventRepository) RemoveJudge(ctx context.Context, eventID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("event_id = ? AND judge_id = ?", eventID, userID).
		Delete(&models.EventJudge{}).Error
}

func (r *eventRepository) RemoveContestant(ctx context.Context, eventID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("event_id = ? AND contestant_id = ?", eventID, userID).
		Delete(&models.EventContestant{}).Error
}

func (r *eventRepository) AssignContestantToJudge(ctx context.Context, eventID, judgeID, contestantID uint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.JudgeContestantAssignment{EventID: eventID, JudgeID: judgeID, ContestantID: contestantID}).Error
}

func (r *eventRepository) UnassignContestantFromJudge(ctx context.Context, eventID, judgeID, contestantID uint) error {
	return r.db.WithContext(ctx).
		Where("event_id = ? AND judge_id = ? AND contestant_id = ?", eventID, judgeID, contestantID).
		Delete(&models.JudgeContestantAssignment{}).Error
}
