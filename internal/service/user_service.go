package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/skillarena/arena-api/internal/dto"
	"github.com/skillarena/arena-api/internal/models"
	"github.com/skillarena/arena-api/internal/repository"
)

// UserService covers authentication and account administration. All mutating
// operations are admin only.
type UserService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	List(ctx context.Context, role string, actor Actor) ([]dto.UserResponse, error)
	Get(ctx context.Context, userID uint, actor Actor) (dto.UserResponse, error)
	Create(ctx context.Context, req dto.CreateUserRequest, actor Actor) (dto.UserResponse, error)
	Update(ctx context.Context, userID uint, req dto.UpdateUserRequest, actor Actor) (dto.UserResponse, error)
	Delete(ctx context.Context, userID uint, actor Actor) error
}

type userService struct {
	users     repository.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewUserService constructs the user service.
func NewUserService(users repository.UserRepository, jwtSecret string, tokenTTL time.Duration, activity ActivityRecorder, logger zerolog.Logger) UserService {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}

	return &userService{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		activity:  activity,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	})

	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return dto.LoginResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", user.Role).Msg("user logged in")
	return dto.LoginResponse{Token: signed, User: dto.NewUserResponse(user)}, nil
}

func (s *userService) List(ctx context.Context, role string, actor Actor) ([]dto.UserResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}
	if role != "" && !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	users, err := s.users.List(ctx, role)
	if err != nil {
		return nil, err
	}

	return userResponses(users), nil
}

func (s *userService) Get(ctx context.Context, userID uint, actor Actor) (dto.UserResponse, error) {
	// Users may always read their own account.
	if !actor.IsAdmin() && actor.ID != userID {
		return dto.UserResponse{}, ErrAccessDenied
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) Create(ctx context.Context, req dto.CreateUserRequest, actor Actor) (dto.UserResponse, error) {
	if !actor.IsAdmin() {
		return dto.UserResponse{}, ErrAccessDenied
	}

	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return dto.UserResponse{}, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user := models.User{
		Username: req.Username,
		Password: string(hashed),
		Name:     req.Name,
		Role:     req.Role,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.recordActivity(ctx, actor, "user.created", user.ID)
	return dto.NewUserResponse(user), nil
}

func (s *userService) Update(ctx context.Context, userID uint, req dto.UpdateUserRequest, actor Actor) (dto.UserResponse, error) {
	if !actor.IsAdmin() {
		return dto.UserResponse{}, ErrAccessDenied
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			return dto.UserResponse{}, ErrInvalidRole
		}
		user.Role = *req.Role
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return dto.UserResponse{}, err
		}
		user.Password = string(hashed)
	}

	if err := s.users.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.recordActivity(ctx, actor, "user.updated", user.ID)
	return dto.NewUserResponse(user), nil
}

func (s *userService) Delete(ctx context.Context, userID uint, actor Actor) error {
	if !actor.IsAdmin() {
		return ErrAccessDenied
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	s.recordActivity(ctx, actor, "user.deleted", userID)
	return nil
}

func (s *userService) recordActivity(ctx context.Context, actor Actor, action string, userID uint) {
	if s.activity == nil {
		return
	}

	entry := ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "user",
		EntityID:   &userID,
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}
