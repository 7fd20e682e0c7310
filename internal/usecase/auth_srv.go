package usecase

import (
	"context"
	"time"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/internal/data/repository"
	"travelwithstudents/internal/dto/request"
	"travelwithstudents/internal/dto/response"
	"travelwithstudents/pkg/apperror"
	"travelwithstudents/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest, userAgent, ipAddress string) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest, userAgent, ipAddress string) (*response.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error)
}

type authService struct {
	repo   *repository.Repository
	config *utils.Config
	log    *zap.Logger
}

func NewAuthService(repo *repository.Repository, config *utils.Config, log *zap.Logger) AuthService {
	return &authService{
		repo:   repo,
		config: config,
		log:    log.With(zap.String("service", "auth")),
	}
}

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest, userAgent, ipAddress string) (*response.AuthResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Register validation failed", zap.Any("errors", errs))
		return nil, apperror.Validation(utils.FormatValidationErrors(errs))
	}

	role := entity.UserRole(req.Role)
	if role == entity.RoleGuide && req.HourlyRate <= 0 {
		return nil, apperror.Validation("Guides must set an hourly rate")
	}

	existing, err := s.repo.User.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Validation("Username already taken")
	}

	existing, err = s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Validation("Email already registered")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "Failed to hash password", err)
	}

	now := time.Now()
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Role:         role,
		HourlyRate:   req.HourlyRate,
		IsActive:     true,
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)

	return s.openSession(ctx, user, userAgent, ipAddress)
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest, userAgent, ipAddress string) (*response.AuthResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.Validation(utils.FormatValidationErrors(errs))
	}

	user, err := s.repo.User.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		return nil, apperror.Unauthorized("Invalid username or password")
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("Account is deactivated")
	}

	s.log.Info("User logged in", zap.String("user_id", user.ID.String()))

	return s.openSession(ctx, user, userAgent, ipAddress)
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if err := s.repo.Session.Revoke(ctx, token); err != nil {
		return err
	}

	s.log.Info("Session revoked")
	return nil
}

func (s *authService) GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error) {
	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (s *authService) openSession(ctx context.Context, user *entity.User, userAgent, ipAddress string) (*response.AuthResponse, error) {
	now := time.Now()
	session := &entity.Session{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		UserID:    user.ID,
		Token:     utils.GenerateSessionToken(),
		ExpiresAt: now.Add(time.Duration(s.config.Session.ExpiryHours) * time.Hour),
	}
	if userAgent != "" {
		session.UserAgent = &userAgent
	}
	if ipAddress != "" {
		session.IPAddress = &ipAddress
	}

	if err := s.repo.Session.Create(ctx, session); err != nil {
		return nil, err
	}

	return response.AuthToResponse(user, session), nil
}
