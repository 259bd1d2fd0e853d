package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fellowship_backend/internal/config"
	"fellowship_backend/internal/model"
	"fellowship_backend/internal/repository"
	"fellowship_backend/internal/util"
	"fellowship_backend/pkg/logger"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]+$`)

type RegisterRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email,max=100"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	AdminCode string `json:"adminCode"`
	ExecCode  string `json:"execCode"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type PromoteRequest struct {
	Role string `json:"role" validate:"required,oneof=admin exec"`
	Code string `json:"code" validate:"required"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthService struct {
	UserRepo *repository.UserRepository
	JWT      config.JWTConfig
	Auth     config.AuthConfig
}

func NewAuthService(userRepo *repository.UserRepository, jwtCfg config.JWTConfig, authCfg config.AuthConfig) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		JWT:      jwtCfg,
		Auth:     authCfg,
	}
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !usernamePattern.MatchString(req.Username) {
		return nil, invalid("username may only contain letters, digits, '_' and '.'")
	}

	if _, err := s.UserRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.UserRepo.FindByUsername(ctx, req.Username); err == nil {
		return nil, util.ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	role, err := s.signupRole(ctx, req.AdminCode, req.ExecCode)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     role,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	logger.Log.Info("User registered", zap.Uint("userID", user.ID), zap.String("role", string(role)))

	return s.issue(user)
}

// signupRole makes the first user an admin when bootstrapping is enabled;
// otherwise a matching code grants admin or exec and anything else is member.
func (s *AuthService) signupRole(ctx context.Context, adminCode, execCode string) (model.UserRole, error) {
	if s.Auth.BootstrapFirstAdmin {
		count, err := s.UserRepo.Count(ctx)
		if err != nil {
			return "", err
		}
		if count == 0 {
			return model.Admin, nil
		}
	}
	if codeMatches(adminCode, s.Auth.AdminSignupCode) {
		return model.Admin, nil
	}
	if codeMatches(execCode, s.Auth.ExecSignupCode) {
		return model.Exec, nil
	}
	return model.Member, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.UserRepo.FindByIdentifier(ctx, req.Identifier)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, util.ErrAccountDisabled
	}

	return s.issue(user)
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

// PromoteSelf raises the caller's role when the matching code is supplied.
// Admins are never demoted through this path.
func (s *AuthService) PromoteSelf(ctx context.Context, userID uint, req PromoteRequest) (*AuthResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	role := model.UserRole(req.Role)
	expected := s.Auth.ExecSignupCode
	if role == model.Admin {
		expected = s.Auth.AdminSignupCode
	}
	if !codeMatches(req.Code, expected) {
		return nil, util.ErrInvalidSignupCode
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != role && user.Role != model.Admin {
		if err := s.UserRepo.UpdateRole(ctx, user.ID, role); err != nil {
			return nil, err
		}
		user.Role = role
		logger.Log.Info("User promoted", zap.Uint("userID", user.ID), zap.String("role", req.Role))
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := util.GenerateJWT(user, s.JWT.Secret, s.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// codeMatches rejects empty configured codes so an unset code never grants a role.
func codeMatches(given, expected string) bool {
	if given == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}
