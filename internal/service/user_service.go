package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"purchaseboard/internal/middleware"
	"purchaseboard/internal/model"
	"purchaseboard/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// DTOs for Request validation
type RegisterUserRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// UserResponse returns User data without exposing sensitive fields
type UserResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
}

// FinanceStaffResponse mirrors the shape the tithe task picker expects.
type FinanceStaffResponse struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Register(ctx context.Context, req RegisterUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	ListUsers(ctx context.Context, status string, page, limit int) ([]UserResponse, int64, error)
	ApproveUser(ctx context.Context, id uuid.UUID, approver model.Principal) (*UserResponse, error)
	ListFinanceStaff(ctx context.Context) ([]FinanceStaffResponse, error)
}

type userService struct {
	repo  repository.UserRepository
	audit repository.AuditRepository
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, audit repository.AuditRepository) UserService {
	return &userService{repo: repo, audit: audit}
}

// Helper: parse model to standard json API response
func mapToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID.String(),
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Role:        user.Role,
		Status:      user.Status,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Register creates a new account in pending status. Until an admin
// approves it, the account can authenticate but not mutate board data.
func (s *userService) Register(ctx context.Context, req RegisterUserRequest) (*UserResponse, error) {
	if !emailRegex.MatchString(req.Email) {
		return nil, fmt.Errorf("%w: invalid email format", repository.ErrInvalidInput)
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", repository.ErrConflict)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    string(hashedPassword),
		Role:        model.RoleMember,
		Status:      model.UserStatusPending,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapToUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", repository.ErrInvalidInput)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", repository.ErrInvalidInput)
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates a valid refresh token for a fresh token pair.
func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	stored, err := s.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired refresh token", repository.ErrNotFound)
	}

	user, err := s.repo.GetByID(ctx, stored.UserID)
	if err != nil {
		// Account gone; its remaining tokens are orphans.
		_ = s.repo.DeleteRefreshTokensForUser(ctx, stored.UserID)
		return nil, fmt.Errorf("%w: account no longer exists", repository.ErrNotFound)
	}

	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID.String(),
		"iat": now.Unix(),
		"exp": now.Add(accessTokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(middleware.GetJWTSecret())
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	raw := make([]byte, 48)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     hex.EncodeToString(raw),
		ExpiresAt: now.Add(refreshTokenTTL),
	}
	if err := s.repo.SaveRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return &TokenResponse{Token: tokenString, RefreshToken: refresh.Token}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapToUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, status string, page, limit int) ([]UserResponse, int64, error) {
	offset := (page - 1) * limit
	users, total, err := s.repo.ListByStatus(ctx, status, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToUserResponse(&users[i]))
	}
	return responses, total, nil
}

// ApproveUser flips a pending account to approved. Approving an already
// approved account is a no-op rather than an error.
func (s *userService) ApproveUser(ctx context.Context, id uuid.UUID, approver model.Principal) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if user.Status != model.UserStatusApproved {
		user.Status = model.UserStatusApproved
		if err := s.repo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to approve user: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{"email": user.Email})
		approverID := approver.ID
		entry := model.AuditLog{
			UserID:     &approverID,
			Action:     model.ActionApproveUser,
			EntityID:   user.ID.String(),
			EntityName: user.DisplayName,
			Details:    string(details),
		}
		if err := s.audit.Log(ctx, &entry); err != nil {
			return nil, fmt.Errorf("failed to write audit log: %w", err)
		}
	}

	return mapToUserResponse(user), nil
}

func (s *userService) ListFinanceStaff(ctx context.Context) ([]FinanceStaffResponse, error) {
	users, err := s.repo.ListByRoleAndStatus(ctx, model.RoleFinance, model.UserStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to list finance staff: %w", err)
	}

	staff := make([]FinanceStaffResponse, 0, len(users))
	for _, u := range users {
		staff = append(staff, FinanceStaffResponse{
			UID:         u.ID.String(),
			DisplayName: u.DisplayName,
			Email:       u.Email,
		})
	}
	return staff, nil
}
