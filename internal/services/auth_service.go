package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/j-greybard/arcadetracker/internal/models"
	"github.com/j-greybard/arcadetracker/internal/repositories"
	"github.com/j-greybard/arcadetracker/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserInactive       = errors.New("user account is deactivated")
	ErrUsernameExists     = errors.New("username or email already taken")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

// User roles. Operators record readings and consume parts; managers also
// manage the catalogs; admins additionally manage accounts.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleOperator = "operator"
)

// LoginRequest carries login credentials.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterUserRequest carries the fields for a new user account.
type RegisterUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// AuthResponse is the login payload.
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
}

// AuthService handles accounts and sessions.
type AuthService interface {
	RegisterUser(req RegisterUserRequest) (*models.User, error)
	LoginUser(req LoginRequest) (*AuthResponse, error)
	GetUserProfile(userID int64) (*models.User, error)
	SetUserActive(userID int64, active bool) error
}

type authService struct {
	authRepo repositories.AuthRepository
	db       *sql.DB
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(authRepo repositories.AuthRepository, db *sql.DB) AuthService {
	return &authService{authRepo: authRepo, db: db}
}

func (s *authService) RegisterUser(req RegisterUserRequest) (*models.User, error) {
	role := req.Role
	if role == "" {
		role = RoleOperator
	}
	if !isValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role '%s'", ErrValidation, role)
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPasswordBytes),
		FullName:     utils.NewNullString(req.FullName),
		Role:         role,
		IsActive:     true,
	}

	if _, err := s.authRepo.CreateUser(s.db, &user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func (s *authService) LoginUser(req LoginRequest) (*AuthResponse, error) {
	user, err := s.authRepo.GetUserByUsername(req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	accessToken, err := utils.GenerateAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	refreshToken, err := utils.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *authService) GetUserProfile(userID int64) (*models.User, error) {
	user, err := s.authRepo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to fetch user %d: %w", userID, err)
	}
	return user, nil
}

func (s *authService) SetUserActive(userID int64, active bool) error {
	if err := s.authRepo.SetUserActive(s.db, userID, active); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: ID %d", ErrUserNotFound, userID)
		}
		return fmt.Errorf("failed to update user %d: %w", userID, err)
	}
	return nil
}

func isValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleOperator:
		return true
	default:
		return false
	}
}
