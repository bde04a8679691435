package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/j-greybard/arcadetracker/internal/models"

	"github.com/lib/pq"
)

// AuthRepository defines database operations for user accounts.
type AuthRepository interface {
	CreateUser(executor SQLExecutor, user *models.User) (int64, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUserByID(id int64) (*models.User, error)
	SetUserActive(executor SQLExecutor, id int64, active bool) error
}

type authRepository struct {
	db *sql.DB
}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository(db *sql.DB) AuthRepository {
	return &authRepository{db: db}
}

func (r *authRepository) CreateUser(executor SQLExecutor, user *models.User) (int64, error) {
	query := `INSERT INTO users (username, email, password_hash, full_name, role, is_active, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		user.Username, user.Email, user.PasswordHash, user.FullName, user.Role, user.IsActive, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: username or email already taken (constraint: %s)", ErrDuplicateKey, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating user: %v", ErrDatabaseError, err)
	}
	return user.ID, nil
}

func (r *authRepository) GetUserByUsername(username string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, username, email, password_hash, full_name, role, is_active, created_at
	          FROM users WHERE username = $1`
	err := r.db.QueryRow(query, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.FullName, &user.Role, &user.IsActive, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting user by username: %v", ErrDatabaseError, err)
	}
	return user, nil
}

func (r *authRepository) GetUserByID(id int64) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, username, email, password_hash, full_name, role, is_active, created_at
	          FROM users WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.FullName, &user.Role, &user.IsActive, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting user by ID %d: %v", ErrDatabaseError, id, err)
	}
	return user, nil
}

func (r *authRepository) SetUserActive(executor SQLExecutor, id int64, active bool) error {
	result, err := executor.Exec(`UPDATE users SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("%w: updating user ID %d active flag: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
