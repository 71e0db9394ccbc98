package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/repository"
)

type userRepository struct {
	db *sql.DB
}

// NewUserRepository instantiates a SQLite-backed user directory.
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
		SELECT id, display_name, email, role, metadata, created_at, updated_at
		FROM users
		WHERE id = ?
	`
	var user domain.User
	var metadata sql.NullString
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.DisplayName, &user.Email, &user.Role, &metadata, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		_ = json.Unmarshal([]byte(metadata.String), &user.Metadata)
	}
	return &user, nil
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.Role == "" {
		user.Role = "worker"
	}

	const query = `
	INSERT INTO users (id, display_name, email, role, metadata, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET display_name = excluded.display_name,
		email = excluded.email,
		role = excluded.role,
		metadata = excluded.metadata,
		updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query,
		user.ID, user.DisplayName, user.Email, user.Role, encodeMap(user.Metadata), user.CreatedAt.UTC(), now,
	); err != nil {
		return err
	}
	user.UpdatedAt = now
	return nil
}
