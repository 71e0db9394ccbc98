package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/repository"
)

const defaultRole = "worker"

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates a Postgres-backed user directory.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

// userRow mirrors the users table for pgx.RowToStructByName.
type userRow struct {
	ID          string    `db:"id"`
	DisplayName string    `db:"display_name"`
	Email       string    `db:"email"`
	Role        string    `db:"role"`
	Metadata    []byte    `db:"metadata"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row userRow) user() *domain.User {
	user := &domain.User{
		ID:          row.ID,
		DisplayName: row.DisplayName,
		Email:       row.Email,
		Role:        row.Role,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if len(row.Metadata) > 0 {
		_ = json.Unmarshal(row.Metadata, &user.Metadata)
	}
	return user
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, display_name, email, role, metadata, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[userRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.user(), nil
}

// Upsert writes the directory entry and refreshes its timestamps from the
// database clock.
func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}
	if user.Role == "" {
		user.Role = defaultRole
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, display_name, email, role, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()), NOW())
		ON CONFLICT (id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`,
		user.ID,
		user.DisplayName,
		user.Email,
		user.Role,
		marshalMap(user.Metadata),
		nullTime(user.CreatedAt),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	return err
}
