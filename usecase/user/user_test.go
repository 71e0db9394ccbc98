package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/sitetasks/domain"
)

type memUsers struct {
	rows map[string]domain.User
	fail error
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) Upsert(_ context.Context, user *domain.User) error {
	if m.fail != nil {
		return m.fail
	}
	m.rows[user.ID] = *user
	return nil
}

func TestIssueToken(t *testing.T) {
	users := &memUsers{rows: map[string]domain.User{"u1": {ID: "u1", DisplayName: "Ana"}}}
	uc := New(users, "s3cret", "sitetasks", nil)

	signed, expires, err := uc.IssueToken(context.Background(), "u1", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", claims["user_id"])
	assert.Equal(t, "sitetasks", claims["iss"])

	_, _, err = uc.IssueToken(context.Background(), "ghost", time.Hour)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, _, err = New(users, "", "", nil).IssueToken(context.Background(), "u1", time.Hour)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
}

func TestUpdateUser(t *testing.T) {
	users := &memUsers{rows: map[string]domain.User{}}
	uc := New(users, "", "", nil)

	saved, err := uc.UpdateUser(context.Background(), &domain.User{ID: "u2", DisplayName: "Lee"})
	require.NoError(t, err)
	assert.Equal(t, "Lee", saved.Name())

	users.fail = errors.New("db down")
	_, err = uc.UpdateUser(context.Background(), &domain.User{ID: "u2"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeRemote))

	_, err = uc.GetUser(context.Background(), "")
	assert.True(t, domain.IsInvalidTransition(err))
}
