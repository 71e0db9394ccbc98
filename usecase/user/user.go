// Package user serves the user directory and issues API tokens for it.
package user

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/pkg/logger"
	"github.com/fastygo/sitetasks/repository"
)

type UseCase struct {
	users  repository.UserRepository
	secret []byte
	issuer string
	logger *zap.Logger
}

func New(users repository.UserRepository, secret, issuer string, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		secret: []byte(secret),
		issuer: issuer,
		logger: logger,
	}
}

func (uc *UseCase) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.MissingField("user_id")
	}
	return uc.users.GetByID(ctx, userID)
}

// UpdateUser saves the directory entry; the id always comes from the caller's token.
func (uc *UseCase) UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil || user.ID == "" {
		return nil, domain.ErrInvalidPayload
	}
	if err := uc.users.Upsert(ctx, user); err != nil {
		logger.WithRequestID(ctx, uc.logger).Warn("user upsert failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, domain.RemoteError("save user", err)
	}
	return uc.users.GetByID(ctx, user.ID)
}

// IssueToken signs an HS256 token for a user known to the directory.
func (uc *UseCase) IssueToken(ctx context.Context, userID string, ttl time.Duration) (string, time.Time, error) {
	if len(uc.secret) == 0 {
		return "", time.Time{}, domain.NewError(domain.ErrCodeForbidden, "token issuing is disabled")
	}
	if _, err := uc.GetUser(ctx, userID); err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	expires := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iss":     uc.issuer,
		"iat":     now.Unix(),
		"exp":     expires.Unix(),
	})
	signed, err := token.SignedString(uc.secret)
	if err != nil {
		return "", time.Time{}, domain.WrapError(domain.ErrCodeInternal, "sign token", err)
	}
	return signed, expires, nil
}
