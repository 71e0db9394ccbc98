package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/api/transport"
	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/pkg/httpcontext"
	userUC "github.com/fastygo/sitetasks/usecase/user"
)

type AuthHandler struct {
	baseHandler
	uc         *userUC.UseCase
	defaultTTL time.Duration
}

func NewAuthHandler(uc *userUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger, ttl time.Duration) *AuthHandler {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		defaultTTL:  ttl,
	}
}

// @Summary Issue an API token for a directory user
// @Tags auth
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	var req transport.AuthLoginRequest
	if !h.decode(ctx, &req) {
		return
	}
	if req.UserID == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "user_id is required"))
		return
	}
	h.issue(ctx, req.UserID, h.ttlFromRequest(req.TTL))
}

// @Summary Exchange a valid token for a fresh one
// @Tags auth
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}
	var req transport.AuthLoginRequest
	if len(ctx.PostBody()) > 0 && !h.decode(ctx, &req) {
		return
	}
	h.issue(ctx, actor, h.ttlFromRequest(req.TTL))
}

func (h *AuthHandler) issue(ctx *fasthttp.RequestCtx, userID string, ttl time.Duration) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	token, expires, err := h.uc.IssueToken(stdCtx, userID, ttl)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.TokenResponse{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expires,
	})
}

func (h *AuthHandler) ttlFromRequest(ttlSeconds int) time.Duration {
	if ttlSeconds <= 0 {
		return h.defaultTTL
	}
	return time.Duration(ttlSeconds) * time.Second
}
