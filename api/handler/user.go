package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/api/transport"
	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/pkg/httpcontext"
	userUC "github.com/fastygo/sitetasks/usecase/user"
)

type UserHandler struct {
	baseHandler
	uc *userUC.UseCase
}

func NewUserHandler(uc *userUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Get a directory entry; "me" is the caller
// @Tags users
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) GetUser(ctx *fasthttp.RequestCtx) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}
	id := pathValue(ctx, "id")
	if id == "me" {
		id = actor
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.GetUser(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary Update the caller's directory entry
// @Tags users
// @Accept json
// @Produce json
// @Router /api/v1/users/me [put]
func (h *UserHandler) UpdateMe(ctx *fasthttp.RequestCtx) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}

	var req transport.UserUpdateRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.UpdateUser(stdCtx, &domain.User{
		ID:          actor,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Role:        req.Role,
		Metadata:    req.Meta,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}
