package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-booking/internal/model"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
	"github.com/jwalitptl/clinic-booking/pkg/httputil"
)

type Service interface {
	Login(ctx context.Context, email, password string) (*model.LoginResponse, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewBadRequest("email and password are required", err))
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, resp)
}
