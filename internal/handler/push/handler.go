package push

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking/internal/middleware"
	"github.com/jwalitptl/clinic-booking/internal/model"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
	"github.com/jwalitptl/clinic-booking/pkg/httputil"
)

type Service interface {
	Save(ctx context.Context, operatorID uuid.UUID, sub *model.PushSubscription) (*model.PushSubscription, error)
	Get(ctx context.Context, operatorID uuid.UUID) (*model.PushSubscription, error)
	Delete(ctx context.Context, operatorID uuid.UUID) error
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes expects an authenticated group; the subscription always
// belongs to the calling operator.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/push-subscription", h.GetSubscription)
	admin.PUT("/push-subscription", h.SaveSubscription)
	admin.DELETE("/push-subscription", h.DeleteSubscription)
}

func (h *Handler) SaveSubscription(c *gin.Context) {
	operatorID, err := middleware.OperatorID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var sub model.PushSubscription
	if err := c.ShouldBindJSON(&sub); err != nil {
		httputil.RespondWithError(c, apperrors.NewBadRequest("invalid request body", err))
		return
	}

	saved, err := h.svc.Save(c.Request.Context(), operatorID, &sub)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, saved)
}

func (h *Handler) GetSubscription(c *gin.Context) {
	operatorID, err := middleware.OperatorID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	sub, err := h.svc.Get(c.Request.Context(), operatorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, sub)
}

func (h *Handler) DeleteSubscription(c *gin.Context) {
	operatorID, err := middleware.OperatorID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), operatorID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
