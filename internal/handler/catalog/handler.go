package catalog

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/pkg/httputil"
)

type Service interface {
	ListVisible(ctx context.Context) ([]*model.Service, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/services", h.ListServices)
}

func (h *Handler) ListServices(c *gin.Context) {
	services, err := h.svc.ListVisible(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=60")
	httputil.RespondWithSuccess(c, http.StatusOK, services)
}
