package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/clinic-booking/internal/model"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
)

type stubService struct {
	services []*model.Service
	err      error
}

func (s stubService) ListVisible(ctx context.Context) ([]*model.Service, error) {
	return s.services, s.err
}

func serve(svc Service) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/services", nil))
	return w
}

func TestListServices(t *testing.T) {
	w := serve(stubService{services: []*model.Service{{ID: uuid.New(), Title: "حشوات تجميلية"}}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "حشوات تجميلية")

	w = serve(stubService{err: apperrors.NewInternal(errors.New("db down"))})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}
