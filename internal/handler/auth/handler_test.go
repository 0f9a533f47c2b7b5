package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/clinic-booking/internal/model"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
)

type stubService struct{}

func (stubService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	if password != "password123" {
		return nil, apperrors.NewUnauthorized("invalid credentials", nil)
	}
	return &model.LoginResponse{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func TestLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(stubService{}).RegisterRoutes(r.Group("/api/v1"))

	login := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := login(`{"email":"ops@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"tok"`)

	w = login(`{"email":"ops@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid credentials")

	w = login(`{"email":"not-an-email","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
