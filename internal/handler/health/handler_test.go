package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)

	healthy := NewHandler(map[string]Check{
		"database": func(context.Context) error { return nil },
	})
	failing := NewHandler(map[string]Check{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	for _, tt := range []struct {
		h      *Handler
		status int
		want   string
	}{
		{healthy, http.StatusOK, "UP"},
		{failing, http.StatusServiceUnavailable, "DOWN"},
	} {
		r := gin.New()
		tt.h.RegisterRoutes(r)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, tt.status, w.Code)

		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tt.want, body.Status)
		assert.Equal(t, "UP", body.Checks["database"])
	}

	r := gin.New()
	healthy.RegisterRoutes(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
