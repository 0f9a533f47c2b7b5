package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking/internal/model"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
	"github.com/jwalitptl/clinic-booking/pkg/httputil"
)

const (
	ContextOperatorID    = "operator_id"
	ContextOperatorEmail = "operator_email"
)

// TokenValidator checks an operator access token.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Authenticate verifies the bearer token and stores the operator in the
// context. Browsers cannot set headers on an EventSource, so an
// access_token query parameter is accepted too.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("access_token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				httputil.RespondWithError(c, apperrors.NewUnauthorized("invalid authorization format", nil))
				c.Abort()
				return
			}
			token = parts[1]
		}
		if token == "" {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("missing authorization header", nil))
			c.Abort()
			return
		}

		claims, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("invalid token", err))
			c.Abort()
			return
		}

		c.Set(ContextOperatorID, claims.OperatorID)
		c.Set(ContextOperatorEmail, claims.Email)
		c.Next()
	}
}

var errNoOperator = errors.New("no operator in context")

// OperatorID returns the operator set by Authenticate.
func OperatorID(c *gin.Context) (uuid.UUID, error) {
	v, ok := c.Get(ContextOperatorID)
	if !ok {
		return uuid.Nil, apperrors.Unauthorized(errNoOperator)
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.Unauthorized(errNoOperator)
	}
	return id, nil
}
