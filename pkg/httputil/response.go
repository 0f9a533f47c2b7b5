package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    interface{}            `json:"data,omitempty"`
	Errors  []apperrors.FieldError `json:"errors,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError sends an error response. Errors that are not AppErrors
// are reported as a generic internal error and logged.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}

	status := appErr.StatusCode()
	message := appErr.Message
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString("request_id")).
			Msg("request failed")
		message = "internal server error"
	}

	c.JSON(status, Response{
		Status:  "error",
		Message: message,
		Errors:  appErr.Fields,
	})
}
