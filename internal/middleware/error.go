package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-booking/pkg/httputil"
)

// ErrorHandler answers with the last error a handler attached through
// c.Error when nothing was written yet.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			log.Debug().
				Err(e.Err).
				Str("request_id", c.GetString(ContextRequestID)).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("request error")
		}

		if c.Writer.Written() {
			return
		}
		httputil.RespondWithError(c, c.Errors.Last().Err)
	}
}
