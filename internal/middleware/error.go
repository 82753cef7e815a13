package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/account-policy/pkg/errors"
)

// ErrorLogger logs the errors handlers attached with c.Error. The response
// has already been written by then; server errors are logged at error
// level and client errors at debug.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			level := zerolog.DebugLevel
			if errors.CodeOf(e.Err).HTTPStatus() >= http.StatusInternalServerError {
				level = zerolog.ErrorLevel
			}

			log.WithLevel(level).
				Err(e.Err).
				Str("request_id", c.GetString(ContextRequestID)).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}
	}
}
