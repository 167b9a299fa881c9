package middleware

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"statapi/src/app/http/response"
	"statapi/src/core/domain"
)

// Errors turns errors reported by handlers with c.Error into the uniform
// error payload. Handlers return right after c.Error and write nothing.
// Errors without a domain meaning are logged in full and answered with the
// generic internal error.
func Errors(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		ctx := c.Request.Context()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		}
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) && domainErr.Cause != nil {
			attrs = append(attrs, "cause", domainErr.Cause)
		}

		if domainErr != nil && !domain.IsUnavailable(err) {
			log.WarnContext(ctx, "request failed", attrs...)
		} else {
			log.ErrorContext(ctx, "request failed", attrs...)
		}

		if c.Writer.Written() {
			return
		}
		response.FromDomainError(c, err, GetRequestID(c))
	}
}
