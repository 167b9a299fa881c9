package middleware

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"statapi/src/infra/db"
)

// ConnectionScope attaches an empty connection scope to every request and
// returns whatever the request checked out when the handler chain unwinds,
// panics included. The scope's default database is the first segment of the
// matched route when it names a configured database.
func ConnectionScope(reg *db.Registry, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := db.NameFromRoute(c.FullPath())
		if !reg.Has(name) {
			name = ""
		}

		scope := reg.NewScope(name)
		ctx := db.WithScope(c.Request.Context(), scope)
		c.Request = c.Request.WithContext(ctx)

		defer func() {
			// Release even when the client has gone away.
			if err := scope.Close(context.WithoutCancel(ctx)); err != nil {
				log.ErrorContext(ctx, "failed to release request connections", "error", err)
			}
		}()

		c.Next()
	}
}
