package handler

import (
	"github.com/gin-gonic/gin"

	"statapi/src/app/http/response"
)

// Index greets the caller.
// GET / and GET /index
func Index(serviceName string) gin.HandlerFunc {
	greeting := "Welcome to " + serviceName
	return func(c *gin.Context) {
		response.OK(c, greeting)
	}
}
