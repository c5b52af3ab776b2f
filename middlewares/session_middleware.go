package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-sync/utils"
)

// SessionOwner admits only the user the terminal session currently serves.
// Must run after AuthMiddleware.
func SessionOwner(sessionUser func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := sessionUser()
		if current == "" {
			utils.RespondError(c, http.StatusPreconditionFailed, errors.New("No active session on this terminal"))
			c.Abort()
			return
		}
		if current != c.GetString("userID") {
			utils.RespondError(c, http.StatusForbidden, errors.New("Terminal session belongs to another user"))
			c.Abort()
			return
		}

		c.Next()
	}
}
