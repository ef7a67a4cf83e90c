package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/healthcare-identity/pkg/helpers"
	"github.com/oksasatya/healthcare-identity/pkg/response"
)

// Context keys set by Auth
const (
	CtxUserIDKey   = "userID"
	CtxUserRoleKey = "userRole"
	CtxUserNameKey = "userName"
)

// Auth validates the session cookie and sets userID, userRole and userName in
// the Gin context. Sessions are stateless, so nothing is looked up server-side.
func Auth(sessions *helpers.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.SessionCookieName)
		if err != nil || token == "" {
			response.Error[any](c, http.StatusUnauthorized, "not authorized, login again", nil)
			c.Abort()
			return
		}
		claims, err := sessions.Parse(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid session", nil)
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, claims.AccountID)
		c.Set(CtxUserRoleKey, claims.Role)
		c.Set(CtxUserNameKey, claims.DisplayName)
		c.Next()
	}
}
