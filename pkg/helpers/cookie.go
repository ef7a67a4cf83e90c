package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the cookie carrying the session token
const SessionCookieName = "token"

// CookieManager attaches and clears the session cookie. Production mode
// switches to Secure + SameSite=None for cross-site front ends.
type CookieManager struct {
	Domain     string
	Production bool
	MaxAge     time.Duration
}

func NewCookie(domain string, production bool, maxAge time.Duration) *CookieManager {
	return &CookieManager{Domain: domain, Production: production, MaxAge: maxAge}
}

func (m *CookieManager) sameSite() http.SameSite {
	if m.Production {
		return http.SameSiteNoneMode
	}
	return http.SameSiteStrictMode
}

// Attach sets the session cookie
func (m *CookieManager) Attach(c *gin.Context, token string) {
	c.SetSameSite(m.sameSite())
	c.SetCookie(SessionCookieName, token, int(m.MaxAge.Seconds()), "/", m.Domain, m.Production, true)
}

// Clear expires the session cookie with the same flags used by Attach so
// browsers actually drop it.
func (m *CookieManager) Clear(c *gin.Context) {
	c.SetSameSite(m.sameSite())
	c.SetCookie(SessionCookieName, "", -1, "/", m.Domain, m.Production, true)
}
