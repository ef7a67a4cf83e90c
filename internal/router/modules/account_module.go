package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/healthcare-identity/internal/interface/http"
	"github.com/oksasatya/healthcare-identity/internal/interface/middleware"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
)

// AccountModule exposes the account directory to signed-in users
type AccountModule struct {
	Handler  *handlers.AccountHandler
	Sessions *helpers.SessionManager
}

func NewAccountModule(h *handlers.AccountHandler, sessions *helpers.SessionManager) *AccountModule {
	return &AccountModule{Handler: h, Sessions: sessions}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	rg.GET("/accounts/search", middleware.Auth(m.Sessions), m.Handler.Search)
}
