package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/healthcare-identity/internal/interface/http"
	"github.com/oksasatya/healthcare-identity/internal/interface/middleware"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
)

// AuthModule wires the authentication routes under /auth
// Public: register, login, logout, send-reset-otp, verify-reset-otp, reset-password
// Protected: is-auth, send-verify-otp, verify-account, me, me/avatar
type AuthModule struct {
	Handler  *handlers.AuthHandler
	Sessions *helpers.SessionManager
}

func NewAuthModule(h *handlers.AuthHandler, sessions *helpers.SessionManager) *AuthModule {
	return &AuthModule{Handler: h, Sessions: sessions}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")

	auth.POST("/register", m.Handler.Register)
	auth.POST("/login", m.Handler.Login)
	auth.POST("/logout", m.Handler.Logout)
	auth.POST("/send-reset-otp", m.Handler.SendResetOTP)
	auth.POST("/verify-reset-otp", m.Handler.VerifyResetOTP)
	auth.POST("/reset-password", m.Handler.ResetPassword)

	protected := auth.Group("/")
	protected.Use(middleware.Auth(m.Sessions))
	{
		protected.GET("/is-auth", m.Handler.IsAuthenticated)
		protected.POST("/send-verify-otp", m.Handler.SendVerifyOTP)
		protected.POST("/verify-account", m.Handler.VerifyAccount)
		protected.GET("/me", m.Handler.Me)
		protected.POST("/me/avatar", m.Handler.UploadAvatar)
	}
}
