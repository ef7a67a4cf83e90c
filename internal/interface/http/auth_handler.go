package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/healthcare-identity/internal/application"
	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	repo "github.com/oksasatya/healthcare-identity/internal/domain/repository"
	"github.com/oksasatya/healthcare-identity/internal/interface/middleware"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
	"github.com/oksasatya/healthcare-identity/pkg/response"
	"github.com/oksasatya/healthcare-identity/pkg/validation"
)

// maxAvatarBytes bounds the multipart body accepted by UploadAvatar
const maxAvatarBytes = 5 << 20

type AuthHandler struct {
	Svc     *application.AuthService
	Audit   repo.AuditLogRepository
	Cookies *helpers.CookieManager
	Logger  *logrus.Logger
	// UniformReset hides whether an email exists from send-reset-otp
	UniformReset bool
}

func NewAuthHandler(svc *application.AuthService, audit repo.AuditLogRepository, cookies *helpers.CookieManager, logger *logrus.Logger, uniformReset bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Audit: audit, Cookies: cookies, Logger: logger, UniformReset: uniformReset}
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString(middleware.CtxRealIPKey); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func requestMeta(c *gin.Context) application.RequestMeta {
	return application.RequestMeta{IP: clientIP(c), UserAgent: c.GetHeader("User-Agent")}
}

func (h *AuthHandler) audit(c *gin.Context, accountID, email, action string, metadata map[string]any) {
	if h.Audit == nil {
		return
	}
	entry := &entity.AuditLog{
		AccountID: accountID,
		Email:     entity.NormalizeEmail(email),
		Action:    action,
		IP:        clientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		Metadata:  metadata,
	}
	if err := h.Audit.Insert(context.WithoutCancel(c.Request.Context()), entry); err != nil && h.Logger != nil {
		h.Logger.WithError(err).WithField("action", action).Warn("audit log insert failed")
	}
}

// fail maps a service error onto the response envelope
func (h *AuthHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		if h.Logger != nil {
			h.Logger.WithError(err).WithFields(logrus.Fields{
				"path":       c.FullPath(),
				"request_id": c.GetString("request_id"),
			}).Error("request failed")
		}
		msg = "internal server error"
		if errors.Is(err, application.ErrNotificationFailed) {
			msg = application.ErrNotificationFailed.Error()
		}
	}
	response.Error[any](c, status, msg, nil)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrMissingFields),
		errors.Is(err, application.ErrInvalidRole),
		errors.Is(err, application.ErrPasswordTooShort),
		errors.Is(err, application.ErrPasswordTooLong),
		errors.Is(err, application.ErrDuplicateEmail),
		errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrNotVerified),
		errors.Is(err, application.ErrSuspended),
		errors.Is(err, application.ErrAlreadyVerified),
		errors.Is(err, application.ErrInvalidOTP),
		errors.Is(err, application.ErrOTPExpired):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Role     string `json:"role" binding:"required,role"`
}

// bindProfile decodes the role payload that sits next to the credentials in the register body
func bindProfile(c *gin.Context, role entity.Role) (entity.Profile, error) {
	var p entity.Profile
	var err error
	switch role {
	case entity.RolePatient:
		p.Patient = &entity.PatientProfile{}
		err = c.ShouldBindBodyWith(p.Patient, binding.JSON)
	case entity.RoleClinic:
		p.Clinic = &entity.ClinicProfile{}
		err = c.ShouldBindBodyWith(p.Clinic, binding.JSON)
	case entity.RoleDoctor:
		p.Doctor = &entity.DoctorProfile{}
		err = c.ShouldBindBodyWith(p.Doctor, binding.JSON)
	case entity.RolePharmacist:
		p.Pharmacist = &entity.PharmacistProfile{}
		err = c.ShouldBindBodyWith(p.Pharmacist, binding.JSON)
	default:
		return p, application.ErrInvalidRole
	}
	return p, err
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	role, _ := entity.ParseRole(req.Role)
	profile, err := bindProfile(c, role)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	sum, sess, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     string(role),
		Profile:  profile,
	})
	if err != nil {
		h.audit(c, "", req.Email, "register_failed", map[string]any{"reason": err.Error()})
		h.fail(c, err)
		return
	}
	h.Cookies.Attach(c, sess.Token)
	h.audit(c, sum.ID, sum.Email, "register", map[string]any{"role": sum.Role})
	response.Success(c, http.StatusCreated, sum, "registered", map[string]any{"expires_at": sess.ExpiresAt})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	sum, sess, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.audit(c, "", req.Email, "login_failed", map[string]any{"reason": err.Error()})
		h.fail(c, err)
		return
	}
	h.Cookies.Attach(c, sess.Token)
	h.audit(c, sum.ID, sum.Email, "login", nil)
	response.Success(c, http.StatusOK, sum, "login successful", map[string]any{"expires_at": sess.ExpiresAt})
}

// Logout POST /api/auth/logout. Clearing the cookie is all there is; tokens are stateless.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"logged_out": true}, "logged out", nil)
}

// IsAuthenticated GET /api/auth/is-auth
func (h *AuthHandler) IsAuthenticated(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"id":   c.GetString(middleware.CtxUserIDKey),
		"role": c.GetString(middleware.CtxUserRoleKey),
		"name": c.GetString(middleware.CtxUserNameKey),
	}, "authenticated", nil)
}

// SendVerifyOTP POST /api/auth/send-verify-otp
func (h *AuthHandler) SendVerifyOTP(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.SendVerificationOTP(c.Request.Context(), uid, requestMeta(c)); err != nil {
		h.fail(c, err)
		return
	}
	h.audit(c, uid, "", "verify_otp_sent", nil)
	response.Success[any](c, http.StatusOK, nil, "verification otp sent on email", nil)
}

type verifyAccountRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// VerifyAccount POST /api/auth/verify-account
func (h *AuthHandler) VerifyAccount(c *gin.Context) {
	var req verifyAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.VerifyAccount(c.Request.Context(), uid, req.OTP, requestMeta(c)); err != nil {
		h.audit(c, uid, "", "verify_failed", map[string]any{"reason": err.Error()})
		h.fail(c, err)
		return
	}
	h.audit(c, uid, "", "verify_confirm", nil)
	response.Success[any](c, http.StatusOK, gin.H{"verified": true}, "email verified successfully", nil)
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// SendResetOTP POST /api/auth/send-reset-otp
func (h *AuthHandler) SendResetOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	err := h.Svc.SendResetOTP(c.Request.Context(), req.Email, requestMeta(c))
	if errors.Is(err, application.ErrNotFound) {
		h.audit(c, "", req.Email, "reset_otp_unknown", nil)
		if h.UniformReset {
			response.Success[any](c, http.StatusOK, nil, "if the email is registered, an otp was sent", nil)
			return
		}
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit(c, "", req.Email, "reset_otp_sent", nil)
	msg := "otp sent to your email"
	if h.UniformReset {
		msg = "if the email is registered, an otp was sent"
	}
	response.Success[any](c, http.StatusOK, nil, msg, nil)
}

type verifyResetRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyResetOTP POST /api/auth/verify-reset-otp
func (h *AuthHandler) VerifyResetOTP(c *gin.Context) {
	var req verifyResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.VerifyResetOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"valid": true}, "otp verified", nil)
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"new_password" binding:"required,pwd"`
	OTP         string `json:"otp"`
}

// ResetPassword POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	err := h.Svc.ResetPassword(c.Request.Context(), application.ResetPasswordInput{
		Email:       req.Email,
		NewPassword: req.NewPassword,
		OTP:         req.OTP,
	})
	if err != nil {
		h.audit(c, "", req.Email, "reset_failed", map[string]any{"reason": err.Error()})
		h.fail(c, err)
		return
	}
	h.audit(c, "", req.Email, "reset_confirm", nil)
	response.Success[any](c, http.StatusOK, gin.H{"reset": true}, "password has been reset successfully", nil)
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	sum, err := h.Svc.GetSelf(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, sum, "ok", nil)
}

// UploadAvatar POST /api/auth/me/avatar (multipart field "avatar")
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes+1<<20)
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "avatar file is required", nil)
		return
	}
	if fh.Size > maxAvatarBytes {
		response.Error[any](c, http.StatusBadRequest, "avatar too large", nil)
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Error[any](c, http.StatusBadRequest, "avatar must be an image", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "unreadable upload", nil)
		return
	}
	defer func() { _ = f.Close() }()

	uid := c.GetString(middleware.CtxUserIDKey)
	sum, err := h.Svc.UploadAvatar(c.Request.Context(), uid, f, fh.Filename, contentType)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit(c, uid, sum.Email, "avatar_updated", nil)
	response.Success(c, http.StatusOK, sum, "avatar updated", nil)
}
