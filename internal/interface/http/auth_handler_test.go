package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/healthcare-identity/internal/application"
	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	"github.com/oksasatya/healthcare-identity/internal/infrastructure/memory"
	"github.com/oksasatya/healthcare-identity/internal/interface/middleware"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
	"github.com/oksasatya/healthcare-identity/pkg/validation"
)

type inbox struct {
	mu  sync.Mutex
	msg []application.Notification
}

func (i *inbox) Notify(_ context.Context, n application.Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.msg = append(i.msg, n)
	return nil
}

func (i *inbox) lastCode(t *testing.T) string {
	t.Helper()
	i.mu.Lock()
	defer i.mu.Unlock()
	require.NotEmpty(t, i.msg)
	return i.msg[len(i.msg)-1].Code
}

type uploads struct{}

func (uploads) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return "https://storage.googleapis.com/b/" + objectPath, nil
}

type server struct {
	engine *gin.Engine
	inbox  *inbox
	audit  *memory.AuditLogRepository
	repo   *memory.AccountRepository
	auth   *AuthHandler
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := memory.NewAccountRepository()
	box := &inbox{}
	sessions := helpers.NewSessionManager("handler-secret", time.Hour)
	svc := application.NewAuthService(repo, application.NewIdentityResolver(repo, nil, logger),
		application.NewOTPEngine(repo, application.DefaultOTPTTL), sessions, box, nil, uploads{}, logger,
		application.Options{ResetURL: "http://localhost:5173/reset-password"})
	audit := memory.NewAuditLogRepository()
	h := NewAuthHandler(svc, audit, helpers.NewCookie("", false, 7*24*time.Hour), logger, false)
	acc := NewAccountHandler(svc, logger)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	api := r.Group("/api")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)
	api.POST("/auth/send-reset-otp", h.SendResetOTP)
	api.POST("/auth/verify-reset-otp", h.VerifyResetOTP)
	api.POST("/auth/reset-password", h.ResetPassword)
	authed := api.Group("/", middleware.Auth(sessions))
	authed.GET("/auth/is-auth", h.IsAuthenticated)
	authed.POST("/auth/send-verify-otp", h.SendVerifyOTP)
	authed.POST("/auth/verify-account", h.VerifyAccount)
	authed.GET("/auth/me", h.Me)
	authed.POST("/auth/me/avatar", h.UploadAvatar)
	authed.GET("/accounts/search", acc.Search)

	return &server{engine: r, inbox: box, audit: audit, repo: repo, auth: h}
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func (s *server) do(t *testing.T, method, path string, body any, cookie *http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == helpers.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", helpers.SessionCookieName)
	return nil
}

func registerBody(email string) map[string]any {
	return map[string]any{
		"email":          email,
		"password":       "hunter22!",
		"role":           "doctor",
		"full_name":      "Dr. Grey",
		"specialization": "surgery",
	}
}

func TestRegisterSetsCookieAndRejectsDuplicates(t *testing.T) {
	s := newServer(t)

	w, env := s.do(t, http.MethodPost, "/api/auth/register", registerBody("grey@x.com"), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.True(t, env.Success)
	c := sessionCookie(t, w)
	require.True(t, c.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, c.SameSite)

	var sum application.AccountSummary
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	require.Equal(t, entity.RoleDoctor, sum.Role)
	require.Equal(t, "Dr. Grey", sum.DisplayName)
	require.Equal(t, "surgery", sum.Profile.Doctor.Specialization)
	require.NotContains(t, string(env.Data), "password")

	w, env = s.do(t, http.MethodPost, "/api/auth/register", registerBody("GREY@x.com"), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, application.ErrDuplicateEmail.Error(), env.Message)
	require.Contains(t, s.audit.Actions(), "register_failed")
}

func TestRegisterValidation(t *testing.T) {
	s := newServer(t)

	body := registerBody("a@x.com")
	body["role"] = "admin"
	w, env := s.do(t, http.MethodPost, "/api/auth/register", body, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, string(env.Error), "role")

	body = registerBody("a@x.com")
	body["password"] = "short"
	w, _ = s.do(t, http.MethodPost, "/api/auth/register", body, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body = registerBody("a@x.com")
	delete(body, "full_name")
	w, env = s.do(t, http.MethodPost, "/api/auth/register", body, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, application.ErrMissingFields.Error(), env.Message)
}

func TestFullVerificationAndLoginFlow(t *testing.T) {
	s := newServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/auth/register", registerBody("grey@x.com"), nil)
	cookie := sessionCookie(t, w)

	// unverified accounts cannot log in
	w, env := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "grey@x.com", "password": "hunter22!"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, application.ErrNotVerified.Error(), env.Message)

	w, _ = s.do(t, http.MethodPost, "/api/auth/send-verify-otp", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/auth/send-verify-otp", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotContains(t, w.Body.String(), s.inbox.lastCode(t), "codes are never echoed")

	w, env = s.do(t, http.MethodPost, "/api/auth/verify-account", map[string]string{"otp": "not-it"}, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, application.ErrInvalidOTP.Error(), env.Message)

	w, _ = s.do(t, http.MethodPost, "/api/auth/verify-account", map[string]string{"otp": s.inbox.lastCode(t)}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "grey@x.com", "password": "wrong-pass"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, application.ErrInvalidCredentials.Error(), env.Message)

	w, _ = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "grey@x.com", "password": "hunter22!"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	fresh := sessionCookie(t, w)

	w, env = s.do(t, http.MethodGet, "/api/auth/me", nil, fresh)
	require.Equal(t, http.StatusOK, w.Code)
	var me application.AccountSummary
	require.NoError(t, json.Unmarshal(env.Data, &me))
	require.True(t, me.IsAccountVerified)
	require.NotNil(t, me.LastLogin)

	w, env = s.do(t, http.MethodGet, "/api/auth/is-auth", nil, fresh)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, string(env.Data), `"role":"doctor"`)

	require.Subset(t, s.audit.Actions(), []string{"register", "verify_otp_sent", "verify_confirm", "login_failed", "login"})
}

func TestLogoutClearsCookieWithoutSession(t *testing.T) {
	s := newServer(t)
	w, env := s.do(t, http.MethodPost, "/api/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)
	c := sessionCookie(t, w)
	require.Equal(t, "", c.Value)
	require.True(t, c.MaxAge < 0)
}

func TestPasswordResetOverHTTP(t *testing.T) {
	s := newServer(t)
	s.do(t, http.MethodPost, "/api/auth/register", registerBody("grey@x.com"), nil)

	w, _ := s.do(t, http.MethodPost, "/api/auth/send-reset-otp", map[string]string{"email": "ghost@x.com"}, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	s.auth.UniformReset = true
	w, _ = s.do(t, http.MethodPost, "/api/auth/send-reset-otp", map[string]string{"email": "ghost@x.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	s.auth.UniformReset = false

	w, _ = s.do(t, http.MethodPost, "/api/auth/send-reset-otp", map[string]string{"email": "grey@x.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	code := s.inbox.lastCode(t)

	w, _ = s.do(t, http.MethodPost, "/api/auth/verify-reset-otp", map[string]string{"email": "grey@x.com", "otp": "000000x"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/auth/verify-reset-otp", map[string]string{"email": "grey@x.com", "otp": code}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/reset-password", map[string]string{"email": "grey@x.com", "new_password": "brand-new-pass", "otp": code}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	a, err := s.repo.FindByEmail(context.Background(), entity.RoleDoctor, "grey@x.com")
	require.NoError(t, err)
	ok, err := helpers.VerifyPassword("brand-new-pass", a.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, a.ResetOTP.IsEmpty())
}

func TestUploadAvatar(t *testing.T) {
	s := newServer(t)
	w, _ := s.do(t, http.MethodPost, "/api/auth/register", registerBody("grey@x.com"), nil)
	cookie := sessionCookie(t, w)

	upload := func(contentType string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="avatar"; filename="me.png"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, _ = part.Write([]byte("\x89PNG"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/me/avatar", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		s.engine.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusBadRequest, upload("text/plain").Code)
	rec := upload("image/png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "https://storage.googleapis.com/b/avatars/doctor/")
}

func TestSearchWithoutIndexReturnsEmpty(t *testing.T) {
	s := newServer(t)
	w, _ := s.do(t, http.MethodPost, "/api/auth/register", registerBody("grey@x.com"), nil)
	cookie := sessionCookie(t, w)

	w, _ = s.do(t, http.MethodGet, "/api/accounts/search", nil, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/accounts/search?q=grey", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)
	require.Contains(t, w.Body.String(), `"count":0`)
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusNotFound, statusFor(application.ErrNotFound))
	require.Equal(t, http.StatusBadRequest, statusFor(application.ErrOTPExpired))
	require.Equal(t, http.StatusServiceUnavailable, statusFor(application.ErrStorageUnavailable))
	require.Equal(t, http.StatusInternalServerError, statusFor(application.ErrNotificationFailed))
	require.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}

func TestRegisterPasswordBoundsAndRoleCase(t *testing.T) {
	s := newServer(t)

	body := registerBody("long@x.com")
	body["password"] = strings.Repeat("a", 80)
	w, env := s.do(t, http.MethodPost, "/api/auth/register", body, nil)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	require.False(t, env.Success)

	body = registerBody("grey@x.com")
	body["role"] = "Doctor"
	w, env = s.do(t, http.MethodPost, "/api/auth/register", body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sum application.AccountSummary
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	require.Equal(t, entity.RoleDoctor, sum.Role)
}

func TestStatusForCredentialErrors(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, statusFor(application.ErrPasswordTooLong))
	require.Equal(t, http.StatusBadRequest, statusFor(application.ErrInvalidCredentials))
	require.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("verify password: %w", helpers.ErrCorruptCredential)))
}
