package validation

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type registerBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Role     string `json:"role" binding:"required,role"`
}

func bind(t *testing.T, body string) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var b registerBody
	return c.ShouldBindJSON(&b)
}

func TestToDetails(t *testing.T) {
	Init()

	require.NoError(t, bind(t, `{"email":"a@x.com","password":"longenough","role":"doctor"}`))
	require.NoError(t, bind(t, `{"email":"a@x.com","password":"longenough","role":" Patient "}`), "role matching ignores case")

	details := ToDetails(bind(t, `{"email":"nope","password":"short","role":"admin"}`))
	require.Equal(t, "must be a valid email", details["email"])
	require.Equal(t, "must be 8 to 72 characters long", details["password"])
	require.Equal(t, "must be one of: patient, clinic, doctor, pharmacist", details["role"])

	details = ToDetails(bind(t, `{"email":`))
	require.Contains(t, details, "payload")

	require.Nil(t, ToDetails(nil))
}

func TestPasswordAliasUpperBound(t *testing.T) {
	Init()

	long := strings.Repeat("a", 73)
	details := ToDetails(bind(t, `{"email":"a@x.com","password":"`+long+`","role":"clinic"}`))
	require.Equal(t, "must be 8 to 72 characters long", details["password"])

	exact := strings.Repeat("a", 72)
	require.NoError(t, bind(t, `{"email":"a@x.com","password":"`+exact+`","role":"clinic"}`))
}
