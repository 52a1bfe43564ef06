package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskrupee/backend/internal/handlers"
	"github.com/taskrupee/backend/internal/models"
	"github.com/taskrupee/backend/internal/services/ledger"
	"github.com/taskrupee/backend/internal/services/referral"
	"github.com/taskrupee/backend/internal/testutil"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	cfg := testutil.TestConfig()
	referralSvc := referral.NewService(db, ledger.NewService(db), cfg)

	router := gin.New()
	handler := handlers.NewAuthHandler(db, referralSvc, cfg)
	router.POST("/signup", handler.Signup)
	router.POST("/login", handler.Login)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func signupBody(email string) map[string]string {
	return map[string]string{
		"email":      email,
		"password":   "s3cret-pass",
		"first_name": "Asha",
		"last_name":  "Verma",
	}
}

func TestSignupAndLogin(t *testing.T) {
	router := newAuthRouter(t)

	rec := postJSON(t, router, "/signup", signupBody("asha@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Token)
	assert.NotEmpty(t, created.User.ReferralCode)
	assert.Equal(t, models.KYCStatusNotSubmitted, created.User.KYCStatus)

	rec = postJSON(t, router, "/login", map[string]string{
		"email":    "asha@example.com",
		"password": "s3cret-pass",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/login", map[string]string{
		"email":    "asha@example.com",
		"password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignupDuplicateEmailConflict(t *testing.T) {
	router := newAuthRouter(t)

	require.Equal(t, http.StatusCreated, postJSON(t, router, "/signup", signupBody("dup@example.com")).Code)

	// The unique index catches the duplicate, including case variants
	assert.Equal(t, http.StatusConflict, postJSON(t, router, "/signup", signupBody("dup@example.com")).Code)
	assert.Equal(t, http.StatusConflict, postJSON(t, router, "/signup", signupBody("DUP@example.com")).Code)
}
