// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuportal/authportal/internal/config"
	"github.com/vuportal/authportal/internal/handlers"
	"github.com/vuportal/authportal/internal/models"
	"github.com/vuportal/authportal/internal/repository"
	authsvc "github.com/vuportal/authportal/internal/services/auth"
	"github.com/vuportal/authportal/internal/services/otp"
	"github.com/vuportal/authportal/internal/services/session"
	"github.com/vuportal/authportal/internal/testutil"
)

type fixture struct {
	e        *echo.Echo
	auth     *handlers.AuthHandlers
	user     *handlers.UserHandlers
	repo     *repository.Repository
	mailer   *testutil.FakeMailer
	sessions *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	_, repo := testutil.NewTestDB(t)
	mailer := &testutil.FakeMailer{}
	otpSvc := otp.NewService(repo, mailer, 15*time.Minute)
	authSvc := authsvc.NewService(repo, "vu.edu.pk")

	sessions, err := session.NewManager(&config.SessionConfig{
		CookieName: "portal_session",
		MaxAge:     86400,
	}, false)
	require.NoError(t, err)

	return &fixture{
		e:        echo.New(),
		auth:     handlers.NewAuth(otpSvc, authSvc, sessions),
		user:     handlers.NewUser(authSvc),
		repo:     repo,
		mailer:   mailer,
		sessions: sessions,
	}
}

func (f *fixture) post(path, body string) (echo.Context, *httptest.ResponseRecorder) {
	return testutil.NewEchoContext(f.e, http.MethodPost, path, strings.NewReader(body))
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "portal_session" {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func TestSignup(t *testing.T) {
	f := newFixture(t)

	c, rec := f.post("/api/auth/signup", `{
		"fullName": "Ayesha Khan",
		"username": "ayesha",
		"email": "ayesha@vu.edu.pk",
		"password": "Secret123!"
	}`)

	require.NoError(t, f.auth.Signup(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, f.mailer.Verifications, 1)
	sent := f.mailer.Verifications[0]
	assert.Equal(t, "ayesha@vu.edu.pk", sent.To)
	assert.Len(t, sent.Code, 6)
	assert.Len(t, sent.Token, 64)

	pending, err := f.repo.GetPendingUserByEmail(context.Background(), "ayesha@vu.edu.pk")
	require.NoError(t, err)
	assert.Equal(t, "ayesha", pending.Username)
	assert.NotEqual(t, "Secret123!", pending.Password)
}

func TestSignup_ValidationFailed(t *testing.T) {
	f := newFixture(t)

	c, rec := f.post("/api/auth/signup", `{"fullName": "A"}`)

	require.NoError(t, f.auth.Signup(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Issues []struct {
			Field string `json:"field"`
			Rule  string `json:"rule"`
		} `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Issues)
}

func TestSignup_WrongDomain(t *testing.T) {
	f := newFixture(t)

	c, rec := f.post("/api/auth/signup", `{
		"fullName": "Ayesha Khan",
		"username": "ayesha",
		"email": "ayesha@gmail.com",
		"password": "Secret123!"
	}`)

	require.NoError(t, f.auth.Signup(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "vu.edu.pk")
	assert.Empty(t, f.mailer.Verifications)
}

func TestSignup_EmailTaken(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "existing", "ayesha@vu.edu.pk", "Secret123!")

	c, rec := f.post("/api/auth/signup", `{
		"fullName": "Ayesha Khan",
		"username": "ayesha",
		"email": "ayesha@vu.edu.pk",
		"password": "Secret123!"
	}`)

	require.NoError(t, f.auth.Signup(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already registered")
}

func TestSignup_UsernameTaken(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "ayesha", "other@vu.edu.pk", "Secret123!")

	c, rec := f.post("/api/auth/signup", `{
		"fullName": "Ayesha Khan",
		"username": "ayesha",
		"email": "ayesha@vu.edu.pk",
		"password": "Secret123!"
	}`)

	require.NoError(t, f.auth.Signup(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "username already taken")
}

func TestVerify_NumericCode(t *testing.T) {
	f := newFixture(t)

	c, rec := f.post("/api/auth/signup", `{
		"fullName": "Ayesha Khan",
		"username": "ayesha",
		"email": "ayesha@vu.edu.pk",
		"password": "Secret123!"
	}`)
	require.NoError(t, f.auth.Signup(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	code := f.mailer.Verifications[0].Code

	c, rec = f.post("/api/auth/verify", `{"email": "ayesha@vu.edu.pk", "code": "`+code+`"}`)
	require.NoError(t, f.auth.Verify(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)

	user, err := f.repo.GetUserByEmail(context.Background(), "ayesha@vu.edu.pk")
	require.NoError(t, err)
	assert.Equal(t, "ayesha", user.Username)

	_, err = f.repo.GetPendingUserByEmail(context.Background(), "ayesha@vu.edu.pk")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestVerify_MagicLinkToken(t *testing.T) {
	f := newFixture(t)

	c, _ := f.post("/api/auth/signup", `{
		"fullName": "Ayesha Khan",
		"username": "ayesha",
		"email": "ayesha@vu.edu.pk",
		"password": "Secret123!"
	}`)
	require.NoError(t, f.auth.Signup(c))
	token := f.mailer.Verifications[0].Token

	c, rec := f.post("/api/auth/verify", `{"email": "ayesha@vu.edu.pk", "code": "`+token+`"}`)
	require.NoError(t, f.auth.Verify(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerify_WrongCode(t *testing.T) {
	f := newFixture(t)

	c, _ := f.post("/api/auth/signup", `{
		"fullName": "Ayesha Khan",
		"username": "ayesha",
		"email": "ayesha@vu.edu.pk",
		"password": "Secret123!"
	}`)
	require.NoError(t, f.auth.Signup(c))

	c, rec := f.post("/api/auth/verify", `{"email": "ayesha@vu.edu.pk", "code": "000000"}`)
	require.NoError(t, f.auth.Verify(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired code")
}

func TestVerify_NoPendingSignup(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestOtpCode(t, f.repo, "ayesha@vu.edu.pk", "492017", models.OtpKindNumeric, time.Now().Add(10*time.Minute))

	c, rec := f.post("/api/auth/verify", `{"email": "ayesha@vu.edu.pk", "code": "492017"}`)
	require.NoError(t, f.auth.Verify(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No pending registration found")
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "ayesha", "ayesha@vu.edu.pk", "Secret123!")

	c, rec := f.post("/api/auth/login", `{"email": "ayesha@vu.edu.pk", "password": "Secret123!"}`)
	require.NoError(t, f.auth.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(t, rec)
	sess, err := f.sessions.Parse(&http.Request{Header: http.Header{"Cookie": []string{cookie.String()}}})
	require.NoError(t, err)
	assert.Equal(t, "ayesha", sess.Username)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "ayesha", "ayesha@vu.edu.pk", "Secret123!")

	c, rec := f.post("/api/auth/login", `{"email": "ayesha@vu.edu.pk", "password": "wrong"}`)
	require.NoError(t, f.auth.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	f := newFixture(t)

	c, rec := f.post("/api/auth/login", `{"email": "nobody@vu.edu.pk", "password": "Secret123!"}`)
	require.NoError(t, f.auth.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestLogout(t *testing.T) {
	f := newFixture(t)

	c, rec := f.post("/api/auth/logout", "")
	require.NoError(t, f.auth.Logout(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(t, rec)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.Empty(t, cookie.Value)
}

func TestForgotPassword_UnknownEmailStillOK(t *testing.T) {
	f := newFixture(t)

	c, rec := f.post("/api/auth/forgot-password", `{"email": "nobody@vu.edu.pk"}`)
	require.NoError(t, f.auth.ForgotPassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.mailer.Resets)
}

func TestResetPasswordFlow(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "ayesha", "ayesha@vu.edu.pk", "OldSecret1!")

	c, rec := f.post("/api/auth/forgot-password", `{"email": "ayesha@vu.edu.pk"}`)
	require.NoError(t, f.auth.ForgotPassword(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.mailer.Resets, 1)
	code := f.mailer.Resets[0].Code

	c, rec = f.post("/api/auth/reset-password", `{
		"email": "ayesha@vu.edu.pk",
		"code": "`+code+`",
		"password": "NewSecret1!"
	}`)
	require.NoError(t, f.auth.ResetPassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Old password no longer works, new one does.
	c, rec = f.post("/api/auth/login", `{"email": "ayesha@vu.edu.pk", "password": "OldSecret1!"}`)
	require.NoError(t, f.auth.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = f.post("/api/auth/login", `{"email": "ayesha@vu.edu.pk", "password": "NewSecret1!"}`)
	require.NoError(t, f.auth.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResetPassword_WrongCode(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "ayesha", "ayesha@vu.edu.pk", "Secret123!")

	c, rec := f.post("/api/auth/reset-password", `{
		"email": "ayesha@vu.edu.pk",
		"code": "000000",
		"password": "NewSecret1!"
	}`)
	require.NoError(t, f.auth.ResetPassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired code")
}

func TestVerifyEmail_MagicLink(t *testing.T) {
	f := newFixture(t)

	c, _ := f.post("/api/auth/signup", `{
		"fullName": "Ayesha Khan",
		"username": "ayesha",
		"email": "ayesha@vu.edu.pk",
		"password": "Secret123!"
	}`)
	require.NoError(t, f.auth.Signup(c))
	token := f.mailer.Verifications[0].Token

	c, rec := testutil.NewEchoContext(f.e, http.MethodGet, "/verify-email?token="+token, nil)
	require.NoError(t, f.auth.VerifyEmail(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	sessionCookie(t, rec)
}

func TestVerifyEmail_MissingToken(t *testing.T) {
	f := newFixture(t)

	c, rec := testutil.NewEchoContext(f.e, http.MethodGet, "/verify-email", nil)
	require.NoError(t, f.auth.VerifyEmail(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyEmail_UnknownToken(t *testing.T) {
	f := newFixture(t)

	c, rec := testutil.NewEchoContext(f.e, http.MethodGet, "/verify-email?token=deadbeef", nil)
	require.NoError(t, f.auth.VerifyEmail(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired code")
}
