package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jageshm/task-manager-api/internal/auth"
	"github.com/jageshm/task-manager-api/internal/model"
	"github.com/jageshm/task-manager-api/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAuthService implements AuthService with canned responses.
type fakeAuthService struct {
	registerResult *service.AuthResult
	registerErr    error
	loginResult    *service.AuthResult
	loginErr       error
	user           *model.User
	userErr        error
}

func (f *fakeAuthService) Register(ctx context.Context, email, password string) (*service.AuthResult, error) {
	return f.registerResult, f.registerErr
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (*service.AuthResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeAuthService) CurrentUser(ctx context.Context, userID int64) (*model.User, error) {
	return f.user, f.userErr
}

func testUser() *model.User {
	return &model.User{
		ID:        1,
		Email:     "a@x.com",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestAuthHandler_Register(t *testing.T) {
	svc := &fakeAuthService{
		registerResult: &service.AuthResult{Token: "signed-token", User: testUser()},
	}
	h := NewAuthHandler(svc, testLogger())

	rec := postJSON(t, h.Register, "/auth/register", `{"email":"a@x.com","password":"secret1"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["token"] != "signed-token" {
		t.Errorf("expected token in response, got %v", body["token"])
	}
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object, got %v", body["user"])
	}
	if user["email"] != "a@x.com" {
		t.Errorf("expected email in user object, got %v", user["email"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("response must not contain the password hash")
	}
}

func TestAuthHandler_RegisterErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"duplicate_email", service.ErrEmailTaken, http.StatusBadRequest, "EMAIL_TAKEN"},
		{"missing_credentials", service.ErrMissingCredentials, http.StatusBadRequest, "MISSING_CREDENTIALS"},
		{"short_password", service.ErrPasswordTooShort, http.StatusBadRequest, "PASSWORD_TOO_SHORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuthService{registerErr: tt.err}
			h := NewAuthHandler(svc, testLogger())

			rec := postJSON(t, h.Register, "/auth/register", `{"email":"a@x.com","password":"secret1"}`)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if body := decodeBody(t, rec); body["code"] != tt.wantCode {
				t.Errorf("expected code %s, got %v", tt.wantCode, body["code"])
			}
		})
	}
}

func TestAuthHandler_RegisterInvalidJSON(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{}, testLogger())

	rec := postJSON(t, h.Register, "/auth/register", `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["code"] != "INVALID_JSON" {
		t.Errorf("expected code INVALID_JSON, got %v", body["code"])
	}
}

func TestAuthHandler_Login(t *testing.T) {
	svc := &fakeAuthService{
		loginResult: &service.AuthResult{Token: "signed-token", User: testUser()},
	}
	h := NewAuthHandler(svc, testLogger())

	rec := postJSON(t, h.Login, "/auth/login", `{"email":"a@x.com","password":"secret1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["token"] != "signed-token" {
		t.Errorf("expected token in response, got %v", body["token"])
	}
}

func TestAuthHandler_LoginInvalidCredentials(t *testing.T) {
	svc := &fakeAuthService{loginErr: service.ErrInvalidCredentials}
	h := NewAuthHandler(svc, testLogger())

	rec := postJSON(t, h.Login, "/auth/login", `{"email":"a@x.com","password":"wrong"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["code"] != "INVALID_CREDENTIALS" {
		t.Errorf("expected code INVALID_CREDENTIALS, got %v", body["code"])
	}
	if body["error"] != "Invalid credentials" {
		t.Errorf("unexpected error message: %v", body["error"])
	}
}

func TestAuthHandler_Me(t *testing.T) {
	svc := &fakeAuthService{user: testUser()}
	h := NewAuthHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	ctx := auth.ContextWithIdentity(req.Context(), auth.Identity{UserID: 1, Email: "a@x.com"})
	rec := httptest.NewRecorder()

	h.Me(rec, req.WithContext(ctx))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected top-level user object, got %v", body)
	}
	if user["email"] != "a@x.com" {
		t.Errorf("expected email in user object, got %v", user["email"])
	}
	if user["id"] != float64(1) {
		t.Errorf("expected id 1, got %v", user["id"])
	}
}

func TestAuthHandler_MeUserGone(t *testing.T) {
	svc := &fakeAuthService{userErr: service.ErrUserNotFound}
	h := NewAuthHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	ctx := auth.ContextWithIdentity(req.Context(), auth.Identity{UserID: 99, Email: "gone@x.com"})
	rec := httptest.NewRecorder()

	h.Me(rec, req.WithContext(ctx))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}
