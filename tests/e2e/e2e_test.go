//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jageshm/task-manager-api/internal/testutil"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type taskResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	UserID      int64   `json:"user_id"`
}

// TestE2ESmoke exercises the full API against a running server:
// register, login, me, then the task CRUD cycle, then cross-user
// isolation.
func TestE2ESmoke(t *testing.T) {
	baseURL := envOrDefault("TASKS_BASE_URL", "http://localhost:8080")

	email := testutil.UniqueEmail("e2e")
	password := "e2e-password-1"

	// Register
	reg := doJSON(t, baseURL, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	}, http.StatusCreated)
	var regResp authResponse
	decode(t, reg, &regResp)
	if regResp.Token == "" {
		t.Fatal("register returned empty token")
	}

	// Duplicate registration must fail
	doJSON(t, baseURL, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	}, http.StatusBadRequest)

	// Login
	login := doJSON(t, baseURL, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, http.StatusOK)
	var loginResp authResponse
	decode(t, login, &loginResp)
	token := loginResp.Token

	// Me
	me := doJSON(t, baseURL, http.MethodGet, "/auth/me", token, nil, http.StatusOK)
	var meResp struct {
		User struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	decode(t, me, &meResp)
	if meResp.User.Email != email {
		t.Fatalf("me returned wrong email: %s", meResp.User.Email)
	}

	// Unauthenticated access is rejected
	doJSON(t, baseURL, http.MethodGet, "/api/tasks", "", nil, http.StatusUnauthorized)

	// Create a task
	created := doJSON(t, baseURL, http.MethodPost, "/api/tasks", token, map[string]string{
		"title":       "e2e task",
		"description": "created by smoke test",
	}, http.StatusCreated)
	var task taskResponse
	decode(t, created, &task)
	if task.Status != "pending" {
		t.Fatalf("expected default status pending, got %s", task.Status)
	}
	if task.UserID != meResp.User.ID {
		t.Fatalf("task owner %d does not match authenticated user %d", task.UserID, meResp.User.ID)
	}

	// List contains it
	list := doJSON(t, baseURL, http.MethodGet, "/api/tasks", token, nil, http.StatusOK)
	var tasks []taskResponse
	decode(t, list, &tasks)
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Fatalf("unexpected task list: %+v", tasks)
	}

	// Partial update
	updated := doJSON(t, baseURL, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), token, map[string]string{
		"status": "completed",
	}, http.StatusOK)
	var updatedTask taskResponse
	decode(t, updated, &updatedTask)
	if updatedTask.Status != "completed" {
		t.Fatalf("expected status completed, got %s", updatedTask.Status)
	}
	if updatedTask.Title != "e2e task" {
		t.Fatalf("partial update clobbered title: %s", updatedTask.Title)
	}

	// A second user cannot see or touch the task
	otherEmail := testutil.UniqueEmail("e2e-other")
	other := doJSON(t, baseURL, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    otherEmail,
		"password": password,
	}, http.StatusCreated)
	var otherResp authResponse
	decode(t, other, &otherResp)

	otherList := doJSON(t, baseURL, http.MethodGet, "/api/tasks", otherResp.Token, nil, http.StatusOK)
	var otherTasks []taskResponse
	decode(t, otherList, &otherTasks)
	if len(otherTasks) != 0 {
		t.Fatalf("second user sees %d foreign tasks", len(otherTasks))
	}

	doJSON(t, baseURL, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), otherResp.Token, map[string]string{
		"title": "hijacked",
	}, http.StatusNotFound)
	doJSON(t, baseURL, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), otherResp.Token, nil, http.StatusNotFound)

	// Owner deletes; second delete is a 404
	doJSON(t, baseURL, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), token, nil, http.StatusOK)
	doJSON(t, baseURL, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), token, nil, http.StatusNotFound)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// doJSON issues a request and asserts the response status.
func doJSON(t *testing.T, baseURL, method, path, token string, body any, wantStatus int) []byte {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, wantStatus, resp.StatusCode, data)
	}

	return data
}

func decode(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode response: %v (%s)", err, data)
	}
}
