package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/quicktask/quicktask-api/internal/api"
	"github.com/quicktask/quicktask-api/internal/config"
	"github.com/quicktask/quicktask-api/internal/events"
	"github.com/quicktask/quicktask-api/internal/platform/memory"
	"github.com/quicktask/quicktask-api/internal/reminder"
	"github.com/quicktask/quicktask-api/internal/service/auth"
)

// capturingQueue records the jobs the reminder scheduler derives from task
// mutations, so tests can assert on fire times without running workers.
type capturingQueue struct {
	mu   sync.Mutex
	jobs []reminder.Job
}

var _ reminder.Queue = (*capturingQueue)(nil)

func (q *capturingQueue) Enqueue(ctx context.Context, job reminder.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *capturingQueue) CancelTask(ctx context.Context, taskID uuid.UUID) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	kept := q.jobs[:0]
	for _, job := range q.jobs {
		if job.TaskID == taskID {
			removed++
			continue
		}
		kept = append(kept, job)
	}
	q.jobs = kept
	return removed, nil
}

func (q *capturingQueue) snapshot() []reminder.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]reminder.Job(nil), q.jobs...)
}

type testServer struct {
	server *httptest.Server
	queue  *capturingQueue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            "api-test-secret-thats-at-least-32-chars",
		TokenLifetimeMinutes: 30,
	})
	require.NoError(t, err)

	queue := &capturingQueue{}
	scheduler := reminder.NewScheduler(queue, time.Second, nil)

	emitter := events.NewInMemoryEventEmitter(nil)
	emitter.RegisterHandler(reminder.NewEventHandler(scheduler, nil))

	router := newRouter(
		memory.NewUserStore(),
		memory.NewTaskStore(),
		jwtService,
		auth.NewBcryptHasher(bcrypt.MinCost),
		emitter,
		nil,
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{server: srv, queue: queue}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, payload
}

func (ts *testServer) register(t *testing.T, username, email, password string) {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/auth/register", "", api.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "register failed: %s", body)
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/auth/token", "", api.TokenRequest{
		Username: username,
		Password: password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login failed: %s", body)

	var token api.TokenResponse
	require.NoError(t, json.Unmarshal(body, &token))
	require.Equal(t, "bearer", token.TokenType)
	require.NotEmpty(t, token.AccessToken)
	return token.AccessToken
}

func TestRegistrationAndLogin(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.register(t, "alice", "alice@example.com", "pw1")

	t.Run("duplicate username", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodPost, "/auth/register", "", api.RegisterRequest{
			Username: "alice", Email: "other@example.com", Password: "pw2",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(body), "Username already registered")
	})

	t.Run("duplicate email", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodPost, "/auth/register", "", api.RegisterRequest{
			Username: "alice2", Email: "alice@example.com", Password: "pw2",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(body), "Email already registered")
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, _ := ts.do(t, http.MethodPost, "/auth/token", "", api.TokenRequest{
			Username: "alice", Password: "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
	})

	t.Run("unknown user", func(t *testing.T) {
		resp, _ := ts.do(t, http.MethodPost, "/auth/token", "", api.TokenRequest{
			Username: "mallory", Password: "pw1",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("successful login and me", func(t *testing.T) {
		token := ts.login(t, "alice", "pw1")

		resp, body := ts.do(t, http.MethodGet, "/users/me", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var me api.UserResponse
		require.NoError(t, json.Unmarshal(body, &me))
		assert.Equal(t, "alice", me.Username)
		assert.Equal(t, "alice@example.com", me.Email)
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	t.Run("missing header", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodGet, "/tasks", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
		assert.Contains(t, string(body), "Authorization header required")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.server.URL+"/tasks", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Basic abc123")

		resp, err := ts.server.Client().Do(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, string(body), "Invalid authorization format")
	})

	t.Run("garbage token", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodGet, "/tasks", "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, string(body), "Invalid token")
	})
}

func TestTaskLifecycle(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.register(t, "alice", "alice@example.com", "pw1")
	token := ts.login(t, "alice", "pw1")

	deadline := time.Now().UTC().Add(time.Hour).Truncate(time.Second)

	resp, body := ts.do(t, http.MethodPost, "/tasks", token, api.CreateTaskRequest{
		Title:     "Submit report",
		Deadline:  deadline,
		Reminders: []int{600, 60},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "create failed: %s", body)

	var created api.TaskResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "alice", created.Owner)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, []int{600, 60}, created.Reminders)

	t.Run("one reminder job per offset", func(t *testing.T) {
		jobs := ts.queue.snapshot()
		require.Len(t, jobs, 2)
		assert.True(t, jobs[0].FireAt.Equal(deadline.Add(-600*time.Second)))
		assert.True(t, jobs[1].FireAt.Equal(deadline.Add(-60*time.Second)))
		for _, job := range jobs {
			assert.Equal(t, created.ID, job.TaskID)
			assert.Equal(t, "alice@example.com", job.Payload.Recipient)
			assert.Equal(t, "Reminder: Submit report", job.Payload.Subject)
		}
	})

	t.Run("list", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodGet, "/tasks", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var tasks []api.TaskResponse
		require.NoError(t, json.Unmarshal(body, &tasks))
		require.Len(t, tasks, 1)
		assert.Equal(t, created.ID, tasks[0].ID)
	})

	t.Run("get by id", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodGet, "/tasks/"+created.ID.String(), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var task api.TaskResponse
		require.NoError(t, json.Unmarshal(body, &task))
		assert.Equal(t, "Submit report", task.Title)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		resp, _ := ts.do(t, http.MethodGet, "/tasks/not-a-uuid", token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("another user's view is not found", func(t *testing.T) {
		ts.register(t, "bob", "bob@example.com", "pw2")
		bobToken := ts.login(t, "bob", "pw2")

		resp, _ := ts.do(t, http.MethodGet, "/tasks/"+created.ID.String(), bobToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, _ = ts.do(t, http.MethodDelete, "/tasks/"+created.ID.String(), bobToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, body := ts.do(t, http.MethodGet, "/tasks", bobToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var tasks []api.TaskResponse
		require.NoError(t, json.Unmarshal(body, &tasks))
		assert.Empty(t, tasks, "bob must not see alice's tasks")
	})

	t.Run("title-only update keeps the jobs", func(t *testing.T) {
		title := "Submit final report"
		resp, body := ts.do(t, http.MethodPatch, "/tasks/"+created.ID.String(), token, api.UpdateTaskRequest{
			Title: &title,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, "update failed: %s", body)

		jobs := ts.queue.snapshot()
		require.Len(t, jobs, 2)
		assert.True(t, jobs[0].FireAt.Equal(deadline.Add(-600*time.Second)))
	})

	t.Run("deadline change replaces the jobs", func(t *testing.T) {
		newDeadline := deadline.Add(30 * time.Minute)
		resp, body := ts.do(t, http.MethodPatch, "/tasks/"+created.ID.String(), token, api.UpdateTaskRequest{
			Deadline: &newDeadline,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, "update failed: %s", body)

		jobs := ts.queue.snapshot()
		require.Len(t, jobs, 2)
		assert.True(t, jobs[0].FireAt.Equal(newDeadline.Add(-600*time.Second)))
		assert.True(t, jobs[1].FireAt.Equal(newDeadline.Add(-60*time.Second)))
	})

	t.Run("reminders change replaces the jobs", func(t *testing.T) {
		reminders := []int{120}
		resp, body := ts.do(t, http.MethodPatch, "/tasks/"+created.ID.String(), token, api.UpdateTaskRequest{
			Reminders: &reminders,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, "update failed: %s", body)

		jobs := ts.queue.snapshot()
		require.Len(t, jobs, 1)
	})

	t.Run("delete cancels the jobs", func(t *testing.T) {
		resp, _ := ts.do(t, http.MethodDelete, "/tasks/"+created.ID.String(), token, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		assert.Empty(t, ts.queue.snapshot())

		resp, _ = ts.do(t, http.MethodGet, "/tasks/"+created.ID.String(), token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestTaskValidation(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.register(t, "alice", "alice@example.com", "pw1")
	token := ts.login(t, "alice", "pw1")

	t.Run("missing title", func(t *testing.T) {
		resp, _ := ts.do(t, http.MethodPost, "/tasks", token, api.CreateTaskRequest{
			Deadline: time.Now().Add(time.Hour),
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing deadline", func(t *testing.T) {
		resp, _ := ts.do(t, http.MethodPost, "/tasks", token, map[string]any{
			"title": "No deadline",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("negative reminder offset", func(t *testing.T) {
		resp, _ := ts.do(t, http.MethodPost, "/tasks", token, map[string]any{
			"title":     "Bad offsets",
			"deadline":  time.Now().Add(time.Hour).Format(time.RFC3339),
			"reminders": []int{-5},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		resp, _ := ts.do(t, http.MethodPost, "/tasks", token, map[string]any{
			"title":    "Stray field",
			"deadline": time.Now().Add(time.Hour).Format(time.RFC3339),
			"priority": "high",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("past deadline is accepted", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodPost, "/tasks", token, api.CreateTaskRequest{
			Title:     "Overdue already",
			Deadline:  time.Now().UTC().Add(-time.Hour),
			Reminders: []int{60},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode, "create failed: %s", body)
	})
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	for _, path := range []string{"/", "/health"} {
		resp, body := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var health map[string]string
		require.NoError(t, json.Unmarshal(body, &health))
		assert.Equal(t, "QuickTask API is up and running!", health["message"])
	}
}

func TestTokenFromOneServerRejectedElsewhere(t *testing.T) {
	t.Parallel()

	first := newTestServer(t)
	first.register(t, "alice", "alice@example.com", "pw1")
	token := first.login(t, "alice", "pw1")

	// Same signing key, different user store: the subject cannot be resolved.
	second := newTestServer(t)
	resp, body := second.do(t, http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "Invalid token")
}
