package sessionless

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testUser struct {
	ID   string
	Name string
}

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]testUser
	calls int
}

func newMemoryUsers(users ...testUser) *memoryUsers {
	m := &memoryUsers{users: make(map[string]testUser, len(users))}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memoryUsers) serialize(_ context.Context, u testUser) (string, error) {
	return u.ID, nil
}

func (m *memoryUsers) deserialize(_ *http.Request, subject string) (testUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	u, ok := m.users[subject]
	if !ok {
		return testUser{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memoryUsers) deserializeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock {
	return &clock{now: t}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(users *memoryUsers) Options[testUser] {
	return Options[testUser]{
		Secret:          testSecret,
		SerializeUser:   users.serialize,
		DeserializeUser: users.deserialize,
		Logger:          discardLogger(),
		Metrics:         NewMetrics(MetricsConfig{Enabled: true}),
	}
}

func newTestMiddleware(t *testing.T, opts Options[testUser]) *Middleware[testUser] {
	t.Helper()
	m, err := New(opts)
	if err != nil {
		t.Fatalf("new middleware: %v", err)
	}
	return m
}

type observed struct {
	called bool
	user   testUser
	authed bool
	auth   *Auth[testUser]
}

func observingHandler(o *observed) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.called = true
		o.auth, _ = FromContext[testUser](r.Context())
		o.user, o.authed = UserFromContext[testUser](r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

var errBoom = errors.New("boom")
