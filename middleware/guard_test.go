package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/sessionless"
	"github.com/MrEthical07/sessionless/jwt"
)

type user struct{ ID string }

func newAuth(t *testing.T, now func() time.Time) *sessionless.Middleware[user] {
	t.Helper()
	m, err := sessionless.New(sessionless.Options[user]{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		SerializeUser: func(_ context.Context, u user) (string, error) {
			return u.ID, nil
		},
		DeserializeUser: func(_ *http.Request, subject string) (user, error) {
			if subject == "ghost" {
				return user{}, sessionless.ErrUserNotFound
			}
			return user{ID: subject}, nil
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    now,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return m
}

func serve(t *testing.T, h http.Handler, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequireUser(t *testing.T) {
	auth := newAuth(t, nil)
	h := auth.Handler(RequireUser(okHandler))

	token, err := auth.Sign(context.Background(), user{ID: "u1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ghost, err := auth.Sign(context.Background(), user{ID: "ghost"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if code := serve(t, h, token); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := serve(t, h, ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}
	if code := serve(t, h, ghost); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", code)
	}
}

func TestGuardWithoutAuthMiddleware(t *testing.T) {
	if code := serve(t, RequireUser(okHandler), "anything"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireFresh(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	current := start
	now := func() time.Time { return current }

	auth := newAuth(t, now)
	h := auth.Handler(RequireFresh(5*time.Minute, now)(okHandler))

	token, err := auth.Sign(context.Background(), user{ID: "u1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	current = start.Add(4 * time.Minute)
	if code := serve(t, h, token); code != http.StatusOK {
		t.Fatalf("expected fresh token to pass, got %d", code)
	}

	current = start.Add(6 * time.Minute)
	if code := serve(t, h, token); code != http.StatusUnauthorized {
		t.Fatalf("expected stale token to be rejected, got %d", code)
	}
}

func TestRequireClaims(t *testing.T) {
	auth := newAuth(t, nil)
	onlyAdmin := RequireClaims(func(c *jwt.Claims) bool { return c.Subject == "admin" })
	h := auth.Handler(onlyAdmin(okHandler))

	admin, err := auth.Sign(context.Background(), user{ID: "admin"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	other, err := auth.Sign(context.Background(), user{ID: "u1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if code := serve(t, h, admin); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := serve(t, h, other); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestGuardAfterPropagatedFailureNeverRuns(t *testing.T) {
	auth := newAuth(t, nil)
	called := false
	h := auth.Handler(RequireUser(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	})))

	if code := serve(t, h, "not.a.token"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if called {
		t.Fatal(errors.New("handler ran after a propagated verification failure"))
	}
}
