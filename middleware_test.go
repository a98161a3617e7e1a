package sessionless

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/sessionless/jwt"
)

func TestNoTokenReachesNextUnauthenticated(t *testing.T) {
	users := newMemoryUsers(testUser{ID: "u1"})
	m := newTestMiddleware(t, testOptions(users))

	var o observed
	rec := httptest.NewRecorder()
	m.Handler(observingHandler(&o)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !o.called {
		t.Fatal("expected next handler to run")
	}
	if o.authed {
		t.Fatal("expected no user attached")
	}
	if o.auth == nil {
		t.Fatal("expected Auth handles to be bound without a token")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := m.Metrics().Value(MetricTokenAbsent); got != 1 {
		t.Fatalf("expected 1 absent token, got %d", got)
	}
	if users.deserializeCalls() != 0 {
		t.Fatal("deserialize must not run without a token")
	}
}

func TestSignThenVerifyYieldsSubject(t *testing.T) {
	users := newMemoryUsers()
	m := newTestMiddleware(t, testOptions(users))

	for _, id := range []string{"u1", "user with spaces", "ユーザー", "42"} {
		token, err := m.Sign(context.Background(), testUser{ID: id})
		if err != nil {
			t.Fatalf("sign %q: %v", id, err)
		}
		claims, err := m.Verify(context.Background(), token)
		if err != nil {
			t.Fatalf("verify %q: %v", id, err)
		}
		if claims.Subject != id {
			t.Fatalf("expected subject %q, got %q", id, claims.Subject)
		}
		if claims.HasExpiry() {
			t.Fatal("expected no exp claim without TTL")
		}
		if claims.ID == "" {
			t.Fatal("expected a token id")
		}
	}
}

func TestTTLExpiryBoundary(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	clk := newClock(issued)
	users := newMemoryUsers(testUser{ID: "u1"})
	opts := testOptions(users)
	opts.TTL = 30 * time.Minute
	opts.Now = clk.Now
	m := newTestMiddleware(t, opts)

	token, err := m.Sign(context.Background(), testUser{ID: "u1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	clk.Set(issued.Add(opts.TTL - time.Second))
	if _, err := m.Verify(context.Background(), token); err != nil {
		t.Fatalf("expected token valid just before expiry: %v", err)
	}

	clk.Set(issued.Add(opts.TTL + time.Second))
	_, err = m.Verify(context.Background(), token)
	if VerificationErrorCode(err) != jwt.ErrCodeExpired {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestBearerHeaderTakesPrecedenceOverCookie(t *testing.T) {
	users := newMemoryUsers(testUser{ID: "header-user"}, testUser{ID: "cookie-user"})
	m := newTestMiddleware(t, testOptions(users))

	headerToken, err := m.Sign(context.Background(), testUser{ID: "header-user"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	cookieToken, err := m.Sign(context.Background(), testUser{ID: "cookie-user"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+headerToken)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: cookieToken})

	var o observed
	m.Handler(observingHandler(&o)).ServeHTTP(httptest.NewRecorder(), req)

	if !o.authed || o.user.ID != "header-user" {
		t.Fatalf("expected header user, got %+v (authed=%v)", o.user, o.authed)
	}
}

func TestCookieTokenAuthenticates(t *testing.T) {
	users := newMemoryUsers(testUser{ID: "u1", Name: "Ada"})
	m := newTestMiddleware(t, testOptions(users))

	token, err := m.Sign(context.Background(), testUser{ID: "u1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})

	var o observed
	m.Handler(observingHandler(&o)).ServeHTTP(httptest.NewRecorder(), req)

	if !o.authed || o.user.Name != "Ada" {
		t.Fatalf("expected Ada, got %+v", o.user)
	}
	if o.auth.Claims() == nil || o.auth.Claims().Subject != "u1" {
		t.Fatalf("expected claims for u1, got %+v", o.auth.Claims())
	}
}

func tamperedToken(t *testing.T, m *Middleware[testUser]) string {
	t.Helper()
	token, err := m.Sign(context.Background(), testUser{ID: "u1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parts := strings.Split(token, ".")
	parts[1] = parts[1] + "x"
	return strings.Join(parts, ".")
}

func TestPropagatePolicyHaltsRequest(t *testing.T) {
	users := newMemoryUsers(testUser{ID: "u1"})
	m := newTestMiddleware(t, testOptions(users))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tamperedToken(t, m))

	_, err := m.Authenticate(httptest.NewRecorder(), req)
	if !IsVerificationError(err) {
		t.Fatalf("expected verification error, got %v", err)
	}

	var o observed
	rec := httptest.NewRecorder()
	m.Handler(observingHandler(&o)).ServeHTTP(rec, req)
	if o.called {
		t.Fatal("next must not run when verification errors propagate")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 from default error handler, got %d", rec.Code)
	}
	if got := m.Metrics().Value(MetricVerificationPropagated); got != 2 {
		t.Fatalf("expected 2 propagated failures, got %d", got)
	}
}

func TestSuppressPolicyContinuesWithoutUser(t *testing.T) {
	users := newMemoryUsers(testUser{ID: "u1"})
	opts := testOptions(users)
	opts.VerificationPolicy = SuppressVerificationErrors()
	m := newTestMiddleware(t, opts)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tamperedToken(t, m))

	var o observed
	m.Handler(observingHandler(&o)).ServeHTTP(httptest.NewRecorder(), req)

	if !o.called || o.authed {
		t.Fatalf("expected unauthenticated pass-through, called=%v authed=%v", o.called, o.authed)
	}
	if m.Metrics().Value(MetricVerificationSuppressed) != 1 {
		t.Fatal("expected suppressed failure to be counted")
	}
	if users.deserializeCalls() != 0 {
		t.Fatal("deserialize must not run for an invalid token")
	}
}

func TestCustomPolicyObservesAndContinues(t *testing.T) {
	users := newMemoryUsers(testUser{ID: "u1"})
	opts := testOptions(users)

	var seen error
	opts.VerificationPolicy = HandleVerificationErrors(func(w http.ResponseWriter, r *http.Request, err error) error {
		seen = err
		w.Header().Set("X-Auth-Error", string(VerificationErrorCode(err)))
		return nil
	})
	m := newTestMiddleware(t, opts)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tamperedToken(t, m))

	var o observed
	rec := httptest.NewRecorder()
	m.Handler(observingHandler(&o)).ServeHTTP(rec, req)

	if !IsVerificationError(seen) {
		t.Fatalf("expected handler to receive verification error, got %v", seen)
	}
	if !o.called || o.authed {
		t.Fatal("expected request to continue unauthenticated")
	}
	if rec.Header().Get("X-Auth-Error") == "" {
		t.Fatal("expected handler to have access to the response")
	}
}

func TestCustomPolicyCanHalt(t *testing.T) {
	users := newMemoryUsers(testUser{ID: "u1"})
	opts := testOptions(users)
	opts.VerificationPolicy = HandleVerificationErrors(func(http.ResponseWriter, *http.Request, error) error {
		return errBoom
	})
	var handled error
	opts.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
		handled = err
		w.WriteHeader(http.StatusTeapot)
	}
	m := newTestMiddleware(t, opts)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tamperedToken(t, m))

	var o observed
	rec := httptest.NewRecorder()
	m.Handler(observingHandler(&o)).ServeHTTP(rec, req)

	if o.called {
		t.Fatal("next must not run")
	}
	if !errors.Is(handled, errBoom) || rec.Code != http.StatusTeapot {
		t.Fatalf("expected custom error to reach ErrorHandler, got %v / %d", handled, rec.Code)
	}
}

func TestMissingSubjectTreatedAsAbsent(t *testing.T) {
	users := newMemoryUsers(testUser{ID: ""})
	manager, err := jwt.NewManager(jwt.Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	token, err := manager.Sign(jwt.Claims{IssuedAt: time.Now()})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	m := newTestMiddleware(t, testOptions(users))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	var o observed
	m.Handler(observingHandler(&o)).ServeHTTP(httptest.NewRecorder(), req)
	if !o.called || o.authed {
		t.Fatal("expected unauthenticated pass-through")
	}
	if users.deserializeCalls() != 0 {
		t.Fatal("deserialize must not run without a subject")
	}
	if m.Metrics().Value(MetricSubjectMissing) != 1 {
		t.Fatal("expected missing subject to be counted")
	}
}

func TestUnknownUserLeavesRequestUnauthenticated(t *testing.T) {
	users := newMemoryUsers()
	m := newTestMiddleware(t, testOptions(users))
	token, err := m.Sign(context.Background(), testUser{ID: "ghost"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	var o observed
	m.Handler(observingHandler(&o)).ServeHTTP(httptest.NewRecorder(), req)

	if !o.called || o.authed {
		t.Fatal("expected unauthenticated pass-through")
	}
	if m.Metrics().Value(MetricUserNotFound) != 1 {
		t.Fatal("expected user-not-found to be counted")
	}
}

func TestDeserializeFailurePropagates(t *testing.T) {
	users := newMemoryUsers()
	opts := testOptions(users)
	opts.VerificationPolicy = SuppressVerificationErrors()
	opts.DeserializeUser = func(*http.Request, string) (testUser, error) {
		return testUser{}, errBoom
	}
	m := newTestMiddleware(t, opts)
	token, err := m.Sign(context.Background(), testUser{ID: "u1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, err = m.Authenticate(httptest.NewRecorder(), req)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected deserialize error, got %v", err)
	}

	var o observed
	rec := httptest.NewRecorder()
	m.Handler(observingHandler(&o)).ServeHTTP(rec, req)
	if o.called || rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 and halted request, got called=%v code=%d", o.called, rec.Code)
	}
}

func TestSignFailuresPropagate(t *testing.T) {
	users := newMemoryUsers()
	opts := testOptions(users)
	opts.SerializeUser = func(context.Context, testUser) (string, error) {
		return "", errBoom
	}
	m := newTestMiddleware(t, opts)

	if _, err := m.Sign(context.Background(), testUser{ID: "u1"}); !errors.Is(err, errBoom) {
		t.Fatalf("expected serialize error, got %v", err)
	}
	rec := httptest.NewRecorder()
	if err := m.IssueCookie(context.Background(), rec, testUser{ID: "u1"}); !errors.Is(err, errBoom) {
		t.Fatalf("expected serialize error from IssueCookie, got %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("no cookie may be set when signing fails")
	}

	opts.SerializeUser = func(context.Context, testUser) (string, error) { return "", nil }
	m = newTestMiddleware(t, opts)
	if _, err := m.Sign(context.Background(), testUser{}); !errors.Is(err, ErrEmptySubject) {
		t.Fatalf("expected ErrEmptySubject, got %v", err)
	}
}

type failingCodec struct{}

func (failingCodec) Sign(jwt.Claims) (string, error)     { return "", errBoom }
func (failingCodec) Verify(string) (*jwt.Claims, error) { return nil, errBoom }

func TestCodecErrorsAreClassified(t *testing.T) {
	users := newMemoryUsers()
	opts := testOptions(users)
	opts.Secret = nil
	opts.Codec = failingCodec{}
	m := newTestMiddleware(t, opts)

	if _, err := m.Sign(context.Background(), testUser{ID: "u1"}); !errors.Is(err, errBoom) {
		t.Fatalf("expected codec sign error, got %v", err)
	}
	_, err := m.Verify(context.Background(), "a.b.c")
	if VerificationErrorCode(err) != jwt.ErrCodeInvalidToken || !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped invalid_token, got %v", err)
	}
}

func TestLoginHandlerIssuesCookieThenRoundTrips(t *testing.T) {
	users := newMemoryUsers(testUser{ID: "u1", Name: "Ada"})
	opts := testOptions(users)
	opts.TTL = time.Hour
	m := newTestMiddleware(t, opts)

	login := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, ok := FromContext[testUser](r.Context())
		if !ok {
			t.Error("expected Auth in context")
			return
		}
		if err := auth.IssueCookie(r.Context(), testUser{ID: "u1"}); err != nil {
			t.Errorf("issue cookie: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	login.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	issued := cookies[0]
	if issued.Name != DefaultCookieName || !issued.HttpOnly || issued.Expires.IsZero() {
		t.Fatalf("unexpected cookie attributes: %+v", issued)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: issued.Name, Value: issued.Value})
	var o observed
	m.Handler(observingHandler(&o)).ServeHTTP(httptest.NewRecorder(), req)

	if !o.authed || o.user != (testUser{ID: "u1", Name: "Ada"}) {
		t.Fatalf("expected round-trip user, got %+v", o.user)
	}
}

func TestRevokeCookieIsUnconditional(t *testing.T) {
	users := newMemoryUsers()
	opts := testOptions(users)
	opts.Cookie = CookieOptions{Name: "auth", Path: "/app"}
	opts.VerificationPolicy = SuppressVerificationErrors()
	m := newTestMiddleware(t, opts)

	cases := map[string]func(*http.Request){
		"no token":      func(*http.Request) {},
		"invalid token": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "auth", Value: "junk"}) },
	}
	for name, prepare := range cases {
		t.Run(name, func(t *testing.T) {
			h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth, _ := FromContext[testUser](r.Context())
				auth.RevokeCookie()
			}))
			req := httptest.NewRequest(http.MethodPost, "/app/logout", nil)
			prepare(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			cookies := rec.Result().Cookies()
			if len(cookies) != 1 {
				t.Fatalf("expected one cookie, got %d", len(cookies))
			}
			c := cookies[0]
			if c.Name != "auth" || c.Path != "/app" || c.MaxAge >= 0 || c.Value != "" {
				t.Fatalf("expected clearing cookie, got %+v", c)
			}
		})
	}
}

func TestAudienceMismatchIsVerificationFailure(t *testing.T) {
	users := newMemoryUsers(testUser{ID: "u1"})
	webOpts := testOptions(users)
	webOpts.Audience = "web"
	web := newTestMiddleware(t, webOpts)

	apiOpts := testOptions(users)
	apiOpts.Audience = "api"
	api := newTestMiddleware(t, apiOpts)

	token, err := web.Sign(context.Background(), testUser{ID: "u1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := web.Verify(context.Background(), token); err != nil {
		t.Fatalf("expected own audience to verify: %v", err)
	}
	_, err = api.Verify(context.Background(), token)
	if VerificationErrorCode(err) != jwt.ErrCodeInvalidAudience {
		t.Fatalf("expected invalid audience, got %v", err)
	}
}

func TestCustomExtractorChain(t *testing.T) {
	users := newMemoryUsers(testUser{ID: "u1"})
	opts := testOptions(users)
	opts.TokenLookup = "query:access_token,header:X-Token"
	m := newTestMiddleware(t, opts)

	token, err := m.Sign(context.Background(), testUser{ID: "u1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/?access_token="+token, nil)
	var o observed
	m.Handler(observingHandler(&o)).ServeHTTP(httptest.NewRecorder(), req)
	if !o.authed {
		t.Fatal("expected query token to authenticate")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	o = observed{}
	m.Handler(observingHandler(&o)).ServeHTTP(httptest.NewRecorder(), req)
	if o.authed {
		t.Fatal("bearer header is not part of the configured chain")
	}
}

func TestMiddlewareSharedAcrossConcurrentRequests(t *testing.T) {
	users := newMemoryUsers(testUser{ID: "a"}, testUser{ID: "b"})
	m := newTestMiddleware(t, testOptions(users))

	tokens := map[string]string{}
	for _, id := range []string{"a", "b"} {
		tok, err := m.Sign(context.Background(), testUser{ID: id})
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		tokens[id] = tok
	}

	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFromContext[testUser](r.Context())
		_, _ = w.Write([]byte(u.ID))
	}))

	srv := httptest.NewServer(h)
	defer srv.Close()

	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		id := []string{"a", "b"}[i%2]
		go func() {
			req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
			req.Header.Set("Authorization", "Bearer "+tokens[id])
			resp, err := srv.Client().Do(req)
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				errs <- err
				return
			}
			if string(body) != id {
				errs <- errors.New("got user " + string(body) + " want " + id)
				return
			}
			errs <- nil
		}()
	}
	for i := 0; i < 64; i++ {
		if err := <-errs; err != nil {
			t.Fatal(err)
		}
	}
}

func TestAuthExposesRawToken(t *testing.T) {
	users := newMemoryUsers(testUser{ID: "u1"})
	m := newTestMiddleware(t, testOptions(users))
	token, err := m.Sign(context.Background(), testUser{ID: "u1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	var o observed
	m.Handler(observingHandler(&o)).ServeHTTP(httptest.NewRecorder(), req)

	if o.auth.Token() != token {
		t.Fatal("expected the verified token on Auth")
	}
	p, ok := PrincipalFromContext(req.Context())
	if ok || p != nil {
		t.Fatal("the caller's request must not be mutated")
	}
}

func TestRequireAuthWithoutMiddleware(t *testing.T) {
	if _, err := RequireAuth[testUser](context.Background()); !errors.Is(err, ErrNoAuth) {
		t.Fatalf("expected ErrNoAuth, got %v", err)
	}
	if _, ok := UserFromContext[testUser](context.Background()); ok {
		t.Fatal("expected no user")
	}

	users := newMemoryUsers()
	m := newTestMiddleware(t, testOptions(users))
	r, err := m.Authenticate(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := RequireAuth[testUser](r.Context()); err != nil {
		t.Fatalf("expected handles after Authenticate: %v", err)
	}
	if _, err := RequireAuth[string](r.Context()); !errors.Is(err, ErrNoAuth) {
		t.Fatalf("handles of another user type must not match, got %v", err)
	}
}
