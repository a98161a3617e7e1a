package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	_ "modernc.org/sqlite"

	"github.com/MrEthical07/sessionless"
	"github.com/MrEthical07/sessionless/metrics/export/prometheus"
	"github.com/MrEthical07/sessionless/middleware"
	"github.com/MrEthical07/sessionless/userstore/redisstore"
	"github.com/MrEthical07/sessionless/userstore/sqlstore"
)

type account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func accountID(a account) string { return a.ID }

type userStore interface {
	Serialize(ctx context.Context, user account) (string, error)
	Deserialize(r *http.Request, subject string) (account, error)
	Delete(ctx context.Context, id string) error
}

type serveOptions struct {
	addr        string
	redisAddr   string
	sqlitePath  string
	prefix      string
	ttl         time.Duration
	freshFor    time.Duration
	policy      string
	tokenLookup string
	secure      bool
}

func serveCmd(g *globalFlags) *cobra.Command {
	o := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a demo HTTP server behind the authentication middleware",
		Long: `Run an HTTP server whose routes sit behind the sessionless middleware.

Users are stored in Redis (--redis-addr or REDIS_ADDR, falling back to an
embedded miniredis) or in SQLite when --sqlite is set.

Routes:
  POST /login       JSON {"id":"...","name":"..."}; sets the token cookie
  POST /token       same body; returns a bearer token
  POST /logout      clears the token cookie
  DELETE /users/me  deletes the stored user, revoking its tokens
  GET  /me          requires an authenticated user
  GET  /me/fresh    requires a recently issued token
  GET  /metrics     Prometheus metrics

Examples:
  sessionless serve --secret s3cr3t
  sessionless serve --sqlite users.db --ttl 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, g, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.addr, "addr", ":8080", "listen address")
	f.StringVar(&o.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	f.StringVar(&o.sqlitePath, "sqlite", "", "store users in this SQLite database instead of Redis")
	f.StringVar(&o.prefix, "prefix", "sl", "redis key prefix")
	f.DurationVar(&o.ttl, "ttl", time.Hour, "token lifetime; 0 disables expiry")
	f.DurationVar(&o.freshFor, "fresh-for", 5*time.Minute, "maximum token age accepted by /me/fresh")
	f.StringVar(&o.policy, "policy", "propagate", "verification failure policy: propagate or suppress")
	f.StringVar(&o.tokenLookup, "token-lookup", "", `token sources, e.g. "header:Authorization,cookie:jwt"`)
	f.BoolVar(&o.secure, "secure-cookie", false, "mark the token cookie Secure")
	return cmd
}

func runServe(ctx context.Context, g *globalFlags, o serveOptions) error {
	logger := g.logger

	store, cleanup, err := openStore(ctx, o, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	auth, err := newAuth(g, o, store)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              o.addr,
		Handler:           newRouter(auth, store, o, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", o.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, o serveOptions, logger *slog.Logger) (userStore, func(), error) {
	if o.sqlitePath != "" {
		db, err := sql.Open("sqlite", o.sqlitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		store, err := sqlstore.New(db, sqlstore.Config[account]{ID: accountID})
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("using sqlite user store", "path", o.sqlitePath)
		return store, func() { _ = db.Close() }, nil
	}

	addr := o.redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		client  redis.UniversalClient
		cleanup func()
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		logger.Info("using miniredis user store", "addr", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		logger.Info("using redis user store", "addr", addr)
	}

	store, err := redisstore.New(client, redisstore.Config[account]{
		Prefix: o.prefix,
		TTL:    o.ttl,
		ID:     accountID,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return store, cleanup, nil
}

func newAuth(g *globalFlags, o serveOptions, store userStore) (*sessionless.Middleware[account], error) {
	codec, err := g.newCodec(nil)
	if err != nil {
		return nil, err
	}

	var policy sessionless.VerificationPolicy
	switch o.policy {
	case "propagate", "":
		policy = sessionless.PropagateVerificationErrors()
	case "suppress":
		policy = sessionless.SuppressVerificationErrors()
	default:
		return nil, fmt.Errorf("unknown policy %q", o.policy)
	}

	return sessionless.New(sessionless.Options[account]{
		Codec:              codec,
		Audience:           g.audience,
		Issuer:             g.issuer,
		TTL:                o.ttl,
		SerializeUser:      store.Serialize,
		DeserializeUser:    store.Deserialize,
		TokenLookup:        o.tokenLookup,
		VerificationPolicy: policy,
		Cookie: sessionless.CookieOptions{
			Secure:   o.secure,
			SameSite: http.SameSiteLaxMode,
		},
		Logger: g.logger,
		Metrics: sessionless.NewMetrics(sessionless.MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		}),
		Tracer: otel.Tracer("github.com/MrEthical07/sessionless"),
	})
}

func newRouter(auth *sessionless.Middleware[account], store userStore, o serveOptions, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Method(http.MethodGet, "/metrics", prometheus.NewExporter(auth, nil).Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Handler)

		r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
			user, ok := decodeAccount(w, r)
			if !ok {
				return
			}
			a, err := sessionless.RequireAuth[account](r.Context())
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if err := a.IssueCookie(r.Context(), user); err != nil {
				logger.Error("issue cookie failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, user)
		})

		r.Post("/token", func(w http.ResponseWriter, r *http.Request) {
			user, ok := decodeAccount(w, r)
			if !ok {
				return
			}
			a, err := sessionless.RequireAuth[account](r.Context())
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			token, err := a.Sign(r.Context(), user)
			if err != nil {
				logger.Error("sign failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"token": token})
		})

		r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			a, err := sessionless.RequireAuth[account](r.Context())
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			a.RevokeCookie()
			w.WriteHeader(http.StatusNoContent)
		})

		r.With(middleware.RequireUser).Get("/me", func(w http.ResponseWriter, r *http.Request) {
			user, _ := sessionless.UserFromContext[account](r.Context())
			writeJSON(w, http.StatusOK, user)
		})

		r.With(middleware.RequireFresh(o.freshFor, nil)).Get("/me/fresh", func(w http.ResponseWriter, r *http.Request) {
			user, _ := sessionless.UserFromContext[account](r.Context())
			writeJSON(w, http.StatusOK, user)
		})

		r.With(middleware.RequireUser).Delete("/users/me", func(w http.ResponseWriter, r *http.Request) {
			a, err := sessionless.RequireAuth[account](r.Context())
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			user, _ := a.User()
			if err := store.Delete(r.Context(), user.ID); err != nil {
				logger.Error("delete user failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			a.RevokeCookie()
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r
}

func decodeAccount(w http.ResponseWriter, r *http.Request) (account, bool) {
	var user account
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil || user.ID == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return account{}, false
	}
	return user, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
