package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/sessionless"
)

type loadtestOptions struct {
	serveOptions
	users       int
	concurrency int
	ops         int
}

func loadtestCmd(g *globalFlags) *cobra.Command {
	o := loadtestOptions{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure request authentication throughput",
		Long: `Seed users, sign one token per user, then authenticate requests
concurrently through the middleware and report latency percentiles.

Users live in the same stores as "serve": Redis, miniredis or SQLite.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.users <= 0 || o.concurrency <= 0 || o.ops <= 0 {
				return fmt.Errorf("users, concurrency, and ops must be > 0")
			}
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), g, o)
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.users, "users", 10000, "number of users to seed")
	f.IntVar(&o.concurrency, "concurrency", 64, "number of concurrent workers")
	f.IntVar(&o.ops, "ops", 100000, "requests to authenticate")
	f.StringVar(&o.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	f.StringVar(&o.sqlitePath, "sqlite", "", "store users in this SQLite database instead of Redis")
	f.StringVar(&o.prefix, "prefix", "sl-load", "redis key prefix")
	return cmd
}

func runLoadtest(ctx context.Context, out io.Writer, g *globalFlags, o loadtestOptions) error {
	o.policy = "propagate"
	o.ttl = time.Hour

	store, cleanup, err := openStore(ctx, o.serveOptions, g.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	auth, err := newAuth(g, o.serveOptions, store)
	if err != nil {
		return err
	}

	tokens := make([]string, o.users)
	fmt.Fprintf(out, "seeding %d users...\n", o.users)
	startSeed := time.Now()
	for i := range tokens {
		token, err := auth.Sign(ctx, account{ID: fmt.Sprintf("user-%d", i), Name: "load"})
		if err != nil {
			return fmt.Errorf("seed user %d: %w", i, err)
		}
		tokens[i] = token
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	stats := runAuthenticatePhase(auth, tokens, o.ops, o.concurrency)

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "authenticate", stats)
	return nil
}

func runAuthenticatePhase(auth *sessionless.Middleware[account], tokens []string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			rec := httptest.NewRecorder()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Header.Set("Authorization", "Bearer "+tokens[r.Intn(len(tokens))])

				t0 := time.Now()
				req, err := auth.Authenticate(rec, req)
				d := time.Since(t0)
				if _, ok := sessionless.UserFromContext[account](req.Context()); err != nil || !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
