package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/internal/fakeapi"
)

const userPassword = "loadtest-pass-1"

func main() {
	var (
		users       = flag.Int("users", 50, "number of seeded accounts")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		clients     = flag.Int("clients", 2000, "browser clients per phase (login + bootstrap)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "aflt", "token key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *clients <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and clients must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	fmt.Printf("seeding %d accounts...\n", *users)
	startSeed := time.Now()
	baseURL, stop, err := startBackend(*users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend failed: %v\n", err)
		os.Exit(1)
	}
	defer stop()
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	cfg := authflow.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 10 * time.Second
	cfg.Storage.RedisPrefix = *prefix
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	telemetry := authflow.NewTelemetry(cfg.Audit, cfg.Metrics, nil)
	defer telemetry.Close()

	build := func(i int) (*authflow.Controller, error) {
		return authflow.New().
			WithConfig(cfg).
			WithRedis(client).
			WithTelemetry(telemetry).
			WithClientID(fmt.Sprintf("lt-%d", i)).
			Build()
	}

	loginStats := runPhase(*clients, *concurrency, func(i int) error {
		c, err := build(i)
		if err != nil {
			return err
		}
		defer c.Close()
		return c.Login(ctx, userEmail(i%*users), userPassword)
	})
	bootstrapStats := runPhase(*clients, *concurrency, func(i int) error {
		c, err := build(i)
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.Bootstrap(ctx); err != nil {
			return err
		}
		if !c.IsAuthenticated() {
			return errors.New("session not restored")
		}
		return nil
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("bootstrap", bootstrapStats)

	snap := telemetry.MetricsSnapshot()
	fmt.Printf("counters: login_success=%d login_failure=%d restored=%d invalidated=%d persist_failures=%d\n",
		snap.Counters[authflow.MetricLoginSuccess],
		snap.Counters[authflow.MetricLoginFailure],
		snap.Counters[authflow.MetricSessionRestored],
		snap.Counters[authflow.MetricSessionInvalidated],
		snap.Counters[authflow.MetricTokenPersistFailure],
	)
}

func userEmail(i int) string {
	return fmt.Sprintf("user%d@loadtest.local", i)
}

func startBackend(users int) (string, func(), error) {
	seed := make([]fakeapi.SeedUser, users)
	for i := range seed {
		seed[i] = fakeapi.SeedUser{Name: fmt.Sprintf("User %d", i), Email: userEmail(i), Password: userPassword}
	}
	backend, err := fakeapi.New(fakeapi.Config{Users: seed, AccessTTL: time.Hour})
	if err != nil {
		return "", nil, err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: backend, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	return "http://" + ln.Addr().String(), func() { _ = srv.Close() }, nil
}

// runPhase calls op for every client index across concurrency workers.
func runPhase(clients, concurrency int, op func(i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, clients)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= clients {
					return
				}
				t0 := time.Now()
				err := op(i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
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

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
