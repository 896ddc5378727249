// Command rotauth-loadtest measures rotate throughput and latency against a
// real Redis instance, or against an embedded miniredis when none is given.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rotauth/rotauth"
)

func main() {
	var (
		families    = flag.Int("families", 10000, "number of token families to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "rotate operations to issue")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "rt", "ledger key prefix")
	)
	flag.Parse()

	if *families <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "families, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var client redis.UniversalClient
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		defer mr.Close()
		addr = mr.Addr()
	}
	client = redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
	})
	defer client.Close()

	cfg := rotauth.DefaultConfig()
	cfg.Token.EncryptionKey = make([]byte, 32)
	if _, err := rand.Read(cfg.Token.EncryptionKey); err != nil {
		fmt.Fprintf(os.Stderr, "key generation failed: %v\n", err)
		os.Exit(1)
	}
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("loadtest-secret")
	cfg.Ledger.RedisPrefix = *prefix

	engine, err := rotauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	// ---------- seed ----------
	fmt.Printf("seeding %d families...\n", *families)

	tokens := make([]atomicToken, *families)
	for i := range tokens {
		pair, err := engine.Issue(ctx, fmt.Sprintf("user-%d", i))
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed issue failed: %v\n", err)
			os.Exit(1)
		}
		tokens[i].store(pair.RefreshToken)
	}

	// ---------- rotate phase ----------
	fmt.Printf("rotating: %d ops across %d workers\n", *ops, *concurrency)

	var (
		next      atomic.Int64
		successes atomic.Int64
		failures  atomic.Int64
		latencies = make([][]time.Duration, *concurrency)
		wg        sync.WaitGroup
	)

	start := time.Now()
	wg.Add(*concurrency)
	for w := 0; w < *concurrency; w++ {
		go func(w int) {
			defer wg.Done()
			local := make([]time.Duration, 0, *ops / *concurrency+1)
			for {
				n := next.Add(1)
				if n > int64(*ops) {
					break
				}
				slot := &tokens[int(n)%len(tokens)]
				opaque := slot.swap("")
				if opaque == "" {
					// Another worker holds this family mid-rotation.
					continue
				}

				t0 := time.Now()
				pair, err := engine.Rotate(ctx, opaque)
				local = append(local, time.Since(t0))
				if err != nil {
					failures.Add(1)
					continue
				}
				successes.Add(1)
				slot.store(pair.RefreshToken)
			}
			latencies[w] = local
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---------- report ----------
	all := make([]time.Duration, 0, *ops)
	for _, l := range latencies {
		all = append(all, l...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	fmt.Printf("elapsed: %v  throughput: %.0f rotate/s\n", elapsed.Round(time.Millisecond), float64(successes.Load())/elapsed.Seconds())
	fmt.Printf("success: %d  failure: %d\n", successes.Load(), failures.Load())
	if len(all) > 0 {
		fmt.Printf("latency p50=%v p95=%v p99=%v max=%v\n",
			percentile(all, 0.50), percentile(all, 0.95), percentile(all, 0.99), all[len(all)-1])
	}

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine counters: rotate_success=%d rotate_failure=%d replay_detected=%d\n",
		snap.Counters[rotauth.MetricRotateSuccess],
		snap.Counters[rotauth.MetricRotateFailure],
		snap.Counters[rotauth.MetricReplayDetected])
}

type atomicToken struct {
	mu  sync.Mutex
	val string
}

func (t *atomicToken) store(v string) {
	t.mu.Lock()
	t.val = v
	t.mu.Unlock()
}

func (t *atomicToken) swap(v string) string {
	t.mu.Lock()
	old := t.val
	t.val = v
	t.mu.Unlock()
	return old
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
