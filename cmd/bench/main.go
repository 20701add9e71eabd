// Command bench runs a synthetic Zipf workload against the sharded LFU cache
// and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/lfucache/cache"
	pmet "github.com/IvanBrykalov/lfucache/metrics/prom"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

type config struct {
	capacity int
	batch    int
	shards   int

	workers  int
	duration time.Duration
	readPct  int

	keys    int
	zipfS   float64
	zipfV   float64
	seed    int64
	preload int

	pprofAddr   string
	metricsAddr string
}

func main() {
	var cfg config
	flag.IntVar(&cfg.capacity, "cap", 100_000, "cache capacity (entries)")
	flag.IntVar(&cfg.batch, "batch", 64, "entries evicted per eviction episode")
	flag.IntVar(&cfg.shards, "shards", 0, "number of shards (0=auto)")
	flag.IntVar(&cfg.workers, "workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "benchmark duration")
	flag.IntVar(&cfg.readPct, "reads", 80, "read percentage [0..100]")
	flag.IntVar(&cfg.keys, "keys", 1_000_000, "keyspace size")
	flag.Float64Var(&cfg.zipfS, "zipf_s", 1.1, "Zipf s > 1 (skew)")
	flag.Float64Var(&cfg.zipfV, "zipf_v", 1.0, "Zipf v >= 1")
	flag.Int64Var(&cfg.seed, "seed", time.Now().UnixNano(), "random seed")
	flag.IntVar(&cfg.preload, "preload", 0, "preload entries (0 = cap/2)")
	flag.StringVar(&cfg.pprofAddr, "pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
	flag.StringVar(&cfg.metricsAddr, "http", ":8080", "serve Prometheus metrics at addr; empty = disabled")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if err := run(context.Background(), log, cfg); err != nil {
		log.Error("bench failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cfg config) error {
	if cfg.keys < 1 {
		return errors.New("keys must be > 0")
	}
	if cfg.zipfS <= 1 || cfg.zipfV < 1 {
		return fmt.Errorf("invalid zipf parameters s=%v v=%v", cfg.zipfS, cfg.zipfV)
	}

	// ---- pprof server (on DefaultServeMux) ----
	if cfg.pprofAddr != "" {
		go serve(log, "pprof", cfg.pprofAddr)
	}

	// ---- Build cache ----
	metrics := pmet.New(nil, "lfu", "bench", nil)
	c, err := cache.New[string, string](cache.Options[string, string]{
		Capacity:      cfg.capacity,
		EvictionCount: cfg.batch,
		Shards:        cfg.shards,
		Metrics:       metrics,
	})
	if err != nil {
		return fmt.Errorf("build cache: %w", err)
	}
	defer func() { _ = c.Close() }()
	metrics.Track(c)

	// ---- Prometheus metrics (on DefaultServeMux) ----
	if cfg.metricsAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		go serve(log, "metrics", cfg.metricsAddr)
	}

	// ---- Preload half capacity to get a realistic hit-rate ----
	pl := cfg.preload
	if pl == 0 {
		pl = cfg.capacity / 2
	}
	for i := 0; i < pl; i++ {
		c.Put("k:"+strconv.Itoa(i), "v"+strconv.Itoa(i))
	}
	log.Info("preloaded", slog.Int("entries", c.Len()), slog.Int("cap", c.Cap()))

	// ---- Load generation ----
	workers := max(cfg.workers, 1)
	var reads, writes, hits, total atomic.Uint64

	ctx, cancel := context.WithTimeout(ctx, cfg.duration)
	defer cancel()

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			r := rand.New(rand.NewSource(cfg.seed + int64(w)*9973))
			zipf := rand.NewZipf(r, cfg.zipfS, cfg.zipfV, uint64(cfg.keys-1))

			for ctx.Err() == nil {
				k := "k:" + strconv.FormatUint(zipf.Uint64(), 10)
				total.Add(1)
				if int(r.Int31n(100)) < cfg.readPct {
					reads.Add(1)
					if _, ok := c.Get(k); ok {
						hits.Add(1)
					}
				} else {
					writes.Add(1)
					c.Put(k, "v"+strconv.Itoa(r.Int()))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	// ---- Report ----
	st := c.Stats()
	hitRate := 0.0
	if n := reads.Load(); n > 0 {
		hitRate = float64(hits.Load()) / float64(n) * 100
	}
	log.Info("done",
		slog.Int("cap", cfg.capacity),
		slog.Int("batch", cfg.batch),
		slog.Int("shards", cfg.shards),
		slog.Int("workers", workers),
		slog.Int("keys", cfg.keys),
		slog.Duration("elapsed", elapsed),
		slog.Int64("seed", cfg.seed),
	)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		total.Load(), float64(total.Load())/elapsed.Seconds(), reads.Load(), writes.Load())
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%  evictions=%d\n",
		st.Hits, st.Misses, hitRate, st.Evictions)
	fmt.Printf("Len()=%d\n", c.Len())
	return nil
}

func serve(log *slog.Logger, name, addr string) {
	log.Info("serving", slog.String("endpoint", name), slog.String("addr", addr))
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error("server stopped", slog.String("endpoint", name), slog.Any("error", err))
	}
}
