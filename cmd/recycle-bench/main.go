// Command recycle-bench drives a paced concurrent acquire/release workload
// against pools declared in a YAML manifest and reports per-pool stats as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	concpool "github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"github.com/coachpo/recycle/config"
	"github.com/coachpo/recycle/internal/observability"
	"github.com/coachpo/recycle/lib/telemetry"
	"github.com/coachpo/recycle/pkg/recycle"
)

const (
	defaultManifestPath = "config/pools.yaml"
	benchLoggerPrefix   = "recycle-bench "
	shutdownTimeout     = 5 * time.Second
	telemetryTimeout    = 5 * time.Second
)

// payload is the pooled value the benchmark churns through.
type payload struct {
	data []byte
	seq  uint64
}

func (p *payload) Reset() {
	p.data = p.data[:0]
	p.seq = 0
}

type benchOptions struct {
	manifestPath string
	duration     time.Duration
	workers      int
	ratePerSec   int
}

func main() {
	opts := parseFlags()
	ctx, cancel := newSignalContext()
	defer cancel()

	logger := newBenchLogger()
	observability.SetLogger(observability.NewStdLogger(logger))

	manifest, err := config.LoadManifest(opts.manifestPath)
	if err != nil {
		logger.Fatalf("load manifest: %v", err)
	}
	logger.Printf("manifest loaded: pools=%d", len(manifest.Pools))

	settings := config.FromEnv()
	_, telemetryShutdown, err := telemetry.Init(ctx, settings.Telemetry)
	if err != nil {
		logger.Fatalf("initialize telemetry: %v", err)
	}

	manager, err := buildManager(ctx, manifest, settings.DefaultCapacity)
	if err != nil {
		logger.Fatalf("initialise pools: %v", err)
	}

	logger.Printf("workload starting: workers=%d rate=%d/s duration=%v",
		opts.workers, opts.ratePerSec, opts.duration)
	if err := runWorkload(ctx, manager, manifest, opts); err != nil && ctx.Err() == nil {
		logger.Fatalf("workload: %v", err)
	}

	report(logger, manager)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Printf("pool shutdown: %v", err)
	}

	telemetryCtx, telemetryCancel := context.WithTimeout(context.Background(), telemetryTimeout)
	defer telemetryCancel()
	if err := telemetryShutdown(telemetryCtx); err != nil {
		logger.Printf("telemetry shutdown: %v", err)
	}
}

func parseFlags() benchOptions {
	manifestPath := flag.String("manifest", defaultManifestPath, "Path to the YAML pool manifest")
	duration := flag.Duration("duration", 10*time.Second, "Workload duration")
	workers := flag.Int("workers", 8, "Concurrent workers per pool")
	ratePerSec := flag.Int("rate", 0, "Acquire rate limit per pool in ops/sec (0 = unlimited)")
	flag.Parse()
	return benchOptions{
		manifestPath: *manifestPath,
		duration:     *duration,
		workers:      *workers,
		ratePerSec:   *ratePerSec,
	}
}

func newSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newBenchLogger() *log.Logger {
	return log.New(os.Stderr, benchLoggerPrefix, log.LstdFlags|log.Lmicroseconds)
}

func buildManager(ctx context.Context, manifest config.Manifest, defaultCapacity int) (*recycle.Manager, error) {
	manager := recycle.NewManager()
	for _, spec := range manifest.Pools {
		r, err := recycle.New(func() (*payload, error) {
			return &payload{data: make([]byte, 0, 4096)}, nil
		},
			recycle.WithName[payload](spec.Name),
			recycle.WithCapacity[payload](spec.Capacity.Resolve(defaultCapacity)),
		)
		if err != nil {
			return nil, fmt.Errorf("build pool %s: %w", spec.Name, err)
		}
		if spec.Prewarm > 0 {
			if err := r.Prewarm(ctx, spec.Prewarm); err != nil {
				return nil, fmt.Errorf("prewarm pool %s: %w", spec.Name, err)
			}
		}
		if err := manager.Register(r); err != nil {
			return nil, fmt.Errorf("register pool %s: %w", spec.Name, err)
		}
	}
	return manager, nil
}

func runWorkload(ctx context.Context, manager *recycle.Manager, manifest config.Manifest, opts benchOptions) error {
	workCtx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	group := concpool.New().WithErrors().WithContext(workCtx)
	for _, spec := range manifest.Pools {
		p, err := manager.Lookup(spec.Name)
		if err != nil {
			return err
		}
		r, ok := p.(*recycle.Recycler[payload])
		if !ok {
			return fmt.Errorf("pool %s: unexpected type %T", spec.Name, p)
		}

		var limiter *rate.Limiter
		if opts.ratePerSec > 0 {
			limiter = rate.NewLimiter(rate.Limit(opts.ratePerSec), opts.ratePerSec)
		}
		for w := 0; w < opts.workers; w++ {
			group.Go(func(ctx context.Context) error {
				return churn(ctx, r, limiter)
			})
		}
	}

	err := group.Wait()
	if err != nil && workCtx.Err() != nil {
		// Deadline expiry ends the workload; it is not a failure.
		return nil
	}
	return err
}

// churn acquires, mutates, and releases values until the context ends.
func churn(ctx context.Context, r *recycle.Recycler[payload], limiter *rate.Limiter) error {
	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		lease, err := r.Acquire()
		if err != nil {
			return err
		}
		seq++
		v := lease.Value()
		v.seq = seq
		v.data = append(v.data, byte(seq))
		lease.Release()
	}
}

func report(logger *log.Logger, manager *recycle.Manager) {
	stats := manager.Stats()
	if err := recycle.WriteJSON(os.Stdout, stats); err != nil {
		logger.Printf("write stats: %v", err)
		return
	}
	fmt.Println()
}
