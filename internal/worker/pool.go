package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/sungwon/newsletter/internal/clock"
	"github.com/sungwon/newsletter/internal/config"
	"github.com/sungwon/newsletter/internal/queue"
)

const statsInterval = 15 * time.Second

// PoolConfig holds settings for a pool of delivery workers.
type PoolConfig struct {
	Workers         int
	ShutdownTimeout time.Duration
	// RatePerSecond caps sends across the whole pool; 0 disables the cap.
	RatePerSecond float64
	Worker        Config
}

// PoolConfigFrom maps the delivery section of the application config.
func PoolConfigFrom(cfg config.DeliveryConfig) PoolConfig {
	return PoolConfig{
		Workers:         cfg.Workers,
		ShutdownTimeout: cfg.ShutdownTimeout,
		RatePerSecond:   cfg.RatePerSecond,
		Worker: Config{
			PollInterval:   cfg.PollInterval,
			SendTimeout:    cfg.SendTimeout,
			RetryTransient: cfg.RetryTransient,
		},
	}
}

// Pool runs several workers against the same queue and, optionally,
// refreshes the queue depth gauge.
type Pool struct {
	workers []*Worker
	stats   queue.StatsQueries
	clock   clock.Clock
	config  PoolConfig
	log     zerolog.Logger
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewPool builds cfg.Workers workers that share one rate limiter. stats
// may be nil to skip depth reporting.
func NewPool(
	q queue.Claimer,
	sender EmailSender,
	stats queue.StatsQueries,
	cfg PoolConfig,
	log zerolog.Logger,
	opts ...Option,
) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := int(cfg.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	p := &Pool{stats: stats, clock: clock.Real(), config: cfg, log: log}
	for i := range cfg.Workers {
		workerOpts := append([]Option{WithLimiter(limiter)}, opts...)
		w := New(q, sender, cfg.Worker, log.With().Str("worker", fmt.Sprintf("worker-%d", i)).Logger(), workerOpts...)
		p.workers = append(p.workers, w)
		p.clock = w.clock
	}
	return p
}

// Start launches the configured number of worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}

	if p.stats != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.reportDepth(ctx)
		}()
	}

	p.log.Info().
		Int("worker_count", len(p.workers)).
		Bool("retry_transient", p.config.Worker.RetryTransient).
		Msg("worker pool started")
}

// Stop cancels the workers and waits up to the configured shutdown
// timeout. In-flight claims are rolled back, so unfinished tasks stay
// queued for the next process.
func (p *Pool) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timeout := p.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case <-done:
		p.log.Info().Msg("worker pool stopped gracefully")
	case <-time.After(timeout):
		p.log.Warn().Msg("worker pool shutdown timed out")
	}
}

func (p *Pool) reportDepth(ctx context.Context) {
	for {
		s, err := queue.ReadStats(ctx, p.stats)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn().Err(err).Msg("failed to read queue depth")
		} else {
			queue.RecordDepth(s)
		}

		select {
		case <-ctx.Done():
			return
		case <-p.clock.After(statsInterval):
		}
	}
}
