// Package worker runs the periodic hold sweep on asynq.  A scheduler
// enqueues a holds:expire task on a cron spec and a server processes it
// by expiring overdue holds and purging finished ones past retention.
package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/config"
)

// TypeExpireHolds is the task type of the sweep.
const TypeExpireHolds = "holds:expire"

// Sweeper is satisfied by *service.Service.
type Sweeper interface {
	ExpireHolds(ctx context.Context) (expired, purged int64, err error)
}

// NewExpireHoldsTask builds the sweep task.  Only one can be queued at a
// time; a sweep that is still pending makes the next tick a no-op.
func NewExpireHoldsTask(every time.Duration) *asynq.Task {
	if every <= 0 {
		every = time.Minute
	}
	return asynq.NewTask(TypeExpireHolds, nil,
		asynq.Unique(every),
		asynq.MaxRetry(1),
		asynq.Timeout(30*time.Second),
	)
}

func handleExpireHolds(s Sweeper, log *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		expired, purged, err := s.ExpireHolds(ctx)
		if err != nil {
			log.Error("hold sweep failed", zap.Error(err))
			return err
		}
		log.Debug("hold sweep done", zap.Int64("expired", expired), zap.Int64("purged", purged))
		return nil
	}
}

// NewMux routes task types to their handlers.
func NewMux(s Sweeper, log *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpireHolds, handleExpireHolds(s, log))
	return mux
}

// RedisOpt converts the redis settings into asynq's connection option.
// The worker uses its own database number so tasks do not mix with
// cache keys.
func RedisOpt(rc config.RedisConfig, db int) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: rc.Addr, Password: rc.Password, DB: db}
	if rc.TLS {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opt
}

type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	log       *zap.Logger
}

// New configures the scheduler and the server.  Nothing connects until
// Run is called.
func New(cfg config.Config, s Sweeper, log *zap.Logger) (*Worker, error) {
	opt := RedisOpt(cfg.Redis, cfg.Worker.RedisDB)
	concurrency := cfg.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"default": 1},
		Logger:      log.Sugar(),
	})
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Logger: log.Sugar()})
	if _, err := scheduler.Register(cfg.Worker.SweepCron, NewExpireHoldsTask(time.Minute)); err != nil {
		return nil, fmt.Errorf("register sweep %q: %w", cfg.Worker.SweepCron, err)
	}
	return &Worker{server: server, scheduler: scheduler, mux: NewMux(s, log), log: log}, nil
}

// Run starts both halves and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start task server: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		w.server.Shutdown()
		return fmt.Errorf("start scheduler: %w", err)
	}
	w.log.Info("hold sweeper running")
	<-ctx.Done()
	w.scheduler.Shutdown()
	w.server.Shutdown()
	w.log.Info("hold sweeper stopped")
	return nil
}
