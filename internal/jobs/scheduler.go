package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	scheduler, err := gocron.NewScheduler(gocron.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &Scheduler{scheduler: scheduler, logger: logger}, nil
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	log := s.logger.With("job", job.Name())
	startedAt := time.Now()
	log.Info("Job started")
	if err := job.Run(ctx); err != nil {
		log.Warn("Job failed", "elapsed", time.Since(startedAt), "error", err)
		return
	}
	log.Info("Job finished", "elapsed", time.Since(startedAt))
}

func (s *Scheduler) RegisterCronJob(cron string, job Job) error {
	_, err := s.scheduler.NewJob(
		gocron.CronJob(cron, false),
		gocron.NewTask(func(ctx context.Context) { s.run(ctx, job) }),
		gocron.WithName(job.Name()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

func (s *Scheduler) Start() {
	s.logger.Info("Job scheduler starting", "jobs", len(s.scheduler.Jobs()))
	s.scheduler.Start()
}

func (s *Scheduler) Shutdown() error {
	s.logger.Info("Job scheduler shutting down")
	return s.scheduler.Shutdown()
}
