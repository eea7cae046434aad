package jobs

import (
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/aizen-labs/premium-bot/pkg/config"
)

// Scheduler enqueues the periodic sweep tasks on their configured cadence.
type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	cfg            config.JobsConfig
	sessionTTL     time.Duration
	log            *slog.Logger
}

// NewScheduler builds a Scheduler from the jobs configuration.
func NewScheduler(redisOpt asynq.RedisConnOpt, cfg config.JobsConfig, sessionTTL time.Duration, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}

	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, nil),
		cfg:            cfg,
		sessionTTL:     sessionTTL,
		log:            log,
	}
}

func (s *scheduler) RegisterTasks() error {
	premiumTask, err := NewPremiumSweepTask(time.Time{})
	if err != nil {
		return err
	}
	if _, err := s.asynqScheduler.Register(s.cfg.PremiumSweepSchedule, premiumTask); err != nil {
		return err
	}

	sessionTask, err := NewSessionSweepTask(s.sessionTTL)
	if err != nil {
		return err
	}
	if _, err := s.asynqScheduler.Register(s.cfg.SessionSweepSchedule, sessionTask); err != nil {
		return err
	}

	s.log.Info("scheduler: registered sweep tasks",
		slog.String("premium_schedule", s.cfg.PremiumSweepSchedule),
		slog.String("session_schedule", s.cfg.SessionSweepSchedule),
	)

	return nil
}

func (s *scheduler) Run() {
	s.log.Info("scheduler: starting")

	go func() {
		if err := s.asynqScheduler.Run(); err != nil {
			s.log.Error("scheduler: run failed", slog.Any("error", err))
		}
	}()
}

func (s *scheduler) Shutdown() {
	s.log.Info("scheduler: shutting down")
	s.asynqScheduler.Shutdown()
}
