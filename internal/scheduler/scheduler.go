package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"SolanaPredictor/internal/model"
	"SolanaPredictor/internal/notifier"
	"SolanaPredictor/internal/pipeline"
	"SolanaPredictor/internal/recorder"
)

// Runner is the retraining pipeline as seen by the scheduler.
type Runner interface {
	TryRun(ctx context.Context, force bool) (*pipeline.Result, error)
	State() pipeline.Stage
	PendingFeedback() (int, error)
	MinFeedback() int
	Current() (*model.ModelInfo, error)
	RecentRuns(limit int) ([]recorder.RunRecord, error)
}

// Scheduler manages the cron-driven retraining jobs and chat commands.
type Scheduler struct {
	Cron   *cron.Cron
	Runner Runner
	Log    zerolog.Logger
	Ctx    context.Context
}

// NewScheduler creates a new Scheduler. Overlapping firings of the same job are skipped.
func NewScheduler(ctx context.Context, runner Runner, log zerolog.Logger) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Runner: runner,
		Log:    log,
		Ctx:    ctx,
	}
}

// RegisterAll registers the threshold-gated and the forced retraining jobs.
func (s *Scheduler) RegisterAll(retrainCron, forcedCron string) error {
	if _, err := s.Cron.AddFunc(retrainCron, func() { s.runOnce(false) }); err != nil {
		return fmt.Errorf("register retrain task: %w", err)
	}
	if forcedCron != "" {
		if _, err := s.Cron.AddFunc(forcedCron, func() { s.runOnce(true) }); err != nil {
			return fmt.Errorf("register forced retrain task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info().Msg("scheduler stopped")
}

// RunNow executes a retraining immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow(force bool) {
	s.runOnce(force)
}

func (s *Scheduler) runOnce(force bool) {
	s.Log.Info().Bool("forced", force).Msg("running retrain task")
	res, err := s.Runner.TryRun(s.Ctx, force)
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		s.Log.Info().Msg("retraining already in progress, skipping")
	case err != nil:
		// the pipeline has already logged, recorded and reported the failure
		s.Log.Debug().Err(err).Msg("retrain task failed")
	case res.Skipped:
		s.Log.Debug().Int("pending", res.PendingFeedback).Msg("retrain task skipped")
	}
}

func (s *Scheduler) running() bool {
	switch s.Runner.State() {
	case pipeline.StageLoading, pipeline.StageTraining, pipeline.StageSaving, pipeline.StageArchiving:
		return true
	}
	return false
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	cmd, _, _ := strings.Cut(strings.TrimSpace(command), "@")
	switch cmd {
	case "/retrain":
		if s.running() {
			return "⏳ Retraining is already in progress."
		}
		go s.runOnce(true)
		return "🔄 Retraining started, a report follows when it finishes."
	case "/status":
		return s.status()
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) status() string {
	info, err := s.Runner.Current()
	if err != nil {
		s.Log.Error().Err(err).Msg("read current model")
		return fmt.Sprintf("❌ Cannot read current model: %v", err)
	}
	pending, err := s.Runner.PendingFeedback()
	if err != nil {
		s.Log.Error().Err(err).Msg("count feedback")
	}
	recent, err := s.Runner.RecentRuns(5)
	if err != nil {
		s.Log.Error().Err(err).Msg("read run history")
	}
	msg := notifier.FormatStatus(info, pending, s.Runner.MinFeedback(), recent)
	if s.running() {
		msg += fmt.Sprintf("\n⏳ Run in progress: %s", s.Runner.State())
	}
	return msg
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
