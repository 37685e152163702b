// Package pipeline runs one retraining: load, assemble features, train, save, archive.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"SolanaPredictor/internal/artifact"
	"SolanaPredictor/internal/collector"
	"SolanaPredictor/internal/features"
	"SolanaPredictor/internal/metrics"
	"SolanaPredictor/internal/model"
	"SolanaPredictor/internal/notifier"
	"SolanaPredictor/internal/recorder"
	"SolanaPredictor/internal/trainer"
)

// ErrBusy is returned when a run is requested while another one is in progress.
var ErrBusy = errors.New("retraining already in progress")

// Config holds run parameters.
type Config struct {
	Name         string
	Version      string
	MinFeedback  int
	Trainer      trainer.Config
	TextfilePath string
}

// Deps are the collaborators of a run. Nil optional fields are replaced with no-ops.
type Deps struct {
	Loader    *collector.Loader
	Artifacts *artifact.Manager
	Audit     *artifact.AuditLog
	Recorder  recorder.Recorder
	Metrics   *metrics.Metrics
	Notifier  notifier.Notifier
	Publisher notifier.Publisher
	Log       zerolog.Logger
}

// Result describes a finished run.
type Result struct {
	RunID           string
	Forced          bool
	Skipped         bool
	PendingFeedback int
	FeedbackFiles   int
	Info            *model.ModelInfo
	Archived        []string
	Warnings        []string
	Duration        time.Duration
}

// Pipeline executes retraining runs one at a time.
type Pipeline struct {
	cfg Config
	d   Deps

	now   func() time.Time
	newID func() string

	run   sync.Mutex
	mu    sync.RWMutex
	state Stage
}

// New creates a Pipeline.
func New(cfg Config, d Deps) *Pipeline {
	if d.Recorder == nil {
		d.Recorder = recorder.NewNoopRecorder()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Notifier == nil {
		d.Notifier = notifier.Noop{}
	}
	if d.Publisher == nil {
		d.Publisher = notifier.Noop{}
	}
	return &Pipeline{
		cfg:   cfg,
		d:     d,
		now:   time.Now,
		newID: uuid.NewString,
		state: StageIdle,
	}
}

// State returns the stage of the run in progress, StageIdle between runs,
// or StageFailed after a failed run.
func (p *Pipeline) State() Stage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Pipeline) setState(s Stage) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.d.Log.Debug().Str("stage", string(s)).Msg("pipeline stage")
}

// PendingFeedback counts feedback files waiting for the next run.
func (p *Pipeline) PendingFeedback() (int, error) {
	return p.d.Loader.PendingFeedback()
}

// MinFeedback is the number of pending feedback files that triggers a run.
func (p *Pipeline) MinFeedback() int { return p.cfg.MinFeedback }

// Current returns the active model's metrics document, or nil.
func (p *Pipeline) Current() (*model.ModelInfo, error) {
	return p.d.Artifacts.Current()
}

// RecentRuns returns the latest recorded runs, newest first.
func (p *Pipeline) RecentRuns(limit int) ([]recorder.RunRecord, error) {
	return p.d.Recorder.RecentRuns(limit)
}

// TryRun is Run, but returns ErrBusy instead of waiting for a run in progress.
func (p *Pipeline) TryRun(ctx context.Context, force bool) (*Result, error) {
	if !p.run.TryLock() {
		return nil, ErrBusy
	}
	defer p.run.Unlock()
	return p.execute(ctx, force)
}

// Run executes one retraining. Unless force is set, it is skipped when fewer than
// MinFeedback feedback files are pending. Any stage failure leaves the active
// artifact untouched and returns a *StageError.
func (p *Pipeline) Run(ctx context.Context, force bool) (*Result, error) {
	p.run.Lock()
	defer p.run.Unlock()
	return p.execute(ctx, force)
}

func (p *Pipeline) execute(ctx context.Context, force bool) (*Result, error) {
	start := p.now()
	res := &Result{RunID: p.newID(), Forced: force}
	log := p.d.Log.With().Str("run_id", res.RunID).Bool("forced", force).Logger()

	pending, err := p.d.Loader.PendingFeedback()
	if err != nil {
		return res, p.fail(ctx, log, res, start, StageLoading, err)
	}
	res.PendingFeedback = pending
	p.d.Metrics.PendingFeedback.Set(float64(pending))

	if !force && pending < p.cfg.MinFeedback {
		res.Skipped = true
		log.Info().Int("pending", pending).Int("threshold", p.cfg.MinFeedback).Msg("not enough feedback, skipping retraining")
		p.finish(log, res, start, &recorder.RunRecord{Status: recorder.StatusSkipped, FeedbackFiles: pending})
		return res, nil
	}

	log.Info().Int("pending", pending).Msg("retraining started")

	// Loading
	p.setState(StageLoading)
	if err := ctx.Err(); err != nil {
		return res, p.fail(ctx, log, res, start, StageLoading, err)
	}
	loaded, err := p.d.Loader.Load(ctx)
	if err != nil {
		return res, p.fail(ctx, log, res, start, StageLoading, err)
	}
	res.Warnings = loaded.Warnings
	res.FeedbackFiles = len(loaded.Feedback)

	// Training
	p.setState(StageTraining)
	if err := ctx.Err(); err != nil {
		return res, p.fail(ctx, log, res, start, StageTraining, err)
	}
	ds, err := features.Assemble(loaded.Bars)
	if err != nil {
		return res, p.fail(ctx, log, res, start, StageTraining, err)
	}
	trained, err := trainer.Train(ds, p.cfg.Trainer)
	if err != nil {
		return res, p.fail(ctx, log, res, start, StageTraining, err)
	}
	log.Info().
		Int("rows", ds.Len()).
		Float64("test_rmse", trained.Metrics.Test.RMSE).
		Float64("test_r2", trained.Metrics.Test.R2).
		Msg("model trained")

	// Saving
	p.setState(StageSaving)
	if err := ctx.Err(); err != nil {
		return res, p.fail(ctx, log, res, start, StageSaving, err)
	}
	info := model.ModelInfo{
		Name:            p.cfg.Name,
		Version:         p.cfg.Version,
		RunID:           res.RunID,
		RetrainedDate:   p.now().UTC(),
		Features:        append([]string(nil), ds.FeatureNames...),
		Metrics:         trained.Metrics,
		Hyperparameters: p.cfg.Trainer.Hyperparameters,
		TargetMode:      trained.Model.TargetMode,
		TrainingStats: model.TrainingStats{
			SamplesTotal:  ds.Len(),
			SamplesNew:    loaded.FeedbackRows,
			FeaturesCount: len(ds.FeatureNames),
			TrainSamples:  trained.TrainSamples,
			TestSamples:   trained.TestSamples,
		},
	}
	saved, err := p.d.Artifacts.Save(&artifact.Artifact{Model: trained.Model, Scaler: trained.Scaler, Info: info})
	if err != nil {
		return res, p.fail(ctx, log, res, start, StageSaving, err)
	}
	res.Info = saved

	// Archiving
	p.setState(StageArchiving)
	archived, err := p.d.Artifacts.ArchiveFeedback(loaded.Feedback)
	res.Archived = archived
	p.recordArchived(log, res.RunID, loaded.Feedback, archived)
	if err != nil {
		return res, p.fail(ctx, log, res, start, StageArchiving, err)
	}

	res.Duration = p.now().Sub(start)
	if err := p.d.Audit.Append(model.LogEntry{
		Timestamp: p.now().UTC(),
		Action:    artifact.ActionRetrain,
		Details: model.RetrainDetails{
			RunID:           res.RunID,
			SamplesTotal:    saved.TrainingStats.SamplesTotal,
			FeedbackSamples: loaded.FeedbackRows,
			Metrics:         saved.Metrics.Test,
			DurationSeconds: res.Duration.Seconds(),
		},
	}); err != nil {
		log.Error().Err(err).Msg("append retraining log")
	}

	p.d.Metrics.SetModel(saved)
	p.d.Metrics.PendingFeedback.Set(float64(pending - len(archived)))
	p.finish(log, res, start, &recorder.RunRecord{
		Status:        recorder.StatusSuccess,
		SamplesTotal:  saved.TrainingStats.SamplesTotal,
		SamplesNew:    saved.TrainingStats.SamplesNew,
		FeedbackFiles: len(archived),
		TrainSamples:  saved.TrainingStats.TrainSamples,
		TestSamples:   saved.TrainingStats.TestSamples,
		TrainRMSE:     saved.Metrics.Train.RMSE,
		TestRMSE:      saved.Metrics.Test.RMSE,
		TestMAE:       saved.Metrics.Test.MAE,
		TestR2:        saved.Metrics.Test.R2,
		ModelSHA256:   saved.Artifacts.ModelSHA256,
	})

	if err := p.d.Publisher.PublishModelUpdate(ctx, saved); err != nil {
		log.Warn().Err(err).Msg("publish model update")
	}
	if err := p.d.Notifier.Notify(ctx, notifier.FormatRetrainSuccess(saved, len(archived), res.Duration)); err != nil {
		log.Warn().Err(err).Msg("send retraining report")
	}

	log.Info().Dur("duration", res.Duration).Msg("retraining completed")
	return res, nil
}

func (p *Pipeline) fail(ctx context.Context, log zerolog.Logger, res *Result, start time.Time, stage Stage, err error) error {
	p.setState(StageFailed)
	serr := &StageError{Stage: stage, Err: err}
	log.Error().Err(err).Str("stage", string(stage)).Msg("retraining failed")

	p.finish(log, res, start, &recorder.RunRecord{
		Status:        recorder.StatusFailed,
		Stage:         string(stage),
		Error:         err.Error(),
		FeedbackFiles: res.FeedbackFiles,
	})
	if nerr := p.d.Notifier.Notify(ctx, notifier.FormatRetrainFailure(res.RunID, string(stage), err)); nerr != nil {
		log.Warn().Err(nerr).Msg("send failure report")
	}
	return serr
}

// finish records the run, updates run metrics and writes the textfile.
func (p *Pipeline) finish(log zerolog.Logger, res *Result, start time.Time, rec *recorder.RunRecord) {
	end := p.now()
	res.Duration = end.Sub(start)
	if rec.Status != recorder.StatusFailed {
		p.setState(StageIdle)
	}

	rec.RunID = res.RunID
	rec.StartedAt = start
	rec.FinishedAt = end
	rec.Forced = res.Forced
	if err := p.d.Recorder.RecordRun(rec); err != nil {
		log.Warn().Err(err).Msg("record run")
	}

	p.d.Metrics.ObserveRun(rec.Status, res.Duration)
	if err := p.d.Metrics.WriteTextfile(p.cfg.TextfilePath); err != nil {
		log.Warn().Err(err).Msg("write metrics textfile")
	}
}

func (p *Pipeline) recordArchived(log zerolog.Logger, runID string, batches []model.FeedbackBatch, archived []string) {
	for i, dst := range archived {
		if err := p.d.Recorder.RecordArchived(&recorder.ArchivedFeedback{
			RunID:      runID,
			Source:     batches[i].Path,
			ArchivedTo: dst,
			Rows:       len(batches[i].Bars),
		}); err != nil {
			log.Warn().Err(err).Msg("record archived feedback")
		}
	}
}
