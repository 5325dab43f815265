// Package orchestrator drives generation tasks through their lifecycle:
// pending tasks are dispatched to a selected provider, long-running video
// jobs are polled to completion, and finished media is rehosted into durable
// local storage. One recurring tick does all the work; the loop itself never
// fails, only individual tasks do.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
	"github.com/johnpaul085/free-sora-sub000/internal/provider"
	"github.com/johnpaul085/free-sora-sub000/internal/registry"
)

// Default tick tuning. Dispatch claims the oldest pending tasks; polling
// visits the least recently updated in-flight video tasks so no task starves.
const (
	DefaultInterval      = 5 * time.Second
	DefaultDispatchBatch = 5
	DefaultPollBatch     = 10

	progressClaimed   = 10
	progressSubmitted = 30
	progressPollStep  = 10
	progressPollCeil  = 90
	progressCompleted = 100
)

// TaskStore is the persistence contract the loop drives. All task mutations
// go through it; implementations must make each call atomic at the row level.
type TaskStore interface {
	OldestPending(ctx context.Context, limit int) ([]domain.Task, error)
	StaleProcessingVideo(ctx context.Context, limit int) ([]domain.Task, error)
	MarkProcessing(ctx context.Context, id string, progress int) error
	SetDispatched(ctx context.Context, id, provider, model, jobID string, progress int) error
	SetProgress(ctx context.Context, id string, progress int) error
	MarkCompleted(ctx context.Context, id, resultRef string) error
	MarkFailed(ctx context.Context, id string, code domain.FailureCode, message string) error
	CreateArtifact(ctx context.Context, task *domain.Task, localRef, sourceRef string) (*domain.Artifact, error)
	EnabledProviderConfigs(ctx context.Context, modality domain.Modality) ([]domain.ProviderConfig, error)
}

// Rehoster stores a durable local copy of a result reference. It degrades to
// returning the reference unchanged and never errors.
type Rehoster interface {
	Rehost(ctx context.Context, ref string, modality domain.Modality) string
}

// Options tunes the loop; zero values fall back to the defaults above.
type Options struct {
	Interval      time.Duration
	DispatchBatch int
	PollBatch     int
}

// Orchestrator owns every task state transition. Nothing else writes tasks.
type Orchestrator struct {
	store    TaskStore
	adapters *provider.Registry
	rehoster Rehoster
	logger   zerolog.Logger

	interval      time.Duration
	dispatchBatch int
	pollBatch     int

	ticking atomic.Bool
}

// New constructs an orchestrator.
func New(store TaskStore, adapters *provider.Registry, rehoster Rehoster, logger zerolog.Logger, opts Options) *Orchestrator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.DispatchBatch <= 0 {
		opts.DispatchBatch = DefaultDispatchBatch
	}
	if opts.PollBatch <= 0 {
		opts.PollBatch = DefaultPollBatch
	}
	return &Orchestrator{
		store:         store,
		adapters:      adapters,
		rehoster:      rehoster,
		logger:        logger,
		interval:      opts.Interval,
		dispatchBatch: opts.DispatchBatch,
		pollBatch:     opts.PollBatch,
	}
}

// Run ticks on a fixed interval until the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	o.logger.Info().Dur("interval", o.interval).Msg("orchestrator: started")
	for {
		select {
		case <-ctx.Done():
			o.logger.Info().Msg("orchestrator: stopped")
			return ctx.Err()
		case <-ticker.C:
			o.Tick(ctx)
		}
	}
}

// Tick runs one scheduling pass. Ticks are single-flight: when a pass is
// still running as the timer fires again, the new tick is skipped entirely
// rather than queued, which prevents duplicate dispatch of the same task.
// Returns false when the tick was skipped.
func (o *Orchestrator) Tick(ctx context.Context) bool {
	if !o.ticking.CompareAndSwap(false, true) {
		o.logger.Debug().Msg("orchestrator: previous tick still running, skipping")
		return false
	}
	defer o.ticking.Store(false)

	o.dispatchPending(ctx)
	o.pollInFlight(ctx)
	return true
}

// dispatchPending claims the oldest pending tasks and dispatches each in
// creation order. Tasks are processed serially: at most one outstanding
// provider call per loop pass.
func (o *Orchestrator) dispatchPending(ctx context.Context) {
	tasks, err := o.store.OldestPending(ctx, o.dispatchBatch)
	if err != nil {
		o.logger.Error().Err(err).Msg("orchestrator: fetch pending tasks failed")
		return
	}
	for i := range tasks {
		o.guarded(ctx, &tasks[i], o.dispatchOne)
	}
}

// pollInFlight visits processing video tasks holding a correlation handle,
// least recently updated first.
func (o *Orchestrator) pollInFlight(ctx context.Context) {
	tasks, err := o.store.StaleProcessingVideo(ctx, o.pollBatch)
	if err != nil {
		o.logger.Error().Err(err).Msg("orchestrator: fetch in-flight tasks failed")
		return
	}
	for i := range tasks {
		o.guarded(ctx, &tasks[i], o.pollOne)
	}
}

// guarded is the per-task failure boundary: an error or panic while handling
// one task becomes that task's failed transition and never aborts the batch.
func (o *Orchestrator) guarded(ctx context.Context, task *domain.Task, handle func(context.Context, *domain.Task) error) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error().Str("task_id", task.ID).Interface("panic", rec).Msg("orchestrator: task handler panicked")
			o.failTask(ctx, task, domain.FailureProviderRejected, fmt.Sprintf("internal error: %v", rec))
		}
	}()
	if err := handle(ctx, task); err != nil {
		o.failTask(ctx, task, provider.Classify(err), err.Error())
	}
}

func (o *Orchestrator) dispatchOne(ctx context.Context, task *domain.Task) error {
	o.logger.Info().Str("task_id", task.ID).Str("kind", string(task.Kind)).Msg("orchestrator: dispatching task")

	if err := o.store.MarkProcessing(ctx, task.ID, progressClaimed); err != nil {
		return err
	}
	task.Status = domain.TaskStatusProcessing

	modality := task.Kind.Modality()
	configs, err := o.store.EnabledProviderConfigs(ctx, modality)
	if err != nil {
		return fmt.Errorf("load provider configs: %w", err)
	}
	cfg := registry.Select(configs, modality, task.Model)
	if cfg == nil {
		return fmt.Errorf("%w: no enabled %s provider matches the request", domain.ErrNoProviderAvailable, modality)
	}

	adapter, err := o.adapters.For(cfg)
	if err != nil {
		return err
	}
	invocation, err := adapter.Invoke(ctx, cfg, task)
	if err != nil {
		return err
	}
	task.Provider = cfg.Name

	// Backfill a missing model hint from the provider name, for display and
	// audit only. This must happen after invocation: the adapter needs the
	// original empty hint to try the provider's declared models in turn.
	if strings.TrimSpace(task.Model) == "" {
		if implied := registry.ImpliedModel(cfg.Name); implied != "" {
			task.Model = implied
		}
	}

	switch {
	case invocation == nil:
		return fmt.Errorf("%w: adapter returned no invocation", domain.ErrProviderRejected)
	case invocation.JobID != "":
		// Async path: record the correlation handle and wait for polling.
		if err := o.store.SetDispatched(ctx, task.ID, cfg.Name, task.Model, invocation.JobID, progressSubmitted); err != nil {
			return err
		}
		task.ProviderJobID = invocation.JobID
		o.logger.Info().Str("task_id", task.ID).Str("provider", cfg.Name).Str("job_id", invocation.JobID).Msg("orchestrator: task submitted")
		return nil
	case invocation.ResultURL != "":
		if err := o.store.SetDispatched(ctx, task.ID, cfg.Name, task.Model, "", progressClaimed); err != nil {
			return err
		}
		return o.complete(ctx, task, invocation.ResultURL)
	default:
		return fmt.Errorf("%w: adapter returned neither result nor job", domain.ErrProviderRejected)
	}
}

func (o *Orchestrator) pollOne(ctx context.Context, task *domain.Task) error {
	configs, err := o.store.EnabledProviderConfigs(ctx, task.Kind.Modality())
	if err != nil {
		// Configuration may be reloading; leave the task for a later tick.
		o.logger.Warn().Err(err).Str("task_id", task.ID).Msg("orchestrator: provider configs unavailable, skipping poll")
		return nil
	}
	cfg := registry.FindForTask(configs, task)
	if cfg == nil {
		o.logger.Warn().Str("task_id", task.ID).Str("provider", task.Provider).Msg("orchestrator: stored provider not configured, skipping poll")
		return nil
	}

	poller, err := o.adapters.PollerFor(cfg)
	if err != nil {
		return err
	}
	status, err := poller.Poll(ctx, cfg, task.ProviderJobID)
	if err != nil {
		return err
	}

	switch status.State {
	case provider.JobStateCompleted:
		return o.complete(ctx, task, status.ResultURL)
	case provider.JobStateFailed:
		message := status.Message
		if message == "" {
			message = "provider reported failure"
		}
		o.failTask(ctx, task, domain.FailureProviderRejected, message)
		return nil
	default:
		next := o.nextProgress(task.Progress, status.Progress)
		if err := o.store.SetProgress(ctx, task.ID, next); err != nil {
			return err
		}
		task.Progress = next
		o.logger.Debug().Str("task_id", task.ID).Int("progress", next).Msg("orchestrator: task still running")
		return nil
	}
}

// nextProgress prefers the provider-reported value, clamped and never moving
// backwards. Without a reported value it steps forward by a fixed increment,
// capped below completion so users see movement without a false done signal.
func (o *Orchestrator) nextProgress(current, reported int) int {
	if reported >= 0 {
		reported = domain.ClampProgress(reported)
		if reported > current {
			return reported
		}
		return current
	}
	stepped := current + progressPollStep
	if stepped > progressPollCeil {
		stepped = progressPollCeil
	}
	if stepped < current {
		return current
	}
	return stepped
}

// complete rehosts the result and finalizes the task. Rehosting degrades to
// the original remote reference rather than failing, so a completed
// generation is never lost to a storage hiccup.
func (o *Orchestrator) complete(ctx context.Context, task *domain.Task, resultURL string) error {
	localRef := o.rehoster.Rehost(ctx, resultURL, task.Kind.Modality())
	if err := o.store.MarkCompleted(ctx, task.ID, localRef); err != nil {
		return err
	}
	task.Status = domain.TaskStatusCompleted
	task.Progress = progressCompleted
	task.ResultRef = localRef

	if _, err := o.store.CreateArtifact(ctx, task, localRef, resultURL); err != nil {
		// The task is already terminal; artifact creation is retried by no
		// one, so surface loudly but do not rewrite task state.
		o.logger.Error().Err(err).Str("task_id", task.ID).Msg("orchestrator: artifact creation failed")
	}
	o.logger.Info().Str("task_id", task.ID).Str("result", localRef).Msg("orchestrator: task completed")
	return nil
}

func (o *Orchestrator) failTask(ctx context.Context, task *domain.Task, code domain.FailureCode, message string) {
	if err := o.store.MarkFailed(ctx, task.ID, code, message); err != nil {
		o.logger.Error().Err(err).Str("task_id", task.ID).Msg("orchestrator: mark failed errored")
		return
	}
	task.Status = domain.TaskStatusFailed
	task.FailureCode = code
	task.ErrorMessage = message
	o.logger.Warn().Str("task_id", task.ID).Str("code", string(code)).Str("error", message).Msg("orchestrator: task failed")
}
