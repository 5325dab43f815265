// Package store is the durable record of tasks, provider configurations and
// result artifacts. It is the single source of truth for task state: every
// mutation the orchestration loop makes goes through one of the update
// methods here, and terminal transitions are guarded in SQL so a completed or
// failed task can never be rewritten.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
	"github.com/johnpaul085/free-sora-sub000/internal/infra"
	"github.com/johnpaul085/free-sora-sub000/internal/sqlinline"
)

// Store executes task, provider and artifact queries against Postgres.
type Store struct {
	runner infra.SQLExecutor
}

func New(runner infra.SQLExecutor) *Store {
	return &Store{runner: runner}
}

// CreateTask validates and inserts a new pending task, filling in its ID.
func (s *Store) CreateTask(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	imageParams, videoParams, err := marshalParams(task)
	if err != nil {
		return err
	}
	_, err = s.runner.Exec(ctx, sqlinline.QInsertTask,
		task.ID, task.UserID, string(task.Kind), task.Prompt, task.NegativePrompt,
		task.SourceImageURL, task.Model, imageParams, videoParams,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask loads a single task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	row := s.runner.QueryRow(ctx, sqlinline.QGetTask, id)
	task, err := scanTask(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// OldestPending returns up to limit pending tasks, oldest first.
func (s *Store) OldestPending(ctx context.Context, limit int) ([]domain.Task, error) {
	rows, err := s.runner.Query(ctx, sqlinline.QOldestPendingTasks, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return collectTasks(rows)
}

// StaleProcessingVideo returns up to limit processing video tasks that hold a
// provider correlation handle, least recently updated first.
func (s *Store) StaleProcessingVideo(ctx context.Context, limit int) ([]domain.Task, error) {
	rows, err := s.runner.Query(ctx, sqlinline.QStaleProcessingVideoTasks, limit)
	if err != nil {
		return nil, fmt.Errorf("list processing video tasks: %w", err)
	}
	return collectTasks(rows)
}

// MarkProcessing moves a pending task into processing at the given progress.
func (s *Store) MarkProcessing(ctx context.Context, id string, progress int) error {
	_, err := s.runner.Exec(ctx, sqlinline.QMarkTaskProcessing, id, domain.ClampProgress(progress))
	if err != nil {
		return fmt.Errorf("mark task processing: %w", err)
	}
	return nil
}

// SetDispatched records the provider routing of a task: provider name, the
// model actually used, and (for async dispatch) the correlation handle. The
// statement refuses to overwrite an existing handle, so a task can never hold
// two outstanding provider jobs.
func (s *Store) SetDispatched(ctx context.Context, id, provider, model, jobID string, progress int) error {
	tag, err := s.runner.Exec(ctx, sqlinline.QSetTaskDispatched, id, provider, model, jobID, domain.ClampProgress(progress))
	if err != nil {
		return fmt.Errorf("set task dispatched: %w", err)
	}
	if jobID != "" && tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s already holds a provider job", id)
	}
	return nil
}

// SetProgress raises a processing task's progress. The SQL takes the greater
// of the stored and supplied values, so progress is monotone by construction.
func (s *Store) SetProgress(ctx context.Context, id string, progress int) error {
	_, err := s.runner.Exec(ctx, sqlinline.QSetTaskProgress, id, domain.ClampProgress(progress))
	if err != nil {
		return fmt.Errorf("set task progress: %w", err)
	}
	return nil
}

// MarkCompleted finishes a task with its result reference.
func (s *Store) MarkCompleted(ctx context.Context, id, resultRef string) error {
	_, err := s.runner.Exec(ctx, sqlinline.QMarkTaskCompleted, id, resultRef)
	if err != nil {
		return fmt.Errorf("mark task completed: %w", err)
	}
	return nil
}

// MarkFailed finishes a task with a failure classification and message.
func (s *Store) MarkFailed(ctx context.Context, id string, code domain.FailureCode, message string) error {
	_, err := s.runner.Exec(ctx, sqlinline.QMarkTaskFailed, id, string(code), message)
	if err != nil {
		return fmt.Errorf("mark task failed: %w", err)
	}
	return nil
}

// CreateArtifact materializes the result artifact of a completed task. The
// insert is idempotent per task, matching the exactly-once contract.
func (s *Store) CreateArtifact(ctx context.Context, task *domain.Task, localRef, sourceRef string) (*domain.Artifact, error) {
	artifact := &domain.Artifact{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		UserID:    task.UserID,
		Modality:  task.Kind.Modality(),
		LocalRef:  localRef,
		SourceRef: sourceRef,
		Prompt:    task.Prompt,
		Model:     task.Model,
		Provider:  task.Provider,
	}
	if task.VideoParams != nil {
		artifact.DurationSeconds = task.VideoParams.DurationSeconds
	}
	_, err := s.runner.Exec(ctx, sqlinline.QInsertArtifact,
		artifact.ID, artifact.TaskID, artifact.UserID, string(artifact.Modality),
		artifact.LocalRef, artifact.SourceRef, artifact.Width, artifact.Height,
		artifact.DurationSeconds, artifact.Prompt, artifact.Model, artifact.Provider,
	)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}
	return artifact, nil
}

// ListArtifacts returns a user's most recent artifacts.
func (s *Store) ListArtifacts(ctx context.Context, userID string, limit int) ([]domain.Artifact, error) {
	rows, err := s.runner.Query(ctx, sqlinline.QListArtifactsByUser, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		var modality string
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UserID, &modality, &a.LocalRef, &a.SourceRef,
			&a.Width, &a.Height, &a.DurationSeconds, &a.Prompt, &a.Model, &a.Provider, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Modality = domain.Modality(modality)
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// EnabledProviderConfigs returns the enabled configurations of a modality in
// priority-then-recency order. Credential eligibility is left to the registry.
func (s *Store) EnabledProviderConfigs(ctx context.Context, modality domain.Modality) ([]domain.ProviderConfig, error) {
	rows, err := s.runner.Query(ctx, sqlinline.QEnabledProviderConfigs, string(modality))
	if err != nil {
		return nil, fmt.Errorf("list provider configs: %w", err)
	}
	defer rows.Close()

	var configs []domain.ProviderConfig
	for rows.Next() {
		var cfg domain.ProviderConfig
		var modality, adapterKind string
		if err := rows.Scan(&cfg.Name, &modality, &adapterKind, &cfg.Enabled, &cfg.Priority,
			&cfg.Models, &cfg.Endpoint, &cfg.APIKey, &cfg.SecretKey, &cfg.RateLimit, &cfg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan provider config: %w", err)
		}
		cfg.Modality = domain.Modality(modality)
		cfg.AdapterKind = domain.AdapterKind(adapterKind)
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// SeedProviderConfigs inserts the given configurations when the provider table
// is empty, so a fresh install can come up routable without the admin surface.
func (s *Store) SeedProviderConfigs(ctx context.Context, configs []domain.ProviderConfig) (int, error) {
	row := s.runner.QueryRow(ctx, sqlinline.QCountProviderConfigs)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count provider configs: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	inserted := 0
	for _, cfg := range configs {
		_, err := s.runner.Exec(ctx, sqlinline.QInsertProviderConfig,
			cfg.Name, string(cfg.Modality), string(cfg.AdapterKind), cfg.Enabled,
			cfg.Priority, normalizeModels(cfg.Models), cfg.Endpoint, cfg.APIKey, cfg.SecretKey, cfg.RateLimit,
		)
		if err != nil {
			return inserted, fmt.Errorf("seed provider %q: %w", cfg.Name, err)
		}
		inserted++
	}
	return inserted, nil
}

func marshalParams(task *domain.Task) ([]byte, []byte, error) {
	imageParams := []byte("null")
	videoParams := []byte("null")
	if task.ImageParams != nil {
		raw, err := json.Marshal(task.ImageParams)
		if err != nil {
			return nil, nil, fmt.Errorf("encode image params: %w", err)
		}
		imageParams = raw
	}
	if task.VideoParams != nil {
		raw, err := json.Marshal(task.VideoParams)
		if err != nil {
			return nil, nil, fmt.Errorf("encode video params: %w", err)
		}
		videoParams = raw
	}
	return imageParams, videoParams, nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	var kind, status, failureCode string
	var imageParams, videoParams []byte
	err := row.Scan(&task.ID, &task.UserID, &kind, &task.Prompt, &task.NegativePrompt,
		&task.SourceImageURL, &task.Model, &task.Provider, &status, &task.Progress,
		&task.ProviderJobID, &task.ResultRef, &failureCode, &task.ErrorMessage,
		&imageParams, &videoParams, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	task.Kind = domain.TaskKind(kind)
	task.Status = domain.TaskStatus(status)
	task.FailureCode = domain.FailureCode(failureCode)
	if len(imageParams) > 0 && string(imageParams) != "null" {
		task.ImageParams = &domain.ImageParams{}
		if err := json.Unmarshal(imageParams, task.ImageParams); err != nil {
			return nil, fmt.Errorf("decode image params: %w", err)
		}
	}
	if len(videoParams) > 0 && string(videoParams) != "null" {
		task.VideoParams = &domain.VideoParams{}
		if err := json.Unmarshal(videoParams, task.VideoParams); err != nil {
			return nil, fmt.Errorf("decode video params: %w", err)
		}
	}
	return &task, nil
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	defer rows.Close()
	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// normalizeModels keeps declared model lists tidy on the way in.
func normalizeModels(models []string) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
