package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
)

type createTaskRequest struct {
	Kind           string              `json:"kind"`
	Prompt         string              `json:"prompt"`
	NegativePrompt string              `json:"negative_prompt,omitempty"`
	SourceImageURL string              `json:"source_image_url,omitempty"`
	Model          string              `json:"model,omitempty"`
	ImageParams    *domain.ImageParams `json:"image_params,omitempty"`
	VideoParams    *domain.VideoParams `json:"video_params,omitempty"`
}

type taskResponse struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	ResultRef    string `json:"result_ref,omitempty"`
	FailureCode  string `json:"failure_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// CreateTask inserts a pending generation task. The orchestration loop is the
// only consumer that advances it from there.
func (a *App) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	kind, err := domain.ParseTaskKind(req.Kind)
	if err != nil {
		a.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	task := &domain.Task{
		UserID:         userID(r),
		Kind:           kind,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		SourceImageURL: req.SourceImageURL,
		Model:          req.Model,
		ImageParams:    req.ImageParams,
		VideoParams:    req.VideoParams,
	}

	if err := a.Tasks.CreateTask(r.Context(), task); err != nil {
		if errors.Is(err, domain.ErrInvalidTask) {
			a.jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.Logger.Error().Err(err).Msg("create task failed")
		a.jsonError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	a.json(w, http.StatusCreated, taskResponse{
		ID:       task.ID,
		Kind:     string(task.Kind),
		Status:   string(domain.TaskStatusPending),
		Progress: 0,
	})
}

// GetTask is the polling contract the user-facing layer shows live progress
// with: status, progress, result reference and error message.
func (a *App) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := a.Tasks.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.jsonError(w, http.StatusNotFound, "task not found")
			return
		}
		a.Logger.Error().Err(err).Str("task_id", id).Msg("get task failed")
		a.jsonError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	if task.UserID != userID(r) {
		a.jsonError(w, http.StatusNotFound, "task not found")
		return
	}

	resp := taskResponse{
		ID:           task.ID,
		Kind:         string(task.Kind),
		Status:       string(task.Status),
		Progress:     task.Progress,
		ResultRef:    task.ResultRef,
		FailureCode:  string(task.FailureCode),
		ErrorMessage: task.ErrorMessage,
	}
	if !task.CreatedAt.IsZero() {
		resp.CreatedAt = task.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !task.UpdatedAt.IsZero() {
		resp.UpdatedAt = task.UpdatedAt.UTC().Format(time.RFC3339)
	}
	a.json(w, http.StatusOK, resp)
}
