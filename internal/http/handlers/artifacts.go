package handlers

import (
	"net/http"
	"strconv"
)

const defaultArtifactLimit = 50

type artifactResponse struct {
	ID              string `json:"id"`
	TaskID          string `json:"task_id"`
	Modality        string `json:"modality"`
	LocalRef        string `json:"local_ref"`
	SourceRef       string `json:"source_ref,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Prompt          string `json:"prompt,omitempty"`
	Model           string `json:"model,omitempty"`
	Provider        string `json:"provider,omitempty"`
}

// ListArtifacts returns the caller's most recent result artifacts.
func (a *App) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	limit := defaultArtifactLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	artifacts, err := a.Tasks.ListArtifacts(r.Context(), userID(r), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("list artifacts failed")
		a.jsonError(w, http.StatusInternalServerError, "failed to list artifacts")
		return
	}

	responses := make([]artifactResponse, 0, len(artifacts))
	for _, artifact := range artifacts {
		responses = append(responses, artifactResponse{
			ID:              artifact.ID,
			TaskID:          artifact.TaskID,
			Modality:        string(artifact.Modality),
			LocalRef:        artifact.LocalRef,
			SourceRef:       artifact.SourceRef,
			Width:           artifact.Width,
			Height:          artifact.Height,
			DurationSeconds: artifact.DurationSeconds,
			Prompt:          artifact.Prompt,
			Model:           artifact.Model,
			Provider:        artifact.Provider,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"artifacts": responses})
}
