package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
)

// TaskService is the slice of the store the HTTP surface needs.
type TaskService interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListArtifacts(ctx context.Context, userID string, limit int) ([]domain.Artifact, error)
}

// App bundles the handler dependencies.
type App struct {
	Tasks  TaskService
	Logger zerolog.Logger
}

func NewApp(tasks TaskService, logger zerolog.Logger) *App {
	return &App{Tasks: tasks, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) jsonError(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}

// userID resolves the caller identity injected by the external auth layer.
func userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return "anonymous"
}
