package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/johnpaul085/free-sora-sub000/internal/http/handlers"
	"github.com/johnpaul085/free-sora-sub000/internal/middleware"
)

// NewRouter wires the API routes. staticDir, when non-empty, is served under
// /static so rehosted media is reachable via the storage base URL.
func NewRouter(app *handlers.App, staticDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/tasks", func(r chi.Router) {
		r.Post("/", app.CreateTask)
		r.Get("/{id}", app.GetTask)
	})
	r.Get("/v1/artifacts", app.ListArtifacts)

	if staticDir != "" {
		server := http.FileServer(http.Dir(staticDir))
		r.Handle("/static/*", http.StripPrefix("/static/", server))
	}

	return r
}
