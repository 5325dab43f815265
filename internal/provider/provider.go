// Package provider defines the contracts between the orchestration loop and
// the protocol-specific adapters. An adapter owns exactly one third-party wire
// protocol and is a stateless translator: it never persists anything and never
// invents a result.
package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
)

// Timeout classes applied to outbound provider calls. Submission and polling
// are short; only asset retrieval (handled by the rehoster) gets the long
// class.
const (
	SubmitTimeout = 10 * time.Second
	PollTimeout   = 10 * time.Second
)

// Invocation is the outcome of a successful dispatch. Exactly one field is
// set: ResultURL for synchronous (image) adapters, JobID for asynchronous
// (video) adapters that require polling.
type Invocation struct {
	ResultURL string
	JobID     string
}

// JobState enumerates the states an asynchronous provider job can report.
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// JobStatus is the normalized result of polling an asynchronous job.
// Progress is -1 when the provider reports none.
type JobStatus struct {
	State     JobState
	Progress  int
	ResultURL string
	Message   string
}

// Adapter translates a generic generation task into one provider's wire
// protocol.
type Adapter interface {
	Kind() domain.AdapterKind
	Invoke(ctx context.Context, cfg *domain.ProviderConfig, task *domain.Task) (*Invocation, error)
}

// Poller is implemented by adapters whose providers complete asynchronously.
type Poller interface {
	Poll(ctx context.Context, cfg *domain.ProviderConfig, jobID string) (*JobStatus, error)
}

// Registry maps adapter kinds to adapter implementations. Dispatch is keyed by
// the configuration's declared AdapterKind, decided once at configuration
// time.
type Registry struct {
	adapters map[domain.AdapterKind]Adapter
}

// NewRegistry indexes the given adapters by kind.
func NewRegistry(adapters ...Adapter) *Registry {
	index := make(map[domain.AdapterKind]Adapter, len(adapters))
	for _, a := range adapters {
		index[a.Kind()] = a
	}
	return &Registry{adapters: index}
}

// For returns the adapter for a configuration's declared kind.
func (r *Registry) For(cfg *domain.ProviderConfig) (Adapter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil provider configuration", domain.ErrConfiguration)
	}
	adapter, ok := r.adapters[cfg.AdapterKind]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter registered for kind %q", domain.ErrConfiguration, cfg.AdapterKind)
	}
	return adapter, nil
}

// PollerFor returns the polling side of the adapter for a configuration, or
// an error when the adapter does not support polling.
func (r *Registry) PollerFor(cfg *domain.ProviderConfig) (Poller, error) {
	adapter, err := r.For(cfg)
	if err != nil {
		return nil, err
	}
	poller, ok := adapter.(Poller)
	if !ok {
		return nil, fmt.Errorf("%w: adapter %q cannot poll", domain.ErrConfiguration, cfg.AdapterKind)
	}
	return poller, nil
}

// ValidateEndpoint checks that a configured endpoint is a well-formed absolute
// URL and returns it trimmed of trailing slashes. Adapters must call this
// before any network activity so malformed configuration fails fast.
func ValidateEndpoint(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", fmt.Errorf("%w: endpoint is empty", domain.ErrConfiguration)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: endpoint %q: %v", domain.ErrConfiguration, endpoint, err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return "", fmt.Errorf("%w: endpoint %q is not an absolute URL", domain.ErrConfiguration, endpoint)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: endpoint %q has unsupported scheme %q", domain.ErrConfiguration, endpoint, parsed.Scheme)
	}
	return strings.TrimRight(endpoint, "/"), nil
}

// CandidateModels returns the models an adapter may try for a task, in order.
// A task with an explicit model gets exactly that model and no fallback. A
// task without one may try each model the provider declares; a provider with
// no declared models contributes a single empty entry (provider default).
func CandidateModels(cfg *domain.ProviderConfig, task *domain.Task) []string {
	if model := strings.TrimSpace(task.Model); model != "" {
		return []string{model}
	}
	if cfg == nil || len(cfg.Models) == 0 {
		return []string{""}
	}
	models := make([]string, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		return []string{""}
	}
	return models
}
