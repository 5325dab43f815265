// Package registry implements the provider-selection policy: which configured
// backend should handle a given generation request. Matching against model
// hints is a deliberate best-effort fuzzy policy; operators are expected to
// name providers and models so that substring matching is unambiguous.
package registry

import (
	"sort"
	"strings"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
)

// Select picks the provider configuration that should handle a request of the
// given modality. Candidates are filtered to enabled, credentialed
// configurations of the modality. When a model hint is given, the first
// candidate (in priority-then-recency order) whose name or declared model list
// fuzzy-matches the hint wins. Otherwise the highest-priority candidate wins,
// ties broken by most recently configured. Returns nil when no candidate
// remains; callers must fail the task rather than block.
func Select(configs []domain.ProviderConfig, modality domain.Modality, modelHint string) *domain.ProviderConfig {
	candidates := eligible(configs, modality)
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].UpdatedAt.After(candidates[j].UpdatedAt)
	})

	hint := strings.ToLower(strings.TrimSpace(modelHint))
	if hint != "" {
		for i := range candidates {
			if matchesHint(&candidates[i], hint) {
				return &candidates[i]
			}
		}
	}
	return &candidates[0]
}

// FindForTask re-resolves the configuration a dispatched task was routed to,
// used by the polling path. The stored provider name must still match a live,
// eligible configuration of the task's modality; nil means the configuration
// is gone or reloading and the caller should skip the task this tick.
func FindForTask(configs []domain.ProviderConfig, task *domain.Task) *domain.ProviderConfig {
	if task == nil || strings.TrimSpace(task.Provider) == "" {
		return nil
	}
	name := strings.ToLower(strings.TrimSpace(task.Provider))
	for _, cfg := range eligible(configs, task.Kind.Modality()) {
		if strings.ToLower(strings.TrimSpace(cfg.Name)) == name {
			found := cfg
			return &found
		}
	}
	return nil
}

func eligible(configs []domain.ProviderConfig, modality domain.Modality) []domain.ProviderConfig {
	out := make([]domain.ProviderConfig, 0, len(configs))
	for _, cfg := range configs {
		if cfg.Modality != modality {
			continue
		}
		if !cfg.Eligible() {
			continue
		}
		out = append(out, cfg)
	}
	return out
}

// matchesHint checks the hint against the provider name and the declared model
// list, case-insensitive, substring in either direction. A provider with no
// declared models matches only by name here; its accept-anything behavior must
// not let it steal hinted requests from providers that declare the model.
func matchesHint(cfg *domain.ProviderConfig, hint string) bool {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if name != "" && (strings.Contains(name, hint) || strings.Contains(hint, name)) {
		return true
	}
	return len(cfg.Models) > 0 && cfg.DeclaresModel(hint)
}

// impliedModels maps well-known substrings of provider names to the model
// family they imply. Used only to backfill a missing model hint after
// selection; never used for dispatch.
var impliedModels = []struct {
	substring string
	model     string
}{
	{"sora", "sora-2"},
	{"kling", "kling-v1"},
	{"dall", "dall-e-3"},
	{"wan", "wan2.2-t2i-plus"},
	{"veo", "veo-3"},
}

// ImpliedModel returns the model family a provider name implies, or empty when
// the name implies nothing well known.
func ImpliedModel(providerName string) string {
	name := strings.ToLower(strings.TrimSpace(providerName))
	if name == "" {
		return ""
	}
	for _, entry := range impliedModels {
		if strings.Contains(name, entry.substring) {
			return entry.model
		}
	}
	return ""
}
