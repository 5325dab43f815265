package domain

import (
	"strings"
	"time"
)

// Modality enumerates the media families a provider can serve. Assistant
// configurations share the registry table with generation providers but are
// never selected by the orchestration core.
type Modality string

const (
	ModalityImage     Modality = "image"
	ModalityVideo     Modality = "video"
	ModalityAssistant Modality = "assistant"
)

// AdapterKind tags the wire protocol a provider configuration speaks. Dispatch
// is decided by this tag at configuration time, never re-derived from name
// substrings at call time.
type AdapterKind string

const (
	AdapterKindOpenAIImage    AdapterKind = "openai_image"
	AdapterKindDashScopeImage AdapterKind = "dashscope_image"
	AdapterKindKlingVideo     AdapterKind = "kling_video"
	AdapterKindSoraVideo      AdapterKind = "sora_video"
)

// ProviderConfig describes one externally reachable generation backend.
type ProviderConfig struct {
	Name        string
	Modality    Modality
	AdapterKind AdapterKind
	Enabled     bool
	Priority    int
	Models      []string
	Endpoint    string
	APIKey      string
	SecretKey   string
	RateLimit   int
	UpdatedAt   time.Time
}

// Eligible reports whether the configuration may be selected at all. A blank
// credential makes a configuration ineligible regardless of the enabled flag.
func (c *ProviderConfig) Eligible() bool {
	if c == nil || !c.Enabled {
		return false
	}
	return strings.TrimSpace(c.APIKey) != ""
}

// DeclaresModel reports whether the configuration accepts the given model. An
// empty declared list means the provider accepts any model name.
func (c *ProviderConfig) DeclaresModel(model string) bool {
	if c == nil {
		return false
	}
	if len(c.Models) == 0 {
		return true
	}
	model = strings.ToLower(strings.TrimSpace(model))
	for _, declared := range c.Models {
		declared = strings.ToLower(strings.TrimSpace(declared))
		if declared == "" {
			continue
		}
		if strings.Contains(declared, model) || strings.Contains(model, declared) {
			return true
		}
	}
	return false
}
