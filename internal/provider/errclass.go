package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
)

// modelErrorCodes are structured error codes providers use to signal that the
// requested model does not exist or is not served. Structured codes are the
// authoritative signal; free-text matching below is only a bounded fallback.
var modelErrorCodes = map[string]struct{}{
	"model_not_found":     {},
	"model_not_exist":     {},
	"invalid_model":       {},
	"unsupported_model":   {},
	"modelnotfound":       {},
	"invalidparameter.模型": {},
}

// modelErrorPhrases is the bounded free-text fallback: the message must
// mention a model and one of these qualifiers. The list is intentionally
// short; it is not assumed exhaustive.
var modelErrorPhrases = []string{"not found", "not exist", "does not exist", "unavailable", "invalid", "unsupported"}

// IsModelUnavailable classifies a provider error response as "the model is
// unavailable", which permits a same-dispatch fallback to the provider's next
// declared model when the task supplied no explicit model.
func IsModelUnavailable(code, message string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	if _, ok := modelErrorCodes[code]; ok {
		return true
	}
	message = strings.ToLower(message)
	if !strings.Contains(message, "model") {
		return false
	}
	for _, phrase := range modelErrorPhrases {
		if strings.Contains(message, phrase) {
			return true
		}
	}
	return false
}

// Classify maps an adapter error to the failure code stored on the task.
func Classify(err error) domain.FailureCode {
	switch {
	case err == nil:
		return domain.FailureNone
	case errors.Is(err, context.DeadlineExceeded):
		return domain.FailureProviderTimeout
	case errors.Is(err, domain.ErrConfiguration):
		return domain.FailureConfigurationError
	case errors.Is(err, domain.ErrNoProviderAvailable):
		return domain.FailureNoProviderAvailable
	default:
		return domain.FailureProviderRejected
	}
}
