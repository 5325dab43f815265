package domain

import "errors"

// FailureCode classifies why a task reached the failed state. Rehosting
// failures are deliberately absent: they downgrade to keeping the original
// remote reference and never fail a task.
type FailureCode string

const (
	FailureNone                FailureCode = ""
	FailureConfigurationError  FailureCode = "configuration_error"
	FailureNoProviderAvailable FailureCode = "no_provider_available"
	FailureProviderRejected    FailureCode = "provider_rejected"
	FailureProviderTimeout     FailureCode = "provider_timeout"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrNoProviderAvailable = errors.New("no provider available")
	ErrConfiguration       = errors.New("provider configuration invalid")
	ErrProviderRejected    = errors.New("provider rejected request")
)
