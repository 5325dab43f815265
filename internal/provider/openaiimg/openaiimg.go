// Package openaiimg speaks the OpenAI-compatible image generation protocol
// (POST /v1/images/generations). Many third-party image backends expose this
// shape behind their own endpoints, so the adapter is configured purely by the
// provider configuration's endpoint and credential.
package openaiimg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
	"github.com/johnpaul085/free-sora-sub000/internal/provider"
)

// Adapter is a synchronous image adapter: a successful invocation carries the
// final result URL (or an inline data URI) and needs no polling.
type Adapter struct {
	client *http.Client
}

// New constructs the adapter. A nil client falls back to a shared default; the
// per-call deadline comes from the context, not the client.
func New(client *http.Client) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Adapter{client: client}
}

func (a *Adapter) Kind() domain.AdapterKind {
	return domain.AdapterKindOpenAIImage
}

type generationRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type generationResponse struct {
	Data []struct {
		URL     string `json:"url,omitempty"`
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// Invoke issues the generation call. When the task supplied no explicit model
// and the provider declares several, a "model unavailable" rejection triggers
// one attempt with each declared model before the failure surfaces.
func (a *Adapter) Invoke(ctx context.Context, cfg *domain.ProviderConfig, task *domain.Task) (*provider.Invocation, error) {
	endpoint, err := provider.ValidateEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, provider.SubmitTimeout)
	defer cancel()

	models := provider.CandidateModels(cfg, task)
	var lastErr error
	for i, model := range models {
		invocation, genErr := a.generate(ctx, endpoint, cfg.APIKey, model, task)
		if genErr == nil {
			return invocation, nil
		}
		lastErr = genErr
		retryable := strings.TrimSpace(task.Model) == "" && i < len(models)-1
		var rejection *rejectionError
		if retryable && errors.As(genErr, &rejection) && provider.IsModelUnavailable(rejection.code, rejection.message) {
			continue
		}
		break
	}
	return nil, lastErr
}

func (a *Adapter) generate(ctx context.Context, endpoint, apiKey, model string, task *domain.Task) (*provider.Invocation, error) {
	payload := generationRequest{
		Model:          model,
		Prompt:         task.Prompt,
		N:              1,
		ResponseFormat: "url",
	}
	if task.ImageParams != nil {
		payload.Size = sizeForAspect(task.ImageParams.AspectRatio)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke image provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var decoded generationResponse
	if err := json.Unmarshal(raw, &decoded); err != nil && resp.StatusCode < http.StatusBadRequest {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		rejection := &rejectionError{status: resp.StatusCode}
		if decoded.Error != nil {
			rejection.code = firstNonEmpty(decoded.Error.Code, decoded.Error.Type)
			rejection.message = decoded.Error.Message
		}
		if rejection.message == "" {
			rejection.message = strings.TrimSpace(string(raw))
		}
		return nil, rejection
	}

	for _, item := range decoded.Data {
		if item.URL != "" {
			return &provider.Invocation{ResultURL: item.URL}, nil
		}
		if item.B64JSON != "" {
			return &provider.Invocation{ResultURL: "data:image/png;base64," + item.B64JSON}, nil
		}
	}
	// A 2xx with no recognizable image is still a failure, never a silent
	// partial success.
	return nil, fmt.Errorf("%w: response carried no image", domain.ErrProviderRejected)
}

// rejectionError is a non-2xx provider response.
type rejectionError struct {
	status  int
	code    string
	message string
}

func (e *rejectionError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("provider rejected request: status %d, code %s: %s", e.status, e.code, e.message)
	}
	return fmt.Sprintf("provider rejected request: status %d: %s", e.status, e.message)
}

func (e *rejectionError) Unwrap() error {
	return domain.ErrProviderRejected
}

func sizeForAspect(aspect string) string {
	switch strings.TrimSpace(aspect) {
	case "16:9":
		return "1792x1024"
	case "9:16":
		return "1024x1792"
	case "", "1:1":
		return "1024x1024"
	default:
		return "1024x1024"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var _ provider.Adapter = (*Adapter)(nil)
