// Package dashscope speaks the DashScope multimodal generation protocol used
// by the Qwen/Wan image model families. The call is synchronous: a successful
// response already carries the hosted image URL.
package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
	"github.com/johnpaul085/free-sora-sub000/internal/provider"
)

// Adapter is a synchronous image adapter for DashScope-compatible backends.
type Adapter struct {
	client *http.Client
}

func New(client *http.Client) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Adapter{client: client}
}

func (a *Adapter) Kind() domain.AdapterKind {
	return domain.AdapterKindDashScopeImage
}

type generationRequest struct {
	Model      string           `json:"model"`
	Input      generationInput  `json:"input"`
	Parameters generationParams `json:"parameters"`
}

type generationInput struct {
	Messages []generationMessage `json:"messages"`
}

type generationMessage struct {
	Role    string              `json:"role"`
	Content []generationContent `json:"content"`
}

type generationContent struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

type generationParams struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Size           string `json:"size,omitempty"`
}

type generationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Invoke issues one generation call per candidate model until one succeeds or
// a non-model error surfaces. DashScope reports errors both as HTTP status and
// as an in-body code, sometimes on a 200 response; both paths are checked.
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
		invocation, code, message, genErr := a.generate(ctx, endpoint, cfg.APIKey, model, task)
		if genErr == nil {
			return invocation, nil
		}
		lastErr = genErr
		if strings.TrimSpace(task.Model) == "" && i < len(models)-1 && provider.IsModelUnavailable(code, message) {
			continue
		}
		break
	}
	return nil, lastErr
}

func (a *Adapter) generate(ctx context.Context, endpoint, apiKey, model string, task *domain.Task) (*provider.Invocation, string, string, error) {
	content := []generationContent{{Text: task.Prompt}}
	if src := strings.TrimSpace(task.SourceImageURL); src != "" {
		content = append(content, generationContent{Image: src})
	}
	payload := generationRequest{
		Model: model,
		Input: generationInput{
			Messages: []generationMessage{{Role: "user", Content: content}},
		},
	}
	if neg := strings.TrimSpace(task.NegativePrompt); neg != "" {
		payload.Parameters.NegativePrompt = neg
	}
	if task.ImageParams != nil {
		payload.Parameters.Size = sizeForAspect(task.ImageParams.AspectRatio)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/services/aigc/multimodal-generation/generation", bytes.NewReader(body))
	if err != nil {
		return nil, "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", "", fmt.Errorf("invoke dashscope: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, "", "", fmt.Errorf("read response: %w", err)
	}

	var decoded generationResponse
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode >= http.StatusMultipleChoices || decoded.Code != "" {
		code, message := decoded.Code, decoded.Message
		if message == "" {
			message = strings.TrimSpace(string(raw))
		}
		return nil, code, message, fmt.Errorf("%w: status %d, code %s: %s", domain.ErrProviderRejected, resp.StatusCode, code, message)
	}
	if decodeErr != nil {
		return nil, "", "", fmt.Errorf("decode response: %w", decodeErr)
	}

	for _, choice := range decoded.Output.Choices {
		for _, part := range choice.Message.Content {
			if url := strings.TrimSpace(part.Image); url != "" {
				return &provider.Invocation{ResultURL: url}, "", "", nil
			}
		}
	}
	return nil, "", "", fmt.Errorf("%w: response carried no image", domain.ErrProviderRejected)
}

func sizeForAspect(aspect string) string {
	switch strings.TrimSpace(aspect) {
	case "16:9":
		return "1664*928"
	case "9:16":
		return "928*1664"
	case "", "1:1":
		return "1328*1328"
	default:
		return "1328*1328"
	}
}

var _ provider.Adapter = (*Adapter)(nil)
