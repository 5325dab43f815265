// Package kling speaks the Kling open video generation protocol: a JWT-signed
// submission that returns a task ID, followed by status polls against that ID.
// Authentication mints a short-lived HS256 token from the configured access
// key (APIKey) and secret key per request.
package kling

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/pkg/errors"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
	"github.com/johnpaul085/free-sora-sub000/internal/provider"
)

// Adapter is an asynchronous video adapter: invocation returns a provider task
// ID and completion is observed through Poll.
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
	return domain.AdapterKindKlingVideo
}

type submitRequest struct {
	Model       string `json:"model_name,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	Image       string `json:"image,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Duration    string `json:"duration,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

type submitResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

type taskResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskID        string `json:"task_id"`
		TaskStatus    string `json:"task_status"`
		TaskStatusMsg string `json:"task_status_msg"`
		TaskResult    *struct {
			Videos []struct {
				URL      string `json:"url"`
				Duration string `json:"duration"`
			} `json:"videos"`
		} `json:"task_result,omitempty"`
	} `json:"data"`
}

// Invoke submits a generation task. The submission path depends on whether
// the task conditions on a source image.
func (a *Adapter) Invoke(ctx context.Context, cfg *domain.ProviderConfig, task *domain.Task) (*provider.Invocation, error) {
	endpoint, err := provider.ValidateEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, provider.SubmitTimeout)
	defer cancel()

	payload := submitRequest{
		Model:  strings.TrimSpace(task.Model),
		Prompt: task.Prompt,
	}
	path := "/v1/videos/text2video"
	if src := strings.TrimSpace(task.SourceImageURL); src != "" {
		payload.Image = src
		payload.Mode = "std"
		path = "/v1/videos/image2video"
	}
	if task.VideoParams != nil {
		if task.VideoParams.DurationSeconds >= 10 {
			payload.Duration = "10"
		} else {
			payload.Duration = "5"
		}
		payload.AspectRatio = task.VideoParams.AspectRatio
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal submit request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create submit request")
	}
	if err := a.authorize(req, cfg); err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "submit kling task")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read submit response")
	}
	var decoded submitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil && resp.StatusCode < http.StatusBadRequest {
		return nil, errors.Wrap(err, "decode submit response")
	}
	if resp.StatusCode >= http.StatusBadRequest || decoded.Code != 0 {
		return nil, errors.Wrapf(domain.ErrProviderRejected, "status %d, code %d: %s", resp.StatusCode, decoded.Code, decoded.Message)
	}
	if strings.TrimSpace(decoded.Data.TaskID) == "" {
		return nil, errors.Wrap(domain.ErrProviderRejected, "submit response carried no task id")
	}
	return &provider.Invocation{JobID: decoded.Data.TaskID}, nil
}

// Poll fetches the status of a previously submitted task. Kling reports no
// numeric progress, so JobStatus.Progress is -1 on pending.
func (a *Adapter) Poll(ctx context.Context, cfg *domain.ProviderConfig, jobID string) (*provider.JobStatus, error) {
	endpoint, err := provider.ValidateEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, provider.PollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/v1/videos/generations/"+jobID, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create poll request")
	}
	if err := a.authorize(req, cfg); err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "poll kling task")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read poll response")
	}
	var decoded taskResponse
	if err := json.Unmarshal(raw, &decoded); err != nil && resp.StatusCode < http.StatusBadRequest {
		return nil, errors.Wrap(err, "decode poll response")
	}
	if resp.StatusCode >= http.StatusBadRequest || decoded.Code != 0 {
		return nil, errors.Wrapf(domain.ErrProviderRejected, "status %d, code %d: %s", resp.StatusCode, decoded.Code, decoded.Message)
	}

	status := &provider.JobStatus{Progress: -1}
	switch strings.ToLower(decoded.Data.TaskStatus) {
	case "succeed", "succeeded":
		status.State = provider.JobStateCompleted
		status.Progress = 100
		if decoded.Data.TaskResult != nil && len(decoded.Data.TaskResult.Videos) > 0 {
			status.ResultURL = decoded.Data.TaskResult.Videos[0].URL
		}
		if status.ResultURL == "" {
			return nil, errors.Wrap(domain.ErrProviderRejected, "completed task carried no video url")
		}
	case "failed":
		status.State = provider.JobStateFailed
		status.Message = decoded.Data.TaskStatusMsg
		if status.Message == "" {
			status.Message = "generation failed"
		}
	default: // submitted, queued, processing
		status.State = provider.JobStatePending
	}
	return status, nil
}

// authorize mints the per-request bearer token. The access and secret keys are
// stored as the configuration's APIKey and SecretKey; a missing secret key is
// a configuration error, not a provider one.
func (a *Adapter) authorize(req *http.Request, cfg *domain.ProviderConfig) error {
	accessKey := strings.TrimSpace(cfg.APIKey)
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if accessKey == "" || secretKey == "" {
		return errors.Wrap(domain.ErrConfiguration, "kling requires access and secret keys")
	}

	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"iss": accessKey,
		"exp": now + 1800,
		"nbf": now - 5,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["typ"] = "JWT"
	signed, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return errors.Wrap(err, "sign kling token")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+signed)
	return nil
}

var _ provider.Adapter = (*Adapter)(nil)
var _ provider.Poller = (*Adapter)(nil)
