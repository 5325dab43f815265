// Package sora speaks the OpenAI-style asynchronous video protocol: POST
// /v1/videos creates a job, GET /v1/videos/{id} reports status with an integer
// progress, and the finished asset is addressed by a content URL.
package sora

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
	"github.com/johnpaul085/free-sora-sub000/internal/provider"
)

// Adapter is an asynchronous video adapter with bearer authentication.
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
	return domain.AdapterKindSoraVideo
}

type createRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	InputReference string `json:"input_reference,omitempty"`
	Seconds        string `json:"seconds,omitempty"`
	Size           string `json:"size,omitempty"`
}

type videoJob struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Error    *struct {
		Code    string `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error,omitempty"`
	Output *struct {
		URL string `json:"url,omitempty"`
	} `json:"output,omitempty"`
}

type apiErrorEnvelope struct {
	Error *struct {
		Code    string `json:"code,omitempty"`
		Type    string `json:"type,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error,omitempty"`
}

// Invoke submits a video job. Model fallback follows the shared policy: only
// when the task gave no model and the provider declares alternatives.
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
		jobID, code, message, submitErr := a.submit(ctx, endpoint, cfg.APIKey, model, task)
		if submitErr == nil {
			return &provider.Invocation{JobID: jobID}, nil
		}
		lastErr = submitErr
		if strings.TrimSpace(task.Model) == "" && i < len(models)-1 && provider.IsModelUnavailable(code, message) {
			continue
		}
		break
	}
	return nil, lastErr
}

func (a *Adapter) submit(ctx context.Context, endpoint, apiKey, model string, task *domain.Task) (jobID, code, message string, err error) {
	payload := createRequest{
		Model:          model,
		Prompt:         task.Prompt,
		InputReference: strings.TrimSpace(task.SourceImageURL),
	}
	if task.VideoParams != nil {
		if task.VideoParams.DurationSeconds > 0 {
			payload.Seconds = strconv.Itoa(task.VideoParams.DurationSeconds)
		}
		payload.Size = sizeForParams(task.VideoParams)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", "", errors.Wrap(err, "marshal create request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/v1/videos", bytes.NewReader(body))
	if err != nil {
		return "", "", "", errors.Wrap(err, "create submit request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", "", "", errors.Wrap(err, "submit video job")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", "", errors.Wrap(err, "read submit response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope apiErrorEnvelope
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
			code = firstNonEmpty(envelope.Error.Code, envelope.Error.Type)
			message = envelope.Error.Message
		}
		if message == "" {
			message = strings.TrimSpace(string(raw))
		}
		return "", code, message, errors.Wrapf(domain.ErrProviderRejected, "status %d, code %s: %s", resp.StatusCode, code, message)
	}

	var job videoJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return "", "", "", errors.Wrap(err, "decode submit response")
	}
	if strings.TrimSpace(job.ID) == "" {
		return "", "", "", errors.Wrap(domain.ErrProviderRejected, "submit response carried no job id")
	}
	return job.ID, "", "", nil
}

// Poll reports the job status. The provider's integer progress is passed
// through untouched; the orchestrator clamps it.
func (a *Adapter) Poll(ctx context.Context, cfg *domain.ProviderConfig, jobID string) (*provider.JobStatus, error) {
	endpoint, err := provider.ValidateEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, provider.PollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/v1/videos/"+jobID, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create poll request")
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "poll video job")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read poll response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.Wrapf(domain.ErrProviderRejected, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var job videoJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, errors.Wrap(err, "decode poll response")
	}

	status := &provider.JobStatus{Progress: -1}
	if job.Progress > 0 {
		status.Progress = job.Progress
	}
	switch strings.ToLower(job.Status) {
	case "completed", "succeeded":
		status.State = provider.JobStateCompleted
		status.Progress = 100
		if job.Output != nil && job.Output.URL != "" {
			status.ResultURL = job.Output.URL
		} else {
			// The content endpoint serves the finished asset when the job
			// body carries no direct URL.
			status.ResultURL = endpoint + "/v1/videos/" + jobID + "/content"
		}
	case "failed", "cancelled":
		status.State = provider.JobStateFailed
		if job.Error != nil && job.Error.Message != "" {
			status.Message = job.Error.Message
		} else {
			status.Message = "video generation " + strings.ToLower(job.Status)
		}
	default: // queued, in_progress
		status.State = provider.JobStatePending
	}
	return status, nil
}

func sizeForParams(params *domain.VideoParams) string {
	if params == nil {
		return ""
	}
	if res := strings.TrimSpace(params.Resolution); res != "" {
		return res
	}
	switch strings.TrimSpace(params.AspectRatio) {
	case "9:16":
		return "720x1280"
	case "16:9":
		return "1280x720"
	default:
		return ""
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
var _ provider.Poller = (*Adapter)(nil)
