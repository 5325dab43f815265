package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TaskKind enumerates supported generation request categories.
type TaskKind string

const (
	TaskKindTextToImage  TaskKind = "text2image"
	TaskKindImageToImage TaskKind = "image2image"
	TaskKindTextToVideo  TaskKind = "text2video"
	TaskKindImageToVideo TaskKind = "image2video"
)

// Modality returns the media family produced by tasks of this kind.
func (k TaskKind) Modality() Modality {
	switch k {
	case TaskKindTextToVideo, TaskKindImageToVideo:
		return ModalityVideo
	default:
		return ModalityImage
	}
}

// RequiresSourceImage reports whether the kind conditions on an input image.
func (k TaskKind) RequiresSourceImage() bool {
	return k == TaskKindImageToImage || k == TaskKindImageToVideo
}

// ParseTaskKind sanitizes free-form input into a supported kind.
func ParseTaskKind(raw string) (TaskKind, error) {
	kind := TaskKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case TaskKindTextToImage, TaskKindImageToImage, TaskKindTextToVideo, TaskKindImageToVideo:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: unknown task kind %q", ErrInvalidTask, raw)
	}
}

// TaskStatus enumerates task lifecycle states. Transitions are forward-only:
// pending -> processing -> completed or failed. Terminal states are never left.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// ImageParams carries the validated parameters of an image task.
type ImageParams struct {
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Quality     string `json:"quality,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
}

// VideoParams carries the validated parameters of a video task.
type VideoParams struct {
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
}

// Task encapsulates one user-submitted generation request and its lifecycle
// record. The orchestration loop is the sole writer of its state transitions.
type Task struct {
	ID             string
	UserID         string
	Kind           TaskKind
	Prompt         string
	NegativePrompt string
	SourceImageURL string
	Model          string
	Provider       string
	Status         TaskStatus
	Progress       int
	ProviderJobID  string
	ResultRef      string
	FailureCode    FailureCode
	ErrorMessage   string
	ImageParams    *ImageParams
	VideoParams    *VideoParams
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ErrInvalidTask tags task validation failures.
var ErrInvalidTask = errors.New("invalid task")

const maxPromptLength = 8000

// Validate checks a task at creation time. The orchestration core only ever
// sees tasks that passed this.
func (t *Task) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil task", ErrInvalidTask)
	}
	if _, err := ParseTaskKind(string(t.Kind)); err != nil {
		return err
	}
	if strings.TrimSpace(t.Prompt) == "" && !t.Kind.RequiresSourceImage() {
		return fmt.Errorf("%w: prompt is required", ErrInvalidTask)
	}
	if len(t.Prompt) > maxPromptLength {
		return fmt.Errorf("%w: prompt exceeds %d characters", ErrInvalidTask, maxPromptLength)
	}
	if t.Kind.RequiresSourceImage() && strings.TrimSpace(t.SourceImageURL) == "" {
		return fmt.Errorf("%w: source image is required for %s", ErrInvalidTask, t.Kind)
	}
	switch t.Kind.Modality() {
	case ModalityImage:
		if t.VideoParams != nil {
			return fmt.Errorf("%w: video parameters on an image task", ErrInvalidTask)
		}
		if t.ImageParams != nil {
			if err := t.ImageParams.validate(); err != nil {
				return err
			}
		}
	case ModalityVideo:
		if t.ImageParams != nil {
			return fmt.Errorf("%w: image parameters on a video task", ErrInvalidTask)
		}
		if t.VideoParams != nil {
			if err := t.VideoParams.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *ImageParams) validate() error {
	if p.Quantity < 0 || p.Quantity > 4 {
		return fmt.Errorf("%w: quantity must be between 0 and 4", ErrInvalidTask)
	}
	if err := validateAspectRatio(p.AspectRatio); err != nil {
		return err
	}
	return nil
}

func (p *VideoParams) validate() error {
	if p.DurationSeconds < 0 || p.DurationSeconds > 60 {
		return fmt.Errorf("%w: duration must be between 0 and 60 seconds", ErrInvalidTask)
	}
	if err := validateAspectRatio(p.AspectRatio); err != nil {
		return err
	}
	return nil
}

func validateAspectRatio(aspect string) error {
	aspect = strings.TrimSpace(aspect)
	if aspect == "" {
		return nil
	}
	parts := strings.Split(aspect, ":")
	if len(parts) != 2 {
		return fmt.Errorf("%w: aspect ratio %q is not W:H", ErrInvalidTask, aspect)
	}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return fmt.Errorf("%w: aspect ratio %q is not W:H", ErrInvalidTask, aspect)
		}
		for _, r := range strings.TrimSpace(part) {
			if r < '0' || r > '9' {
				return fmt.Errorf("%w: aspect ratio %q is not W:H", ErrInvalidTask, aspect)
			}
		}
	}
	return nil
}

// ClampProgress bounds a provider-reported progress value to the valid range.
func ClampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
