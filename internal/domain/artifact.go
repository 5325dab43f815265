package domain

import "time"

// Artifact is the durable, user-visible output record of a completed task.
// It is created exactly once per successful task and never mutated by the
// orchestration core afterwards.
type Artifact struct {
	ID              string
	TaskID          string
	UserID          string
	Modality        Modality
	LocalRef        string
	SourceRef       string
	Width           int
	Height          int
	DurationSeconds int
	Prompt          string
	Model           string
	Provider        string
	CreatedAt       time.Time
}
