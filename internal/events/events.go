package events

import (
	"context"
	"time"
)

type Type string

const (
	JobReceived  Type = "job.received"
	JobUploading Type = "job.uploading"
	JobSubmitted Type = "job.submitted"
	JobSucceeded Type = "job.succeeded"
	JobFailed    Type = "job.failed"
	JobTimedOut  Type = "job.timed_out"
)

// Kind distinguishes the two generation flows.
type Kind string

const (
	KindDesign  Kind = "design"
	KindEnhance Kind = "enhance"
)

type Event struct {
	Type     Type      `json:"type"`
	JobID    string    `json:"job_id,omitempty"`
	Kind     Kind      `json:"kind"`
	Status   string    `json:"status"`
	Strategy string    `json:"strategy,omitempty"`
	ImageURL string    `json:"image_url,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

func Received(kind Kind) Event {
	return Event{Type: JobReceived, Kind: kind, Status: "received", At: time.Now().UTC()}
}

func Uploading(kind Kind) Event {
	return Event{Type: JobUploading, Kind: kind, Status: "uploading", At: time.Now().UTC()}
}

func Submitted(kind Kind, jobID, strategy string) Event {
	return Event{
		Type:     JobSubmitted,
		JobID:    jobID,
		Kind:     kind,
		Status:   "polling",
		Strategy: strategy,
		At:       time.Now().UTC(),
	}
}

func Succeeded(kind Kind, jobID, strategy, imageURL string) Event {
	return Event{
		Type:     JobSucceeded,
		JobID:    jobID,
		Kind:     kind,
		Status:   "succeeded",
		Strategy: strategy,
		ImageURL: imageURL,
		At:       time.Now().UTC(),
	}
}

func Failed(kind Kind, jobID, errMsg string) Event {
	return Event{Type: JobFailed, JobID: jobID, Kind: kind, Status: "failed", Error: errMsg, At: time.Now().UTC()}
}

func TimedOut(kind Kind, jobID string) Event {
	return Event{Type: JobTimedOut, JobID: jobID, Kind: kind, Status: "timed_out", At: time.Now().UTC()}
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
