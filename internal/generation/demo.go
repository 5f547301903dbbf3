package generation

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DemoStrategy is a non-functional placeholder for running without a provider
// key. It does not generate anything: every job succeeds at once and returns
// the input image unchanged.
type DemoStrategy struct {
	mu   sync.Mutex
	jobs map[string]string
}

func NewDemoStrategy() *DemoStrategy {
	return &DemoStrategy{jobs: make(map[string]string)}
}

func (d *DemoStrategy) Name() string { return "demo" }

func (d *DemoStrategy) Submit(_ context.Context, req Request) (string, error) {
	id := "demo-" + uuid.NewString()
	d.mu.Lock()
	d.jobs[id] = req.ImageURL
	d.mu.Unlock()
	return id, nil
}

func (d *DemoStrategy) Status(_ context.Context, jobID string) (*Job, error) {
	d.mu.Lock()
	url, ok := d.jobs[jobID]
	delete(d.jobs, jobID)
	d.mu.Unlock()

	if !ok {
		return &Job{ID: jobID, Status: StatusFailed, Error: "unknown demo job"}, nil
	}
	return &Job{ID: jobID, Status: StatusSucceeded, Output: []string{url}}, nil
}
