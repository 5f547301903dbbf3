package services_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"interior-design-backend/internal/events"
	"interior-design-backend/internal/generation"
	"interior-design-backend/internal/logger"
	"interior-design-backend/internal/prompt"
	"interior-design-backend/internal/replicate"
	"interior-design-backend/internal/services"
	"interior-design-backend/internal/storage"
)

// countingTemp wraps a TempStore and counts removals per path.
type countingTemp struct {
	*storage.TempStore
	mu      sync.Mutex
	removed map[string]int
}

func (c *countingTemp) Remove(path string) error {
	c.mu.Lock()
	c.removed[path]++
	c.mu.Unlock()
	return c.TempStore.Remove(path)
}

type memoryStore struct {
	keys    []string
	deleted []string
	err     error
}

func (m *memoryStore) Upload(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.keys = append(m.keys, key)
	return "https://storage.example/" + key, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) types() []events.Type {
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// scripted is a strategy whose submit result and status sequence are fixed.
type scripted struct {
	name      string
	submitErr error
	statuses  []generation.Job
	polls     int
	gotReq    generation.Request
}

func (s *scripted) Name() string { return s.name }

func (s *scripted) Submit(_ context.Context, req generation.Request) (string, error) {
	s.gotReq = req
	if s.submitErr != nil {
		return "", s.submitErr
	}
	return "pred-" + s.name, nil
}

func (s *scripted) Status(_ context.Context, jobID string) (*generation.Job, error) {
	job := s.statuses[min(s.polls, len(s.statuses)-1)]
	s.polls++
	job.ID = jobID
	return &job, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fixture struct {
	svc       *services.DesignService
	temp      *countingTemp
	store     *memoryStore
	publisher *recordingPublisher
	path      string
}

func newFixture(t *testing.T, ready bool, strategies ...generation.Strategy) *fixture {
	t.Helper()
	ts, err := storage.NewTempStore(t.TempDir())
	require.NoError(t, err)
	temp := &countingTemp{TempStore: ts, removed: map[string]int{}}

	path, err := ts.SaveReader(bytes.NewReader(pngBytes(t, 64, 48)), ".png")
	require.NoError(t, err)

	log := logger.Discard()
	chain := generation.NewChain(generation.NewPoller(time.Millisecond, 60, log), log, strategies...)
	store := &memoryStore{}
	pub := &recordingPublisher{}

	return &fixture{
		svc:       services.NewDesignService(temp, store, chain, chain, pub, ready, log),
		temp:      temp,
		store:     store,
		publisher: pub,
		path:      path,
	}
}

func (f *fixture) assertRemovedOnce(t *testing.T) {
	t.Helper()
	assert.Equal(t, 1, f.temp.removed[f.path])
	_, err := os.Stat(f.path)
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateDesign_SucceedsAfterPolling(t *testing.T) {
	primary := &scripted{name: "primary", statuses: []generation.Job{
		{Status: generation.StatusProcessing},
		{Status: generation.StatusProcessing},
		{Status: generation.StatusSucceeded, Output: []string{"https://cdn/first.png", "https://cdn/second.png"}},
	}}
	f := newFixture(t, true, primary)

	opts := prompt.DesignOptions{Style: "Scandinavian", RoomType: "Bedroom"}
	res, err := f.svc.GenerateDesign(context.Background(), f.path, opts)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn/first.png", res.ImageURL)
	assert.Equal(t, prompt.CreatePrompt(opts), res.Prompt)
	assert.Equal(t, "primary", res.Strategy)
	assert.False(t, res.Fallback)
	assert.Equal(t, 3, primary.polls)

	require.Len(t, f.store.keys, 1)
	assert.Regexp(t, `^design-inputs/\d+-[0-9a-f]{8}\.jpg$`, f.store.keys[0])
	assert.Equal(t, "https://storage.example/"+f.store.keys[0], primary.gotReq.ImageURL)

	assert.Equal(t, []events.Type{
		events.JobReceived, events.JobUploading, events.JobSubmitted, events.JobSucceeded,
	}, f.publisher.types())
	f.assertRemovedOnce(t)
}

func TestGenerateDesign_FallsBackToBackup(t *testing.T) {
	primary := &scripted{name: "primary", submitErr: &replicate.APIError{StatusCode: 422, Body: "invalid version"}}
	backup := &scripted{name: "backup", statuses: []generation.Job{
		{Status: generation.StatusSucceeded, Output: []string{"https://cdn/backup.png"}},
	}}
	f := newFixture(t, true, primary, backup)

	res, err := f.svc.GenerateDesign(context.Background(), f.path, prompt.DesignOptions{})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn/backup.png", res.ImageURL)
	assert.True(t, res.Fallback)
	assert.Equal(t, "backup", res.Strategy)
	f.assertRemovedOnce(t)
}

func TestGenerateDesign_TimesOut(t *testing.T) {
	primary := &scripted{name: "primary", statuses: []generation.Job{{Status: generation.StatusProcessing}}}
	f := newFixture(t, true, primary)

	_, err := f.svc.GenerateDesign(context.Background(), f.path, prompt.DesignOptions{})
	assert.ErrorIs(t, err, generation.ErrTimeout)
	assert.Equal(t, 60, primary.polls)
	assert.Contains(t, f.publisher.types(), events.JobTimedOut)
	assert.Empty(t, f.store.deleted)
	f.assertRemovedOnce(t)
}

func TestGenerateDesign_ProviderFailure(t *testing.T) {
	primary := &scripted{name: "primary", statuses: []generation.Job{
		{Status: generation.StatusProcessing},
		{Status: generation.StatusFailed, Error: "NSFW content detected"},
	}}
	f := newFixture(t, true, primary)

	_, err := f.svc.GenerateDesign(context.Background(), f.path, prompt.DesignOptions{})
	var failed *generation.JobFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "NSFW content detected", failed.Detail)
	assert.Contains(t, f.publisher.types(), events.JobFailed)
	assert.Equal(t, f.store.keys, f.store.deleted)
	f.assertRemovedOnce(t)
}

func TestGenerateDesign_RejectedSubmissionDeletesInput(t *testing.T) {
	primary := &scripted{name: "primary", submitErr: &replicate.APIError{StatusCode: 422, Body: "invalid version"}}
	backup := &scripted{name: "backup", submitErr: &replicate.APIError{StatusCode: 503, Body: "overloaded"}}
	f := newFixture(t, true, primary, backup)

	_, err := f.svc.GenerateDesign(context.Background(), f.path, prompt.DesignOptions{})
	require.Error(t, err)
	require.Len(t, f.store.keys, 1)
	assert.Equal(t, f.store.keys, f.store.deleted)
	f.assertRemovedOnce(t)
}

func TestGenerateDesign_NotConfigured(t *testing.T) {
	f := newFixture(t, false, &scripted{name: "primary"})

	_, err := f.svc.GenerateDesign(context.Background(), f.path, prompt.DesignOptions{})
	assert.ErrorIs(t, err, services.ErrProviderNotConfigured)
	assert.Empty(t, f.store.keys)
	f.assertRemovedOnce(t)
}

func TestGenerateDesign_UploadFailure(t *testing.T) {
	primary := &scripted{name: "primary"}
	f := newFixture(t, true, primary)
	f.store.err = errors.New("bucket not found")

	_, err := f.svc.GenerateDesign(context.Background(), f.path, prompt.DesignOptions{})
	assert.ErrorContains(t, err, "bucket not found")
	assert.Empty(t, primary.gotReq.ImageURL)
	f.assertRemovedOnce(t)
}

func TestGenerateDesign_UndecodableImage(t *testing.T) {
	f := newFixture(t, true, &scripted{name: "primary"})
	require.NoError(t, os.WriteFile(f.path, []byte("not an image"), 0644))

	_, err := f.svc.GenerateDesign(context.Background(), f.path, prompt.DesignOptions{})
	assert.ErrorIs(t, err, services.ErrValidation)
	f.assertRemovedOnce(t)
}

func TestEnhanceImage_UsesEnhancePrefix(t *testing.T) {
	enhance := &scripted{name: "enhance", statuses: []generation.Job{
		{Status: generation.StatusSucceeded, Output: []string{"https://cdn/upscaled.png"}},
	}}
	f := newFixture(t, true, enhance)

	res, err := f.svc.EnhanceImage(context.Background(), f.path)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn/upscaled.png", res.ImageURL)
	require.Len(t, f.store.keys, 1)
	assert.Equal(t, "enhance-inputs", filepath.Dir(f.store.keys[0]))
	f.assertRemovedOnce(t)
}
