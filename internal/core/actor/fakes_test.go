package actor

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/berfenger/receiptpanel/internal/core/domain"
	"github.com/berfenger/receiptpanel/internal/core/port"
)

type fakeHost struct {
	mu            sync.Mutex
	snapshot      domain.Snapshot
	registry      *domain.Registry
	registryErr   error
	generateErr   error
	files         []string
	generated     []domain.GenerationRequest
	deleted       []string
	snapshotCalls int
	listCalls     int
	delay         time.Duration
	listDelay     time.Duration
}

var _ port.HostClient = (*fakeHost)(nil)

func newFakeHost() *fakeHost {
	return &fakeHost{
		snapshot: domain.Snapshot{
			{ID: "sensor.john_current", State: "1.234", FriendlyName: "John Current"},
			{ID: "sensor.john_power", State: "230.4", FriendlyName: "John Power"},
			{ID: "sensor.john_total_energy", State: "12.3456", FriendlyName: "John Total Energy"},
			{ID: "sensor.mary_current", State: "0.5", FriendlyName: "Mary Current"},
			{ID: "sensor.mary_total_energy", State: "3", FriendlyName: "Mary Total Energy"},
			{ID: "sensor.orphan_power", State: "10", FriendlyName: "Orphan Power"},
		},
		registryErr: errors.New("registry unavailable"),
		files:       []string{"john_2024-03-01.pdf", "receipt_2024-03-02.pdf"},
	}
}

func (h *fakeHost) GetSnapshot(ctx context.Context) (domain.Snapshot, error) {
	h.mu.Lock()
	h.snapshotCalls++
	delay := h.delay
	snapshot := slices.Clone(h.snapshot)
	h.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return snapshot, nil
}

func (h *fakeHost) GetRegistry(ctx context.Context) (*domain.Registry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry, h.registryErr
}

func (h *fakeHost) Generate(ctx context.Context, req domain.GenerationRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.generated = append(h.generated, req)
	return h.generateErr
}

func (h *fakeHost) ListReports(ctx context.Context) ([]string, error) {
	h.mu.Lock()
	h.listCalls++
	delay := h.listDelay
	files := slices.Clone(h.files)
	h.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return files, nil
}

func (h *fakeHost) DeleteReport(ctx context.Context, filename string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !slices.Contains(h.files, filename) {
		return errors.New("file not found")
	}
	h.files = slices.DeleteFunc(h.files, func(f string) bool { return f == filename })
	h.deleted = append(h.deleted, filename)
	return nil
}

func (h *fakeHost) counts() (snapshots, listings, generated int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotCalls, h.listCalls, len(h.generated)
}

type fakeHistory struct {
	mu          sync.Mutex
	dispatched  []string
	completions []domain.CompletionEvent
	failures    []string
}

var _ port.HistoryRecorder = (*fakeHistory)(nil)

func (h *fakeHistory) RecordDispatch(ctx context.Context, req domain.GenerationRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispatched = append(h.dispatched, req.Id)
	return nil
}

func (h *fakeHistory) RecordCompletion(ctx context.Context, ev domain.CompletionEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completions = append(h.completions, ev)
	return nil
}

func (h *fakeHistory) RecordFailure(ctx context.Context, requestId string, cause error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, requestId)
	return nil
}

func (h *fakeHistory) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var entries []domain.HistoryEntry
	for i := len(h.dispatched) - 1; i >= 0 && (limit <= 0 || len(entries) < limit); i-- {
		entries = append(entries, domain.HistoryEntry{Id: h.dispatched[i], Status: "dispatched"})
	}
	return entries, nil
}

func (h *fakeHistory) counts() (dispatched, completions, failures int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.dispatched), len(h.completions), len(h.failures)
}
