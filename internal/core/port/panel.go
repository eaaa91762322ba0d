package port

import (
	"context"

	"github.com/berfenger/receiptpanel/internal/core/domain"
)

type SnapshotSource interface {
	GetSnapshot(ctx context.Context) (domain.Snapshot, error)
}

type RegistrySource interface {
	GetRegistry(ctx context.Context) (*domain.Registry, error)
}

// GenerationService only acknowledges the request. The outcome arrives as a CompletionEvent.
type GenerationService interface {
	Generate(ctx context.Context, req domain.GenerationRequest) error
}

type ListingService interface {
	ListReports(ctx context.Context) ([]string, error)
}

type DeletionService interface {
	DeleteReport(ctx context.Context, filename string) error
}

type HistoryRecorder interface {
	RecordDispatch(ctx context.Context, req domain.GenerationRequest) error
	RecordCompletion(ctx context.Context, ev domain.CompletionEvent) error
	RecordFailure(ctx context.Context, requestId string, cause error) error
	List(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}

// HostClient groups every collaborator the panel needs from the automation host.
type HostClient interface {
	SnapshotSource
	RegistrySource
	GenerationService
	ListingService
	DeletionService
}
