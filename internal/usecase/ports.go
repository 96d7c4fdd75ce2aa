package usecase

import (
	"context"
	"time"

	"github.com/storynest/storynest/internal/domain"
)

// RecordStore is the document database seen by the usecases. Query results
// carry no ordering guarantee. Transient failures match
// domain.ErrStoreUnavailable, caller cancellation matches domain.ErrCancelled.
// Implementations never retry.
type RecordStore interface {
	Query(ctx context.Context, collection string, filters []domain.Filter) ([]domain.Record, error)
	Get(ctx context.Context, collection, id string) (domain.Record, error)
	// Create stores fields under a store-assigned id and stamps createdAt/updatedAt.
	Create(ctx context.Context, collection string, fields map[string]any) (domain.Record, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

// SignalPublisher pushes story events to family subscribers.
type SignalPublisher interface {
	PublishStoryEvent(ctx context.Context, event domain.StoryEvent) error
}

// CompletionGateway talks to a chat-completion model.
type CompletionGateway interface {
	Complete(ctx context.Context, req domain.Completion) (domain.CompletionResult, error)
}

// SpeechGateway synthesizes narration. The result is base64-encoded MP3.
type SpeechGateway interface {
	Synthesize(ctx context.Context, req domain.SpeechRequest) (string, error)
}

// AudioCache stores synthesized narration by key.
type AudioCache interface {
	Get(key string) (string, bool, error)
	Set(key string, audioContent string, ttl time.Duration) error
}

// BlobStore persists narration and avatar files. Put returns the public URL.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body []byte, metadata map[string]string) (string, error)
	Delete(ctx context.Context, key string) error
}
