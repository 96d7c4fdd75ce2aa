package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/storynest/storynest/internal/domain"
)

func TestClassifyRPC(t *testing.T) {
	ctx := context.Background()

	for _, code := range []codes.Code{
		codes.Unavailable,
		codes.DeadlineExceeded,
		codes.ResourceExhausted,
		codes.Aborted,
		codes.PermissionDenied,
		codes.FailedPrecondition,
	} {
		err := classifyRPC(ctx, status.Error(code, "x"), "stories")
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable, code.String())
		assert.NotErrorIs(t, err, domain.ErrCancelled, code.String())
	}

	assert.ErrorIs(t, classifyRPC(ctx, status.Error(codes.NotFound, "x"), "stories/1"), domain.ErrNotFound)
	assert.ErrorIs(t, classifyRPC(ctx, status.Error(codes.Canceled, "x"), "stories"), domain.ErrCancelled)
	assert.ErrorIs(t, classifyRPC(ctx, context.Canceled, "stories"), domain.ErrCancelled)

	var verr domain.ValidationError
	assert.ErrorAs(t, classifyRPC(ctx, status.Error(codes.InvalidArgument, "bad"), "stories"), &verr)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, classifyRPC(cctx, errors.New("transport closing"), "stories"), domain.ErrCancelled)

	assert.NoError(t, classifyRPC(ctx, nil, "stories"))
}

func TestSplitIDFilter(t *testing.T) {
	filters := []domain.Filter{
		domain.Eq(domain.FieldIsPublished, true),
		domain.Eq(domain.FieldID, "c1"),
	}
	id, rest, ok := splitIDFilter(filters)
	assert.True(t, ok)
	assert.Equal(t, "c1", id)
	assert.Equal(t, []domain.Filter{domain.Eq(domain.FieldIsPublished, true)}, rest)
	assert.Len(t, filters, 2)

	_, rest, ok = splitIDFilter(filters[:1])
	assert.False(t, ok)
	assert.Equal(t, filters[:1], rest)
}
