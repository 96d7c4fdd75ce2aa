package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/storynest/internal/domain"
)

func newSignal(t *testing.T) (*SignalService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewSignalService(rdb), mr
}

func TestFamilyChannel(t *testing.T) {
	assert.Equal(t, "storynest:family:fam-1", FamilyChannel("fam-1"))
}

func TestPublishAndSubscribe(t *testing.T) {
	signal, _ := newSignal(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := signal.Subscribe(ctx, "fam-1")
	require.NoError(t, err)

	// events of other families are not delivered
	require.NoError(t, signal.PublishStoryEvent(ctx, domain.StoryEvent{
		Type: domain.StoryPublished, StoryID: "other", FamilyID: "fam-2",
	}))
	want := domain.StoryEvent{Type: domain.StoryPublished, StoryID: "s1", FamilyID: "fam-1", ChildID: "kid"}
	require.NoError(t, signal.PublishStoryEvent(ctx, want))

	select {
	case got := <-events:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPublishRequiresFamily(t *testing.T) {
	signal, _ := newSignal(t)
	err := signal.PublishStoryEvent(context.Background(), domain.StoryEvent{StoryID: "s1"})
	var verr domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPublishUnavailable(t *testing.T) {
	signal, mr := newSignal(t)
	mr.Close()

	err := signal.PublishStoryEvent(context.Background(), domain.StoryEvent{StoryID: "s1", FamilyID: "fam-1"})
	assert.ErrorContains(t, err, "publish story event")
}
