package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/storynest/storynest/internal/domain"
)

const familyChannelPrefix = "storynest:family:"

// FamilyChannel is the redis channel carrying story events of a family.
func FamilyChannel(familyID string) string {
	return familyChannelPrefix + familyID
}

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) PublishStoryEvent(ctx context.Context, event domain.StoryEvent) error {
	ctx, span := tracer.Start(ctx, "Signal.PublishStoryEvent")
	defer span.End()

	if event.FamilyID == "" {
		return domain.ValidationError{Field: "familyId", Reason: "event has no family"}
	}

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, FamilyChannel(event.FamilyID), jsonstr).Err()
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "publish story event")
	}

	return nil
}

// Subscribe streams the story events of familyID until ctx is done. The
// returned channel is closed when the subscription ends.
func (s *SignalService) Subscribe(ctx context.Context, familyID string) (<-chan domain.StoryEvent, error) {
	pubsub := s.rdb.Subscribe(ctx, FamilyChannel(familyID))
	// wait for the subscription to be confirmed so no event published after
	// this call returns is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, errors.Wrap(err, "subscribe to family channel")
	}

	output := make(chan domain.StoryEvent)
	go func() {
		defer close(output)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event domain.StoryEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					slog.WarnContext(ctx, "malformed story event",
						slog.String("channel", msg.Channel),
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
					continue
				}
				select {
				case output <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return output, nil
}
