package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/usnistgov/oar-pdr-sub001/internal/domain"
)

// SignalService fans draft-update events out through redis pub/sub so that
// open landing pages can refresh live.
type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

// PublishUpdate broadcasts one event on the resource's channel.
func (s *SignalService) PublishUpdate(ctx context.Context, event domain.UpdateEvent) error {
	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, domain.UpdateChannelPrefix+event.ResourceID, jsonstr).Err()
}

// Realtime bridges redis subscriptions to a websocket session: resource-id
// lists arriving on input replace the current subscription set, and matching
// events are decoded onto output. Returns when ctx is done or input closes.
func (s *SignalService) Realtime(ctx context.Context, input <-chan []string, output chan<- domain.UpdateEvent) {
	sub := s.rdb.Subscribe(ctx)
	defer sub.Close()

	var current []string

	for {
		select {
		case <-ctx.Done():
			return
		case ids, ok := <-input:
			if !ok {
				return
			}
			if len(current) > 0 {
				if err := sub.Unsubscribe(ctx, channelsFor(current)...); err != nil {
					slog.ErrorContext(ctx, "failed to unsubscribe",
						slog.String("error", err.Error()), slog.String("module", "signal"))
				}
			}
			current = ids
			if err := sub.Subscribe(ctx, channelsFor(current)...); err != nil {
				slog.ErrorContext(ctx, "failed to subscribe",
					slog.String("error", err.Error()), slog.String("module", "signal"))
			}
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			var event domain.UpdateEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.ErrorContext(ctx, "bad update event payload",
					slog.String("error", err.Error()), slog.String("module", "signal"))
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func channelsFor(ids []string) []string {
	channels := make([]string, len(ids))
	for i, id := range ids {
		channels[i] = domain.UpdateChannelPrefix + id
	}
	return channels
}
