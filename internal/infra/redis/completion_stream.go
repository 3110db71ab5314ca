package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"voyageur-express/internal/domain"
)

const (
	DefaultCompletionChannel = "voyageur:completions"
	defaultHistoryLimit      = 100
)

// CompletionStream publishes completion events on a Redis channel for the
// hosting page and keeps a capped history list for late readers.
type CompletionStream struct {
	client  *redis.Client
	channel string
	limit   int64
}

func NewCompletionStream(client *redis.Client, channel string, limit int) *CompletionStream {
	if channel == "" {
		channel = DefaultCompletionChannel
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &CompletionStream{client: client, channel: channel, limit: int64(limit)}
}

func (s *CompletionStream) Publish(ctx context.Context, c domain.Completion) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.Publish(ctx, s.channel, payload)
	pipe.LPush(ctx, s.historyKey(), payload)
	pipe.LTrim(ctx, s.historyKey(), 0, s.limit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish completion: %w", err)
	}
	return nil
}

// Recent returns up to n completions, newest first.
func (s *CompletionStream) Recent(ctx context.Context, n int) ([]domain.Completion, error) {
	stop := int64(-1)
	if n > 0 {
		stop = int64(n) - 1
	}
	rows, err := s.client.LRange(ctx, s.historyKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read completions: %w", err)
	}
	out := make([]domain.Completion, 0, len(rows))
	for _, raw := range rows {
		var c domain.Completion
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("unmarshal completion: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *CompletionStream) historyKey() string {
	return s.channel + ":recent"
}
