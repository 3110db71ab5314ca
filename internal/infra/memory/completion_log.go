package memory

import (
	"context"
	"sync"

	"voyageur-express/internal/domain"
)

// CompletionLog is an in-process app.CompletionPublisher keeping the most
// recent completion events, newest first.
type CompletionLog struct {
	limit int

	mu     sync.RWMutex
	events []domain.Completion
}

func NewCompletionLog(limit int) *CompletionLog {
	if limit <= 0 {
		limit = 100
	}
	return &CompletionLog{limit: limit}
}

func (l *CompletionLog) Publish(_ context.Context, c domain.Completion) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append([]domain.Completion{c}, l.events...)
	if len(l.events) > l.limit {
		l.events = l.events[:l.limit]
	}
	return nil
}

// Recent returns up to n completions, newest first.
func (l *CompletionLog) Recent(_ context.Context, n int) ([]domain.Completion, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.events) {
		n = len(l.events)
	}
	out := make([]domain.Completion, n)
	copy(out, l.events[:n])
	return out, nil
}
