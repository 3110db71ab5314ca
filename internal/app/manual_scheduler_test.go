package app_test

import (
	"sort"
	"sync"
	"time"

	"voyageur-express/internal/app"
)

// manualScheduler fires callbacks only when the test advances its clock.
type manualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	at      time.Time
	seq     int
	fn      func()
	stopped bool
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)}
}

func (m *manualScheduler) AfterFunc(d time.Duration, fn func()) app.Stopper {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{s: m, at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i, other := range t.s.timers {
		if other == t {
			t.s.timers = append(t.s.timers[:i], t.s.timers[i+1:]...)
			t.stopped = true
			return true
		}
	}
	return false
}

func (m *manualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward, running due callbacks in time order.
func (m *manualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.Slice(m.timers, func(i, j int) bool {
			if !m.timers[i].at.Equal(m.timers[j].at) {
				return m.timers[i].at.Before(m.timers[j].at)
			}
			return m.timers[i].seq < m.timers[j].seq
		})
		if len(m.timers) == 0 || m.timers[0].at.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		next := m.timers[0]
		m.timers = m.timers[1:]
		m.now = next.at
		m.mu.Unlock()

		next.fn()
	}
}

// Pending reports how many callbacks are still scheduled.
func (m *manualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}
