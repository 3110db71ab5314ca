package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voyageur-express/internal/dataset"
	"voyageur-express/internal/domain"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// CountryRepository loads the country dataset (from cache/backing store).
type CountryRepository interface {
	GetCountries(ctx context.Context, version string) ([]domain.Country, error)
}

// GameService hosts independent single-player sessions over one dataset version.
type GameService struct {
	sessions  SessionRepository
	countries CountryRepository
	publisher CompletionPublisher
	version   string
	rules     Rules
	scheduler Scheduler
	now       func() time.Time
	logger    *zap.Logger
	grace     time.Duration

	mu      sync.Mutex
	clients map[string]int
	reapers map[string]Stopper
}

// ServiceOption customizes a GameService.
type ServiceOption func(*GameService)

// WithRules overrides DefaultRules.
func WithRules(rules Rules) ServiceOption {
	return func(s *GameService) { s.rules = rules }
}

// WithDatasetVersion selects the dataset version sessions are built on.
func WithDatasetVersion(version string) ServiceOption {
	return func(s *GameService) { s.version = version }
}

// WithServiceScheduler sets the scheduler handed to every new session.
func WithServiceScheduler(scheduler Scheduler, now func() time.Time) ServiceOption {
	return func(s *GameService) {
		s.scheduler = scheduler
		s.now = now
	}
}

// WithIdleGrace sets how long a session without clients survives.
func WithIdleGrace(grace time.Duration) ServiceOption {
	return func(s *GameService) { s.grace = grace }
}

// WithServiceLogger attaches a logger to the service and its sessions.
func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(s *GameService) { s.logger = logger }
}

func NewGameService(sessions SessionRepository, countries CountryRepository, publisher CompletionPublisher, opts ...ServiceOption) *GameService {
	s := &GameService{
		sessions:  sessions,
		countries: countries,
		publisher: publisher,
		version:   dataset.Version,
		rules:     DefaultRules(),
		scheduler: SystemScheduler,
		now:       time.Now,
		logger:    zap.NewNop(),
		grace:     time.Minute,
		clients:   make(map[string]int),
		reapers:   make(map[string]Stopper),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a new session on the main menu.
func (s *GameService) Open(ctx context.Context) (*Session, error) {
	countries, err := s.dataset(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	session := NewSession(id, countries, s.rules,
		WithScheduler(s.scheduler),
		WithClock(s.now),
		WithRand(rand.New(rand.NewSource(s.now().UnixNano()))),
		WithPublisher(s.publisher),
		WithLogger(s.logger),
	)
	s.sessions.Put(session)
	s.logger.Info("session opened", zap.String("session_id", id), zap.Int("countries", len(countries)))
	return session, nil
}

// Session returns a live session by id.
func (s *GameService) Session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Attach registers a client on a session and cancels any pending reap.
func (s *GameService) Attach(sessionID string) (*Session, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[sessionID]++
	if reaper, ok := s.reapers[sessionID]; ok {
		reaper.Stop()
		delete(s.reapers, sessionID)
	}
	return session, nil
}

// Detach unregisters a client. When the last one leaves, a running game is
// paused and the session is closed once the idle grace elapses.
func (s *GameService) Detach(sessionID string) {
	session, err := s.Session(sessionID)
	if err != nil {
		return
	}

	s.mu.Lock()
	if s.clients[sessionID] > 0 {
		s.clients[sessionID]--
	}
	if s.clients[sessionID] > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.clients, sessionID)
	if _, ok := s.reapers[sessionID]; !ok {
		s.reapers[sessionID] = s.scheduler.AfterFunc(s.grace, func() { s.reap(sessionID) })
	}
	s.mu.Unlock()

	if err := session.Pause(); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		s.logger.Warn("pause on detach failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *GameService) reap(sessionID string) {
	s.mu.Lock()
	if _, ok := s.reapers[sessionID]; !ok || s.clients[sessionID] > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.reapers, sessionID)
	s.mu.Unlock()
	s.Close(sessionID)
}

// Close stops a session's timers and forgets it.
func (s *GameService) Close(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.clients, sessionID)
	if reaper, ok := s.reapers[sessionID]; ok {
		reaper.Stop()
		delete(s.reapers, sessionID)
	}
	s.mu.Unlock()

	session.Close()
	s.sessions.Delete(sessionID)
	s.logger.Info("session closed", zap.String("session_id", sessionID))
}

// Countries returns the markers of one continent, or all of them for World.
func (s *GameService) Countries(ctx context.Context, continent string) ([]domain.Country, error) {
	if continent == "" {
		continent = dataset.World
	}
	if !dataset.ValidContinent(continent) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownContinent, continent)
	}
	countries, err := s.dataset(ctx)
	if err != nil {
		return nil, err
	}
	return dataset.ByContinent(countries, continent), nil
}

func (s *GameService) dataset(ctx context.Context) ([]domain.Country, error) {
	countries, err := s.countries.GetCountries(ctx, s.version)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", s.version, err)
	}
	if err := dataset.Validate(countries); err != nil {
		return nil, err
	}
	return countries, nil
}
