package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"voyageur-express/internal/dataset"
	"voyageur-express/internal/domain"
	"voyageur-express/internal/game"
)

// CompletionPublisher forwards completion events to the hosting environment.
// Delivery is fire-and-forget: errors are logged and never retried.
type CompletionPublisher interface {
	Publish(ctx context.Context, completion domain.Completion) error
}

// Rules are the tunables shared by every session of a service.
type Rules struct {
	Tolerance     float64
	HitPolicy     game.HitPolicy
	Choices       int
	StartDelay    time.Duration
	FeedbackDelay time.Duration
	Tick          time.Duration
}

// DefaultRules returns the stock delays and a tolerance of 3 map percent.
func DefaultRules() Rules {
	return Rules{
		Tolerance:     game.DefaultTolerance,
		HitPolicy:     game.HitFirst,
		StartDelay:    500 * time.Millisecond,
		FeedbackDelay: 2 * time.Second,
		Tick:          time.Second,
	}
}

// SessionOption customizes a Session at construction.
type SessionOption func(*Session)

// WithScheduler replaces the runtime timer used for deferred callbacks.
func WithScheduler(scheduler Scheduler) SessionOption {
	return func(s *Session) { s.scheduler = scheduler }
}

// WithClock is used by tests for deterministic elapsed time.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithRand seeds question picks.
func WithRand(rng *rand.Rand) SessionOption {
	return func(s *Session) { s.rng = rng }
}

// WithPublisher sets where completion events go besides subscribers.
func WithPublisher(p CompletionPublisher) SessionOption {
	return func(s *Session) { s.publisher = p }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// Session is one player's game. All state is guarded by mu and only mutated
// by the exported operations or by timer callbacks from the current epoch.
type Session struct {
	id        string
	countries []domain.Country
	rules     Rules
	scheduler Scheduler
	now       func() time.Time
	rng       *rand.Rand
	publisher CompletionPublisher
	logger    *zap.Logger

	mu                sync.Mutex
	screen            domain.Screen
	mode              domain.GameMode
	questionType      domain.QuestionType
	continent         string
	eligible          []domain.Country
	question          *domain.Question
	answered          bool
	advancePending    bool
	score             int
	correct           int
	questionsAnswered int
	totalQuestions    int
	timeBudget        int
	timeLeft          int
	active            bool
	used              map[string]struct{}
	startedAt         time.Time
	feedback          *RoundResult
	completion        *domain.Completion
	unpublished       *domain.Completion

	// epoch is bumped whenever pending timers are torn down; callbacks
	// scheduled under an older epoch are dropped when they fire.
	epoch   uint64
	timerID uint64
	timers  map[uint64]Stopper

	// tickID names the pending tick timer. tickRest is the part of the
	// interrupted tick still owed when the game is paused.
	tickID   uint64
	tickDue  time.Time
	tickRest time.Duration

	subscribers map[chan Event]struct{}
}

// NewSession builds a session on the main menu over a read-only dataset.
func NewSession(id string, countries []domain.Country, rules Rules, opts ...SessionOption) *Session {
	s := &Session{
		id:          id,
		countries:   countries,
		rules:       rules,
		scheduler:   SystemScheduler,
		now:         time.Now,
		logger:      zap.NewNop(),
		timers:      make(map[uint64]Stopper),
		subscribers: make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.now().UnixNano()))
	}
	s.resetLocked()
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the current presentation view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Completion returns the summary of the last finished game, if any.
func (s *Session) Completion() (domain.Completion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completion == nil {
		return domain.Completion{}, false
	}
	return *s.completion, true
}

// OpenModeSelect moves from the main menu or the game-over screen to mode selection.
func (s *Session) OpenModeSelect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != domain.ScreenMenu && s.screen != domain.ScreenGameOver {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, s.screen, domain.ScreenModeSelect)
	}
	s.screen = domain.ScreenModeSelect
	s.active = false
	s.broadcastStateLocked()
	return nil
}

// StartGame begins a fresh game from the mode selection screen. The first
// question arrives after the start delay.
func (s *Session) StartGame(mode domain.GameMode, questionType domain.QuestionType, continent string) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownMode, mode)
	}
	if !questionType.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownQuestionType, questionType)
	}
	if !dataset.ValidContinent(continent) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownContinent, continent)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != domain.ScreenModeSelect {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, s.screen, domain.ScreenGame)
	}
	s.startLocked(mode, questionType, continent)
	return nil
}

// Restart replays the current mode, question type and continent.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.screen {
	case domain.ScreenGame, domain.ScreenPause, domain.ScreenGameOver:
	default:
		return fmt.Errorf("%w: restart from %s", domain.ErrInvalidTransition, s.screen)
	}
	s.startLocked(s.mode, s.questionType, s.continent)
	return nil
}

// Pause freezes the game and cancels every pending timer.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != domain.ScreenGame || !s.active {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, s.screen, domain.ScreenPause)
	}
	s.tickRest = 0
	if _, ok := s.timers[s.tickID]; ok {
		s.tickRest = s.tickDue.Sub(s.now())
	}
	s.cancelTimersLocked()
	s.screen = domain.ScreenPause
	s.active = false
	s.broadcastStateLocked()
	return nil
}

// Resume continues a paused game where it stopped.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != domain.ScreenPause {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, s.screen, domain.ScreenGame)
	}
	s.screen = domain.ScreenGame
	s.active = true
	switch {
	case s.advancePending:
		s.afterLocked(s.rules.FeedbackDelay, s.advanceLocked)
	case s.question == nil:
		s.afterLocked(s.rules.StartDelay, s.nextQuestionLocked)
	}
	rest := s.tickRest
	if rest <= 0 || rest > s.rules.Tick {
		rest = s.rules.Tick
	}
	s.tickRest = 0
	s.armTickLocked(rest)
	s.broadcastStateLocked()
	return nil
}

// ReturnToMenu abandons any game and resets the session to its defaults.
func (s *Session) ReturnToMenu() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimersLocked()
	s.resetLocked()
	s.broadcastStateLocked()
}

// Click resolves a pointer on the map and answers the open round with the hit
// country, or with no country on a miss. It is a no-op without an open round.
func (s *Session) Click(p game.Pointer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canAnswerLocked() {
		return
	}
	c, ok := game.ResolveClick(p, s.eligible, s.rules.Tolerance, s.rules.HitPolicy)
	s.answerLocked(c, ok)
}

// Answer answers the open round with a country code, as when a marker or a
// multiple-choice option is picked directly. Unknown codes count as a miss.
func (s *Session) Answer(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canAnswerLocked() {
		return
	}
	for _, c := range s.eligible {
		if c.Code == code {
			s.answerLocked(c, true)
			return
		}
	}
	s.answerLocked(domain.Country{}, false)
}

// Subscribe returns a channel of session events, starting with the current
// state. The caller must invoke the returned cancel function.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	snap := s.snapshotLocked()
	ch <- Event{Type: EventState, State: &snap}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close stops all timers and detaches subscribers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimersLocked()
	s.active = false
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) resetLocked() {
	settings := domain.SettingsFor(domain.ModeTraining)
	s.screen = domain.ScreenMenu
	s.mode = domain.ModeTraining
	s.questionType = domain.QuestionCountry
	s.continent = dataset.World
	s.eligible = s.countries
	s.question = nil
	s.answered = false
	s.advancePending = false
	s.score = 0
	s.correct = 0
	s.questionsAnswered = 0
	s.totalQuestions = settings.TotalQuestions
	s.timeBudget = settings.TimeBudget
	s.timeLeft = settings.TimeBudget
	s.active = false
	s.used = make(map[string]struct{})
	s.startedAt = time.Time{}
	s.feedback = nil
	s.tickRest = 0
}

func (s *Session) startLocked(mode domain.GameMode, questionType domain.QuestionType, continent string) {
	s.cancelTimersLocked()
	s.resetLocked()

	settings := domain.SettingsFor(mode)
	s.screen = domain.ScreenGame
	s.mode = mode
	s.questionType = questionType
	s.continent = continent
	s.eligible = dataset.ByContinent(s.countries, continent)
	s.totalQuestions = settings.TotalQuestions
	s.timeBudget = settings.TimeBudget
	s.timeLeft = settings.TimeBudget
	s.active = true
	s.startedAt = s.now()

	s.logger.Debug("game started",
		zap.String("session_id", s.id),
		zap.String("mode", string(mode)),
		zap.String("question_type", string(questionType)),
		zap.String("continent", continent),
		zap.Int("eligible", len(s.eligible)),
	)

	s.afterLocked(s.rules.StartDelay, s.nextQuestionLocked)
	s.armTickLocked(s.rules.Tick)
	s.broadcastStateLocked()
}

// nextQuestionLocked opens the next round, or ends the game when the pool is exhausted.
func (s *Session) nextQuestionLocked() {
	if s.screen != domain.ScreenGame {
		return
	}
	q, ok := game.GenerateQuestion(s.rng, s.eligible, s.questionType, s.used)
	if !ok {
		s.endLocked()
		return
	}
	if s.rules.Choices > 0 {
		q.Options = game.MultipleChoiceOptions(s.rng, q.CorrectAnswer, s.eligible, s.rules.Choices)
	}
	s.used[q.CorrectAnswer.Code] = struct{}{}
	s.question = &q
	s.answered = false
	s.feedback = nil
	if s.mode != domain.ModeChrono {
		// The per-question countdown runs from the moment the round opens.
		s.timeLeft = s.timeBudget
		s.armTickLocked(s.rules.Tick)
	}
	s.broadcastStateLocked()
}

func (s *Session) canAnswerLocked() bool {
	return s.question != nil && s.active && !s.answered
}

func (s *Session) answerLocked(clicked domain.Country, hit bool) {
	if !s.canAnswerLocked() {
		return
	}
	s.answered = true

	answer := s.question.CorrectAnswer
	isCorrect := hit && clicked.Code == answer.Code
	bonus := 0
	if s.mode == domain.ModeChrono {
		bonus = game.TimeBonus(s.timeLeft, s.timeBudget)
	}
	points := game.Score(isCorrect, bonus)
	s.score += points
	if isCorrect {
		s.correct++
	}
	s.questionsAnswered++

	var selected *domain.Country
	if hit {
		selected = &clicked
	}
	s.feedback = newRoundResult(answer, selected, isCorrect, false, points)
	s.broadcastLocked(Event{Type: EventFeedback, Feedback: s.feedback})
	s.broadcastStateLocked()
	s.scheduleAdvanceLocked()
}

// timeUpLocked closes the open round without a selection.
func (s *Session) timeUpLocked() {
	if s.question == nil || s.answered {
		return
	}
	s.answered = true
	s.questionsAnswered++
	s.feedback = newRoundResult(s.question.CorrectAnswer, nil, false, true, 0)
	s.broadcastLocked(Event{Type: EventFeedback, Feedback: s.feedback})
	s.scheduleAdvanceLocked()
}

func (s *Session) scheduleAdvanceLocked() {
	s.advancePending = true
	s.afterLocked(s.rules.FeedbackDelay, s.advanceLocked)
}

func (s *Session) advanceLocked() {
	s.advancePending = false
	if s.questionsAnswered >= s.totalQuestions {
		s.endLocked()
		return
	}
	s.nextQuestionLocked()
}

func (s *Session) tickLocked() {
	if s.screen != domain.ScreenGame || !s.active {
		return
	}
	changed := false
	switch {
	case s.mode == domain.ModeChrono:
		if s.timeLeft > 0 {
			s.timeLeft--
		}
		if s.timeLeft <= 0 {
			s.endLocked()
			return
		}
		changed = true
	case s.question != nil && !s.answered:
		s.timeLeft--
		if s.timeLeft <= 0 {
			s.timeLeft = 0
			s.timeUpLocked()
		}
		changed = true
	}
	if changed {
		s.broadcastStateLocked()
	}
	s.armTickLocked(s.rules.Tick)
}

func (s *Session) endLocked() {
	if s.screen == domain.ScreenGameOver {
		return
	}
	s.cancelTimersLocked()
	s.screen = domain.ScreenGameOver
	s.active = false
	s.advancePending = false

	c := domain.Completion{
		Type:      domain.CompletionType,
		BlockID:   domain.BlockID,
		SessionID: s.id,
		Completed: true,
		Score:     s.score,
		MaxScore:  s.totalQuestions * domain.BasePoints,
		TimeSpent: int(s.now().Sub(s.startedAt) / time.Second),
		Message:   game.CongratulatoryMessage(s.score, s.totalQuestions),
		Data: domain.CompletionStats{
			QuestionsAnswered: s.questionsAnswered,
			TotalQuestions:    s.totalQuestions,
			CorrectAnswers:    s.correct,
			Accuracy:          game.Accuracy(s.score, s.totalQuestions),
		},
		EndedAt: s.now(),
	}
	s.completion = &c
	s.unpublished = &c

	s.logger.Info("game over",
		zap.String("session_id", s.id),
		zap.String("mode", string(s.mode)),
		zap.Int("score", c.Score),
		zap.Int("answered", c.Data.QuestionsAnswered),
		zap.Int("total", c.Data.TotalQuestions),
	)

	s.broadcastLocked(Event{Type: EventCompletion, Completion: &c})
	s.broadcastStateLocked()
}

func (s *Session) afterLocked(d time.Duration, fn func()) uint64 {
	epoch := s.epoch
	s.timerID++
	id := s.timerID
	s.timers[id] = s.scheduler.AfterFunc(d, func() { s.fire(id, epoch, fn) })
	return id
}

// armTickLocked replaces any pending tick with one due after d.
func (s *Session) armTickLocked(d time.Duration) {
	if t, ok := s.timers[s.tickID]; ok {
		t.Stop()
		delete(s.timers, s.tickID)
	}
	s.tickDue = s.now().Add(d)
	s.tickID = s.afterLocked(d, s.tickLocked)
}

func (s *Session) fire(id, epoch uint64, fn func()) {
	s.mu.Lock()
	// A timer stopped after it started firing is no longer in the map.
	_, live := s.timers[id]
	delete(s.timers, id)
	if !live || epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	fn()
	c := s.unpublished
	s.unpublished = nil
	s.mu.Unlock()

	if c != nil {
		s.publish(*c)
	}
}

func (s *Session) cancelTimersLocked() {
	s.epoch++
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Session) publish(c domain.Completion) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, c); err != nil {
		s.logger.Warn("publish completion failed", zap.String("session_id", s.id), zap.Error(err))
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:         s.id,
		Screen:            s.screen,
		Mode:              s.mode,
		QuestionType:      s.questionType,
		Continent:         s.continent,
		Question:          viewOf(s.question),
		Score:             s.score,
		QuestionsAnswered: s.questionsAnswered,
		TotalQuestions:    s.totalQuestions,
		Progress:          fmt.Sprintf("%d/%d", s.questionsAnswered, s.totalQuestions),
		TimeLeft:          s.timeLeft,
		ShowTimer:         s.mode == domain.ModeChrono,
		IsGameActive:      s.active,
		IsAnswered:        s.answered,
		Feedback:          s.feedback,
	}
}

func (s *Session) broadcastStateLocked() {
	snap := s.snapshotLocked()
	s.broadcastLocked(Event{Type: EventState, State: &snap})
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest event so a slow reader never blocks the game.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
