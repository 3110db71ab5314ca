package app

import (
	"fmt"

	"voyageur-express/internal/domain"
)

// EventType tags what a session broadcast carries.
type EventType string

const (
	EventState      EventType = "state"
	EventFeedback   EventType = "feedback"
	EventCompletion EventType = "completion"
)

// Event is pushed to session subscribers after every mutation.
type Event struct {
	Type       EventType
	State      *Snapshot
	Feedback   *RoundResult
	Completion *domain.Completion
}

// Snapshot is the presentation view of a session. It never names the correct
// answer of an open round.
type Snapshot struct {
	SessionID         string              `json:"sessionId"`
	Screen            domain.Screen       `json:"screen"`
	Mode              domain.GameMode     `json:"mode"`
	QuestionType      domain.QuestionType `json:"questionType"`
	Continent         string              `json:"continent"`
	Question          *QuestionView       `json:"question,omitempty"`
	Score             int                 `json:"score"`
	QuestionsAnswered int                 `json:"questionsAnswered"`
	TotalQuestions    int                 `json:"totalQuestions"`
	Progress          string              `json:"progress"`
	TimeLeft          int                 `json:"timeLeft"`
	ShowTimer         bool                `json:"showTimer"`
	IsGameActive      bool                `json:"isGameActive"`
	IsAnswered        bool                `json:"isAnswered"`
	Feedback          *RoundResult        `json:"feedback,omitempty"`
}

// QuestionView is a question without its answer.
type QuestionView struct {
	Type    domain.QuestionType `json:"type"`
	Prompt  string              `json:"prompt"`
	Flag    string              `json:"flag,omitempty"`
	Options []OptionView        `json:"options,omitempty"`
}

// OptionView is one multiple-choice entry.
type OptionView struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// RoundResult drives the transient correct/incorrect banner.
type RoundResult struct {
	Correct  bool            `json:"correct"`
	TimedOut bool            `json:"timedOut"`
	Selected *domain.Country `json:"selected,omitempty"`
	Answer   domain.Country  `json:"answer"`
	Points   int             `json:"points"`
	Banner   string          `json:"banner"`
}

func newRoundResult(answer domain.Country, selected *domain.Country, correct, timedOut bool, points int) *RoundResult {
	banner := fmt.Sprintf("The correct answer was: %s - %s", answer.Name, answer.Capital)
	if correct {
		banner = fmt.Sprintf("Correct! %s - %s", answer.Name, answer.Capital)
	}
	return &RoundResult{
		Correct:  correct,
		TimedOut: timedOut,
		Selected: selected,
		Answer:   answer,
		Points:   points,
		Banner:   banner,
	}
}

func viewOf(q *domain.Question) *QuestionView {
	if q == nil {
		return nil
	}
	v := &QuestionView{Type: q.Type, Prompt: q.Prompt}
	if q.Type == domain.QuestionFlag {
		v.Flag = q.CorrectAnswer.Flag
	}
	for _, o := range q.Options {
		v.Options = append(v.Options, OptionView{Code: o.Code, Name: o.Name})
	}
	return v
}
