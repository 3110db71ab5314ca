package domain

import "time"

// Country is one entry of the map dataset. X and Y are percentage offsets on
// the map canvas, both in [0,100].
type Country struct {
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	Capital   string  `json:"capital"`
	Flag      string  `json:"flag"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Continent string  `json:"continent"`
	Monument  string  `json:"monument,omitempty"`
}

// HasMonument reports whether the country can back a monument question.
func (c Country) HasMonument() bool {
	return c.Monument != ""
}

// QuestionType selects which attribute of a country the player is asked about.
type QuestionType string

const (
	QuestionCountry  QuestionType = "country"
	QuestionCapital  QuestionType = "capital"
	QuestionFlag     QuestionType = "flag"
	QuestionMonument QuestionType = "monument"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionCountry, QuestionCapital, QuestionFlag, QuestionMonument:
		return true
	}
	return false
}

// GameMode is fixed at session start and determines question count and timing.
type GameMode string

const (
	ModeTraining GameMode = "training"
	ModeChrono   GameMode = "chrono"
	ModeCampaign GameMode = "campaign"
)

// Valid reports whether m is a known game mode.
func (m GameMode) Valid() bool {
	switch m {
	case ModeTraining, ModeChrono, ModeCampaign:
		return true
	}
	return false
}

// ModeSettings holds the per-mode question budget. In chrono mode TimeBudget is
// the global countdown; in the other modes it is reset for every question.
type ModeSettings struct {
	TotalQuestions int
	TimeBudget     int
}

// SettingsFor returns the question and time budget of a mode.
func SettingsFor(mode GameMode) ModeSettings {
	switch mode {
	case ModeChrono:
		return ModeSettings{TotalQuestions: 15, TimeBudget: 20}
	case ModeCampaign:
		return ModeSettings{TotalQuestions: 20, TimeBudget: 30}
	default:
		return ModeSettings{TotalQuestions: 10, TimeBudget: 30}
	}
}

// Screen drives which presentation is active on the client.
type Screen string

const (
	ScreenMenu       Screen = "menu"
	ScreenModeSelect Screen = "modeSelect"
	ScreenGame       Screen = "game"
	ScreenPause      Screen = "pause"
	ScreenGameOver   Screen = "gameOver"
)

// Question is created fresh each round and discarded when the round ends.
type Question struct {
	Type          QuestionType
	Prompt        string
	CorrectAnswer Country
	Options       []Country
}

// BasePoints is awarded for a correct answer before any time bonus.
const BasePoints = 100

// Completion is emitted once per session end to the hosting page.
type Completion struct {
	Type      string          `json:"type"`
	BlockID   string          `json:"blockId"`
	SessionID string          `json:"sessionId"`
	Completed bool            `json:"completed"`
	Score     int             `json:"score"`
	MaxScore  int             `json:"maxScore"`
	TimeSpent int             `json:"timeSpent"`
	Message   string          `json:"message"`
	Data      CompletionStats `json:"data"`
	EndedAt   time.Time       `json:"endedAt"`
}

// CompletionStats is the nested breakdown of a completion event.
type CompletionStats struct {
	QuestionsAnswered int `json:"questionsAnswered"`
	TotalQuestions    int `json:"totalQuestions"`
	CorrectAnswers    int `json:"correctAnswers"`
	Accuracy          int `json:"accuracy"`
}

const (
	CompletionType = "BLOCK_COMPLETION"
	BlockID        = "voyageur-express"
)
