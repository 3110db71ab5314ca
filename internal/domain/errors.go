package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a game session id is unknown.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrDatasetNotFound indicates the country dataset could not be loaded.
	ErrDatasetNotFound = errors.New("country dataset not found")
	// ErrInvalidDataset indicates a dataset that breaks the code or coordinate invariants.
	ErrInvalidDataset = errors.New("invalid country dataset")
	// ErrInvalidTransition is returned for a navigation the current screen does not allow.
	ErrInvalidTransition = errors.New("invalid screen transition")
	// ErrUnknownMode indicates a game mode outside training, chrono and campaign.
	ErrUnknownMode = errors.New("unknown game mode")
	// ErrUnknownQuestionType indicates a question type outside the fixed set.
	ErrUnknownQuestionType = errors.New("unknown question type")
	// ErrUnknownContinent indicates a continent filter outside the fixed list.
	ErrUnknownContinent = errors.New("unknown continent")
)
