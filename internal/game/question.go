// Package game holds the pure round engines: question generation, scoring and
// map hit testing. Nothing here keeps state between calls.
package game

import (
	"fmt"
	"math/rand"

	"voyageur-express/internal/domain"
)

// GenerateQuestion picks an eligible country uniformly at random and builds the
// prompt for questionType. Countries whose code is in used are skipped, and
// monument questions only consider countries carrying a monument. It reports
// false when nothing is eligible. used is never modified; the caller records
// the returned answer before asking again.
func GenerateQuestion(rng *rand.Rand, countries []domain.Country, questionType domain.QuestionType, used map[string]struct{}) (domain.Question, bool) {
	eligible := make([]domain.Country, 0, len(countries))
	for _, c := range countries {
		if _, ok := used[c.Code]; ok {
			continue
		}
		if questionType == domain.QuestionMonument && !c.HasMonument() {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return domain.Question{}, false
	}

	answer := eligible[rng.Intn(len(eligible))]
	prompt, ok := promptFor(questionType, answer)
	if !ok {
		return domain.Question{}, false
	}
	return domain.Question{
		Type:          questionType,
		Prompt:        prompt,
		CorrectAnswer: answer,
	}, true
}

func promptFor(questionType domain.QuestionType, c domain.Country) (string, bool) {
	switch questionType {
	case domain.QuestionCountry:
		return fmt.Sprintf("Where is the country: %s?", c.Name), true
	case domain.QuestionCapital:
		return fmt.Sprintf("Where is the capital: %s?", c.Capital), true
	case domain.QuestionFlag:
		// The flag glyph is shown next to the prompt, never the name.
		return "Which country has this flag?", true
	case domain.QuestionMonument:
		return fmt.Sprintf("In which country is: %s?", c.Monument), true
	}
	return "", false
}

// MultipleChoiceOptions returns correct plus up to count-1 distinct distractors
// from all, shuffled.
func MultipleChoiceOptions(rng *rand.Rand, correct domain.Country, all []domain.Country, count int) []domain.Country {
	if count <= 0 {
		return nil
	}
	others := make([]domain.Country, 0, len(all))
	for _, c := range all {
		if c.Code != correct.Code {
			others = append(others, c)
		}
	}
	shuffle(rng, others)

	options := []domain.Country{correct}
	for i := 0; i < count-1 && i < len(others); i++ {
		options = append(options, others[i])
	}
	shuffle(rng, options)
	return options
}

func shuffle(rng *rand.Rand, cs []domain.Country) {
	rng.Shuffle(len(cs), func(i, j int) { cs[i], cs[j] = cs[j], cs[i] })
}
