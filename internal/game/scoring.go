package game

import (
	"math"

	"voyageur-express/internal/domain"
)

// MaxTimeBonus is the bonus earned when answering with the full budget left.
const MaxTimeBonus = 50

// Score returns the points for a round using the default base of 100.
func Score(isCorrect bool, timeBonus int) int {
	return ScoreWithBase(isCorrect, timeBonus, domain.BasePoints)
}

// ScoreWithBase returns 0 for a wrong answer and round(base+timeBonus) otherwise.
func ScoreWithBase(isCorrect bool, timeBonus, base int) int {
	if !isCorrect {
		return 0
	}
	return int(math.Round(float64(base + timeBonus)))
}

// TimeBonus scales linearly from 0 to MaxTimeBonus with the share of time left.
func TimeBonus(timeLeft, maxTime int) int {
	if maxTime <= 0 {
		return 0
	}
	ratio := float64(timeLeft) / float64(maxTime)
	return int(math.Round(ratio * MaxTimeBonus))
}

// Accuracy is the final score as a rounded percentage of the maximum score.
// Chrono time bonuses can push it above 100.
func Accuracy(score, totalQuestions int) int {
	maxScore := totalQuestions * domain.BasePoints
	if maxScore <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(maxScore) * 100))
}

// CongratulatoryMessage grades a final score against the maximum score.
func CongratulatoryMessage(score, totalQuestions int) string {
	percentage := 0.0
	if totalQuestions > 0 {
		percentage = float64(score) / float64(totalQuestions*domain.BasePoints) * 100
	}
	switch {
	case percentage >= 90:
		return "🌟 Extraordinary! You are a true globetrotter!"
	case percentage >= 80:
		return "🎉 Excellent! Your geography knowledge is impressive!"
	case percentage >= 70:
		return "👏 Very good! You know your way around the world!"
	case percentage >= 60:
		return "👍 Well played! Keep exploring the world!"
	case percentage >= 40:
		return "💪 Not bad! A little more practice and you will be on top!"
	default:
		return "🗺️ It's a start! Your exploration of the world is just beginning!"
	}
}
