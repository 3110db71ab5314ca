package game

import (
	"fmt"
	"math"

	"voyageur-express/internal/domain"
)

// HitPolicy decides which marker wins when several tolerance circles overlap.
type HitPolicy string

const (
	// HitFirst returns the first marker in dataset order within tolerance.
	HitFirst HitPolicy = "first"
	// HitNearest returns the closest marker within tolerance.
	HitNearest HitPolicy = "nearest"
)

// ParseHitPolicy maps a config value to a policy; empty means HitFirst.
func ParseHitPolicy(raw string) (HitPolicy, error) {
	switch HitPolicy(raw) {
	case "", HitFirst:
		return HitFirst, nil
	case HitNearest:
		return HitNearest, nil
	}
	return "", fmt.Errorf("unknown hit policy %q", raw)
}

// Pointer is a click position relative to the rendered map bounding box.
type Pointer struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Normalize converts the pointer to percentage coordinates on the map.
// A degenerate box yields ok == false.
func (p Pointer) Normalize() (px, py float64, ok bool) {
	if p.Width <= 0 || p.Height <= 0 {
		return 0, 0, false
	}
	return p.X * 100 / p.Width, p.Y * 100 / p.Height, true
}

// ResolveClick maps a pointer to a country within tolerance percentage units,
// or reports false when the click hits no marker.
func ResolveClick(p Pointer, countries []domain.Country, tolerance float64, policy HitPolicy) (domain.Country, bool) {
	px, py, ok := p.Normalize()
	if !ok {
		return domain.Country{}, false
	}
	return ResolvePoint(px, py, countries, tolerance, policy)
}

// ResolvePoint is ResolveClick on already normalized coordinates.
func ResolvePoint(px, py float64, countries []domain.Country, tolerance float64, policy HitPolicy) (domain.Country, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, c := range countries {
		d := math.Hypot(c.X-px, c.Y-py)
		if d > tolerance {
			continue
		}
		if policy != HitNearest {
			return c, true
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return domain.Country{}, false
	}
	return countries[best], true
}

// Difficulty presets tune the click tolerance.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DefaultTolerance is the marker radius used when no difficulty is chosen.
const DefaultTolerance = 3.0

// Tolerance returns the click radius of a difficulty preset.
func (d Difficulty) Tolerance() float64 {
	switch d {
	case DifficultyEasy:
		return 5
	case DifficultyMedium:
		return 3
	case DifficultyHard:
		return 2
	}
	return DefaultTolerance
}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}
