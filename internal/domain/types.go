package domain

import (
	"errors"
	"time"
)

type JourneyID string
type UserID string

type Timestamp = time.Time

// Category is one of the fixed alignment dimensions rated on the last step.
type Category string

const (
	CategorySafety       Category = "safety"
	CategoryConfidence   Category = "confidence"
	CategoryAnticipation Category = "anticipation"
	CategoryOpenness     Category = "openness"
	CategoryDeserving    Category = "deserving"
	CategoryBelief       Category = "belief"
	CategoryAppreciation Category = "appreciation"
)

// Categories lists the alignment categories in presentation order.
var Categories = []Category{
	CategorySafety,
	CategoryConfidence,
	CategoryAnticipation,
	CategoryOpenness,
	CategoryDeserving,
	CategoryBelief,
	CategoryAppreciation,
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

const (
	MinLikertScore     = 1
	MaxLikertScore     = 5
	DefaultLikertScore = 3

	// Scores at or below this value ask the text-generation service for advice.
	AdviceThreshold = 3
)

// Alphabet is the ordered proximity scale. Index 0 is closest to the goal.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const MaxPosition = len(Alphabet) - 1

// Letter returns the proximity symbol for pos, or "?" when pos is out of range.
func Letter(pos int) string {
	if pos < 0 || pos > MaxPosition {
		return "?"
	}
	return Alphabet[pos : pos+1]
}

const (
	MinScale  = 10
	MaxScale  = 100
	ScaleStep = 10
)

// MaxLetterPosition is the highest letter reachable at the given scale.
func MaxLetterPosition(scale int) int {
	return (MaxPosition * scale) / 100
}

var (
	ErrNotFound        = errors.New("not found")
	ErrGoalRequired    = errors.New("goal is required")
	ErrOutOfRange      = errors.New("value out of range")
	ErrUnknownCategory = errors.New("unknown category")
)
