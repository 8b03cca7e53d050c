package journey

import (
	"fmt"
	"time"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

// AdjustmentKey is the fetch key used by the belief-adjustment screen.
const AdjustmentKey = "adjustment"

// Adjustment drives the belief-adjustment screen: the user shrinks the
// goal's scope (Scale) and re-places themselves on the shortened scale.
// Every change asks for a fresh suggestion.
type Adjustment struct {
	record    *domain.Journey
	requester Requester
	now       func() time.Time
}

func NewAdjustment(record *domain.Journey, requester Requester, now func() time.Time) *Adjustment {
	if now == nil {
		now = time.Now
	}
	record.Normalize()
	return &Adjustment{record: record, requester: requester, now: now}
}

// MaxLetterPosition is the highest letter reachable at the current scale.
func (a *Adjustment) MaxLetterPosition() int {
	return domain.MaxLetterPosition(a.record.Adjustment.Scale)
}

// SetScale changes the kept share of the goal. A letter position beyond the
// new maximum is pulled back to it.
func (a *Adjustment) SetScale(scale int) error {
	return a.Set(&scale, nil)
}

func (a *Adjustment) SetLetterPosition(pos int) error {
	return a.Set(nil, &pos)
}

// Set applies an optional scale and letter position as one change. Both are
// checked before the record is touched, the letter against the new scale.
// A successful change sends one request.
func (a *Adjustment) Set(scale, letter *int) error {
	next := a.record.Adjustment.Scale
	if scale != nil {
		if *scale < domain.MinScale || *scale > domain.MaxScale || *scale%domain.ScaleStep != 0 {
			return fmt.Errorf("scale %d: %w", *scale, domain.ErrOutOfRange)
		}
		next = *scale
	}
	if letter != nil && (*letter < 0 || *letter > domain.MaxLetterPosition(next)) {
		return fmt.Errorf("letter position %d: %w", *letter, domain.ErrOutOfRange)
	}
	if scale == nil && letter == nil {
		return nil
	}

	a.record.Adjustment.Scale = next
	if letter != nil {
		a.record.Adjustment.LetterPosition = *letter
	} else if limit := a.MaxLetterPosition(); a.record.Adjustment.LetterPosition > limit {
		a.record.Adjustment.LetterPosition = limit
	}
	a.touch()
	a.request()
	return nil
}

// Request builds the payload for the current scale and letter.
func (a *Adjustment) Request() domain.SuggestionRequest {
	pos := a.record.Adjustment.LetterPosition
	return domain.SuggestionRequest{
		Goal:           a.record.Goal,
		Scale:          a.record.Adjustment.Scale,
		LetterPosition: &pos,
		Sensations:     a.record.Sensations(),
	}
}

func (a *Adjustment) ApplyResponse(text string) {
	a.record.Adjustment.AIResponse = text
	a.touch()
}

func (a *Adjustment) request() {
	if a.requester != nil {
		a.requester.Request(AdjustmentKey, a.Request())
	}
}

func (a *Adjustment) touch() {
	a.record.UpdatedAt = a.now()
}
