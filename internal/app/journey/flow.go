package journey

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/farum-journey/internal/domain"
	"github.com/PabloGalante/farum-journey/internal/observability"
)

// Step is one screen of the guided flow.
type Step int

const (
	StepGoal Step = iota
	StepTargetDate
	StepPosition
	StepReflection
	StepAlignment
)

// MainSteps is the order of the main flow.
var MainSteps = []Step{StepGoal, StepTargetDate, StepPosition, StepReflection, StepAlignment}

func (s Step) String() string {
	switch s {
	case StepGoal:
		return "goal"
	case StepTargetDate:
		return "target_date"
	case StepPosition:
		return "position"
	case StepReflection:
		return "reflection"
	case StepAlignment:
		return "alignment"
	default:
		return fmt.Sprintf("step_%d", int(s))
	}
}

// GoalRequiredMessage is shown when the user tries to leave the goal step
// without a goal.
const GoalRequiredMessage = "Please enter your goal before continuing."

// Requester schedules a suggestion fetch under a key. *suggestion.Fetcher
// satisfies it.
type Requester interface {
	Request(key string, req domain.SuggestionRequest)
	Cancel(key string)
}

// Hooks are the collaborators the host provides at the edges of the flow.
type Hooks struct {
	// OnBack runs when the user retreats from the first step.
	OnBack func(ctx context.Context)
	// OnComplete runs when the user advances from the last step.
	OnComplete func(ctx context.Context, j *domain.Journey)
	// Notify shows a blocking message to the user.
	Notify func(ctx context.Context, msg string)
}

// Flow is the linear step machine over one journey record. It is not safe
// for concurrent use; callers serialize access.
type Flow struct {
	record    *domain.Journey
	steps     []Step
	hooks     Hooks
	requester Requester
	now       func() time.Time
}

func NewFlow(record *domain.Journey, requester Requester, hooks Hooks, now func() time.Time) *Flow {
	if now == nil {
		now = time.Now
	}
	record.Normalize()
	f := &Flow{
		record:    record,
		steps:     MainSteps,
		hooks:     hooks,
		requester: requester,
		now:       now,
	}
	if record.Step < 0 || record.Step >= len(f.steps) {
		record.Step = 0
	}
	return f
}

func (f *Flow) Record() *domain.Journey {
	return f.record
}

func (f *Flow) Index() int {
	return f.record.Step
}

func (f *Flow) Step() Step {
	return f.steps[f.record.Step]
}

func (f *Flow) Len() int {
	return len(f.steps)
}

// Advance moves to the next step. On the last step it marks the journey
// completed and hands the record to OnComplete, once per journey; later
// advances from the last step do nothing. A failed validation leaves the
// record untouched.
func (f *Flow) Advance(ctx context.Context) error {
	log := observability.LoggerFromContext(ctx).With("step", f.Step().String())

	if err := f.validate(); err != nil {
		log.Info("advance refused", "error", err)
		if f.hooks.Notify != nil {
			f.hooks.Notify(ctx, GoalRequiredMessage)
		}
		return err
	}

	if f.record.Step == len(f.steps)-1 {
		if f.record.Completed {
			return nil
		}
		f.record.Completed = true
		f.touch()
		log.Info("journey completed")
		if f.hooks.OnComplete != nil {
			f.hooks.OnComplete(ctx, f.record)
		}
		return nil
	}

	f.record.Step++
	f.touch()
	log.Info("advanced", "to", f.Step().String())
	return nil
}

// Retreat moves to the previous step, or hands control back to the host
// from the first step.
func (f *Flow) Retreat(ctx context.Context) {
	if f.record.Step == 0 {
		if f.hooks.OnBack != nil {
			f.hooks.OnBack(ctx)
		}
		return
	}
	f.record.Step--
	f.touch()
}

func (f *Flow) validate() error {
	if f.Step() == StepGoal && strings.TrimSpace(f.record.Goal) == "" {
		return domain.ErrGoalRequired
	}
	return nil
}

func (f *Flow) SetGoal(goal string) {
	f.record.Goal = goal
	f.touch()
}

// SetTargetDate stores the date and recomputes DaysUntilTarget.
func (f *Flow) SetTargetDate(target time.Time) {
	f.record.TargetDate = &target
	f.record.DaysUntilTarget = domain.DaysUntil(target, f.now())
	f.touch()
}

// SetCurrentPosition places the user on the A–Z proximity scale.
func (f *Flow) SetCurrentPosition(pos int) error {
	if pos < 0 || pos > domain.MaxPosition {
		return fmt.Errorf("current position %d: %w", pos, domain.ErrOutOfRange)
	}
	f.record.CurrentPosition = pos
	f.touch()
	return nil
}

// ToggleSensation flips membership of s and reports whether it is now selected.
func (f *Flow) ToggleSensation(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if f.record.SelectedSensations == nil {
		f.record.SelectedSensations = make(map[string]struct{})
	}
	_, selected := f.record.SelectedSensations[s]
	if selected {
		delete(f.record.SelectedSensations, s)
	} else {
		f.record.SelectedSensations[s] = struct{}{}
	}
	f.touch()
	return !selected
}

// SetLikertScore records a rating. Scores at or below the advice threshold
// ask for a suggestion; higher scores drop any request still waiting.
func (f *Flow) SetLikertScore(cat domain.Category, score int) error {
	if !cat.Valid() {
		return fmt.Errorf("category %q: %w", cat, domain.ErrUnknownCategory)
	}
	if score < domain.MinLikertScore || score > domain.MaxLikertScore {
		return fmt.Errorf("score %d: %w", score, domain.ErrOutOfRange)
	}

	f.record.LikertScores[cat] = score
	f.touch()

	if f.requester == nil {
		return nil
	}
	if score <= domain.AdviceThreshold {
		f.requester.Request(string(cat), f.AlignmentRequest(cat))
	} else {
		f.requester.Cancel(string(cat))
	}
	return nil
}

// AlignmentRequest builds the payload sent for cat from the current record.
func (f *Flow) AlignmentRequest(cat domain.Category) domain.SuggestionRequest {
	pos := f.record.CurrentPosition
	req := domain.SuggestionRequest{
		Goal:            f.record.Goal,
		Category:        cat,
		Score:           f.record.LikertScores[cat],
		Sensations:      f.record.Sensations(),
		CurrentPosition: &pos,
	}
	if f.record.TargetDate != nil {
		days := f.record.DaysUntilTarget
		req.DaysUntilTarget = &days
	}
	return req
}

// ApplyAdvice stores text as the latest advice for cat. Unknown keys are ignored.
func (f *Flow) ApplyAdvice(cat domain.Category, text string) bool {
	if !cat.Valid() {
		return false
	}
	f.record.LatestAIAdvice[cat] = text
	f.touch()
	return true
}

func (f *Flow) touch() {
	f.record.UpdatedAt = f.now()
}
