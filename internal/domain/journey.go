package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// Adjustment holds the belief-adjustment state: how much of the goal's scope
// is kept (Scale, percent) and where the user now sits on the shortened scale.
type Adjustment struct {
	Scale          int    `json:"scale"`
	LetterPosition int    `json:"letter_position"`
	AIResponse     string `json:"ai_response,omitempty"`
}

// Journey is the single record threaded through the guided flow.
type Journey struct {
	ID        JourneyID `json:"id"`
	UserID    UserID    `json:"user_id"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`

	Goal            string     `json:"goal"`
	TargetDate      *time.Time `json:"target_date,omitempty"`
	DaysUntilTarget int        `json:"days_until_target"`
	CurrentPosition int        `json:"current_position"`

	SelectedSensations map[string]struct{} `json:"-"`

	LikertScores   map[Category]int    `json:"likert_scores"`
	LatestAIAdvice map[Category]string `json:"latest_ai_advice"`

	Adjustment Adjustment `json:"adjustment"`

	Step      int  `json:"step"`
	Completed bool `json:"completed"`
}

// NewJourney returns an empty journey with every score at its default.
func NewJourney(id JourneyID, userID UserID, now time.Time) *Journey {
	scores := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		scores[c] = DefaultLikertScore
	}
	return &Journey{
		ID:                 id,
		UserID:             userID,
		CreatedAt:          now,
		UpdatedAt:          now,
		SelectedSensations: make(map[string]struct{}),
		LikertScores:       scores,
		LatestAIAdvice:     make(map[Category]string),
		Adjustment:         Adjustment{Scale: MaxScale},
	}
}

// Normalize fills in maps and defaults missing from a decoded record.
func (j *Journey) Normalize() {
	if j.SelectedSensations == nil {
		j.SelectedSensations = make(map[string]struct{})
	}
	if j.LikertScores == nil {
		j.LikertScores = make(map[Category]int, len(Categories))
	}
	for _, c := range Categories {
		if _, ok := j.LikertScores[c]; !ok {
			j.LikertScores[c] = DefaultLikertScore
		}
	}
	if j.LatestAIAdvice == nil {
		j.LatestAIAdvice = make(map[Category]string)
	}
	if j.Adjustment.Scale == 0 {
		j.Adjustment.Scale = MaxScale
	}
}

const day = 24 * time.Hour

// DaysUntil is ceil((target-now)/24h), computed on integer nanoseconds.
func DaysUntil(target, now time.Time) int {
	d := target.Sub(now)
	q := d / day
	if d%day > 0 {
		q++
	}
	return int(q)
}

// Sensations returns the selected sensations sorted for stable output.
func (j *Journey) Sensations() []string {
	out := make([]string, 0, len(j.SelectedSensations))
	for s := range j.SelectedSensations {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy safe to hand out of a locked section.
func (j *Journey) Clone() *Journey {
	if j == nil {
		return nil
	}
	cp := *j
	if j.TargetDate != nil {
		t := *j.TargetDate
		cp.TargetDate = &t
	}
	cp.SelectedSensations = make(map[string]struct{}, len(j.SelectedSensations))
	for s := range j.SelectedSensations {
		cp.SelectedSensations[s] = struct{}{}
	}
	cp.LikertScores = make(map[Category]int, len(j.LikertScores))
	for k, v := range j.LikertScores {
		cp.LikertScores[k] = v
	}
	cp.LatestAIAdvice = make(map[Category]string, len(j.LatestAIAdvice))
	for k, v := range j.LatestAIAdvice {
		cp.LatestAIAdvice[k] = v
	}
	return &cp
}

type journeyAlias Journey

type journeyJSON struct {
	*journeyAlias
	SelectedSensations []string `json:"selected_sensations"`
}

// MarshalJSON writes the sensation set as a sorted list.
func (j Journey) MarshalJSON() ([]byte, error) {
	return json.Marshal(journeyJSON{
		journeyAlias:       (*journeyAlias)(&j),
		SelectedSensations: j.Sensations(),
	})
}

func (j *Journey) UnmarshalJSON(data []byte) error {
	aux := journeyJSON{journeyAlias: (*journeyAlias)(j)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	j.SelectedSensations = make(map[string]struct{}, len(aux.SelectedSensations))
	for _, s := range aux.SelectedSensations {
		j.SelectedSensations[s] = struct{}{}
	}
	j.Normalize()
	return nil
}
