package llm

import (
	"fmt"
	"strings"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

const baseSystemPrompt = `
You are a goal-alignment coach inside a guided reflection journey.

Your role:
- The user has named a goal and rated how aligned they feel with it.
- You help them notice what holds them back and suggest one small, concrete shift.
- You are NOT a therapist, doctor, or emergency service and you do NOT give diagnoses.

General style guidelines:
- Answer in the SAME LANGUAGE as the goal.
- Be brief: 2-4 short sentences, no lists, no headings.
- Speak directly to the user in the second person.
- Be warm and practical, never preachy.
`

// alignmentTemplates holds one instruction per alignment category. Each is
// formatted with the score (1-5) and the goal text.
var alignmentTemplates = map[domain.Category]string{
	domain.CategorySafety: `The user rated how safe it feels to reach their goal at %d out of 5.
Goal: %q
Help them see what risk they are bracing against and one way to make progress feel safer.`,

	domain.CategoryConfidence: `The user rated their confidence in reaching their goal at %d out of 5.
Goal: %q
Point to a strength the goal already demands of them and a small win that would build confidence this week.`,

	domain.CategoryAnticipation: `The user rated how much they look forward to reaching their goal at %d out of 5.
Goal: %q
Help them picture one concrete moment after the goal is reached that they could genuinely look forward to.`,

	domain.CategoryOpenness: `The user rated how open they are to receiving their goal at %d out of 5.
Goal: %q
Gently name what might be making them guarded and suggest one way to stay open to help or unexpected routes.`,

	domain.CategoryDeserving: `The user rated how much they feel they deserve their goal at %d out of 5.
Goal: %q
Offer a reframe that separates worth from achievement and one sentence they could tell themselves.`,

	domain.CategoryBelief: `The user rated their belief that their goal is possible at %d out of 5.
Goal: %q
Suggest a smaller version of the goal they could believe in today and the evidence that would grow that belief.`,

	domain.CategoryAppreciation: `The user rated how much they appreciate what they already have on the way to their goal at %d out of 5.
Goal: %q
Invite them to notice one thing already in place that supports the goal and how to acknowledge it.`,
}

const fallbackTemplate = `The user is reflecting on %q in relation to their goal.
Goal: %q
Offer one short, practical suggestion that would help them feel more aligned with it.`

const adjustmentTemplate = `The user reduced the scope of their goal to %d%% of the original and now places themselves at letter %s on an A to Z scale, where Z means the goal is reached.
Goal: %q
Describe what the goal looks like at this scale and one step that would move them a single letter closer.`

// BuildSystemPrompt returns the identity prompt shared by every request.
func BuildSystemPrompt() string {
	return strings.TrimSpace(baseSystemPrompt)
}

// BuildAlignmentPrompt returns the instruction for one alignment category.
// Unknown categories get a generic instruction naming the category.
func BuildAlignmentPrompt(category domain.Category, score int, goal string) string {
	if tmpl, ok := alignmentTemplates[category]; ok {
		return fmt.Sprintf(tmpl, score, goal)
	}
	return fmt.Sprintf(fallbackTemplate, string(category), goal)
}

// BuildAdjustmentPrompt returns the instruction for the belief-adjustment screen.
func BuildAdjustmentPrompt(goal string, scale, letterPosition int) string {
	return fmt.Sprintf(adjustmentTemplate, scale, domain.Letter(letterPosition), goal)
}

// PromptFor picks the template for a suggestion request. A raw message is
// passed through, a category selects the alignment template, and anything
// else is treated as a belief-adjustment request.
func PromptFor(req domain.SuggestionRequest) domain.Prompt {
	var user string
	switch {
	case strings.TrimSpace(req.Message) != "":
		user = req.Message
	case req.Category != "":
		user = BuildAlignmentPrompt(req.Category, req.Score, req.Goal)
	default:
		letter := 0
		if req.LetterPosition != nil {
			letter = *req.LetterPosition
		}
		scale := req.Scale
		if scale == 0 {
			scale = domain.MaxScale
		}
		user = BuildAdjustmentPrompt(req.Goal, scale, letter)
	}

	var extra []string
	if len(req.Sensations) > 0 {
		extra = append(extra, "Sensations they noticed: "+strings.Join(req.Sensations, ", ")+".")
	}
	if req.CurrentPosition != nil {
		extra = append(extra, "Current position on the A to Z scale: "+domain.Letter(*req.CurrentPosition)+".")
	}
	if req.DaysUntilTarget != nil {
		extra = append(extra, fmt.Sprintf("Days until the target date: %d.", *req.DaysUntilTarget))
	}
	if len(extra) > 0 {
		user += "\n\n" + strings.Join(extra, "\n")
	}

	return domain.Prompt{
		System: BuildSystemPrompt(),
		User:   user,
	}
}
