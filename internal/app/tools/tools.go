package tools

import "context"

// ToolContext identifies whose journey triggered a tool call.
type ToolContext struct {
	UserID    string
	JourneyID string
	RequestID string
}

// Tool is a side effect run at the edges of a journey, such as writing the
// journal when the last step is reached. Input and output stay loosely typed
// so new tools need no changes to the journey service.
type Tool interface {
	Name() string
	Call(ctx context.Context, tctx ToolContext, input map[string]any) (map[string]any, error)
}

var _ Tool = (*JournalTool)(nil)
