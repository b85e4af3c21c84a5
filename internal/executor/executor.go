package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"atelier/internal/capability"
	"atelier/internal/models"
	"atelier/internal/transcript"
)

// Tester is the external grounding/test collaborator. Its result is
// returned to the model verbatim.
type Tester interface {
	Test(ctx context.Context, kind string, draft models.ComponentDraft, conversationID string) (string, error)
}

// Result is the structured outcome of one tool call. Content is always
// readable text/JSON so the model can see its own mistakes and
// self-correct on the next iteration.
type Result struct {
	Success bool
	Content string
}

// Executor owns the mutable in-memory component draft for one agent run
// and dispatches named tool calls against it. Edits are in-memory only;
// publishing is the caller's job after the run.
type Executor struct {
	draft          *models.ComponentDraft
	conversationID string
	transcripts    transcript.Store
	tester         Tester
	logger         *slog.Logger
}

func New(draft *models.ComponentDraft, conversationID string, transcripts transcript.Store, tester Tester, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		draft:          draft,
		conversationID: conversationID,
		transcripts:    transcripts,
		tester:         tester,
		logger:         logger,
	}
}

// Draft returns the current state of the in-memory draft.
func (e *Executor) Draft() models.ComponentDraft {
	return *e.draft
}

// Execute runs one named tool call. Failures are values, never panics or
// errors: the whole run must survive any single bad tool call.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]interface{}) Result {
	switch name {
	case capability.ToolReadCurrentComponent:
		return e.readCurrentComponent()
	case capability.ToolGetTranscript:
		return e.getConversationTranscript(ctx, args)
	case capability.ToolEditPrompt:
		return e.editPrompt(args)
	case capability.ToolEditStructuredOutput:
		return e.editStructuredOutput(args)
	case capability.ToolEditUICode:
		return e.editUICode(args)
	case capability.ToolTestComponent:
		return e.testComponent(ctx, args)
	default:
		return failuref("unknown tool: %s", name)
	}
}

func (e *Executor) readCurrentComponent() Result {
	return jsonResult(map[string]interface{}{
		"prompt":       e.draft.Prompt,
		"outputSchema": e.draft.OutputSchema,
		"uiCode":       e.draft.UICode,
	})
}

func (e *Executor) getConversationTranscript(ctx context.Context, args map[string]interface{}) Result {
	maxChars := transcript.DefaultMaxChars
	if v, ok := args["maxChars"].(float64); ok && v > 0 {
		maxChars = int(v)
	}

	full, _, err := e.transcripts.Transcript(ctx, e.conversationID)
	if err != nil {
		e.logger.Warn("transcript fetch failed", "conversation_id", e.conversationID, "error", err)
		return failuref("failed to fetch transcript: %v", err)
	}

	return jsonResult(transcript.Bound(full, maxChars))
}

func (e *Executor) editPrompt(args map[string]interface{}) Result {
	newPrompt, ok := args["newPrompt"].(string)
	if !ok {
		return failuref("edit_prompt: newPrompt must be a string")
	}
	e.draft.Prompt = newPrompt
	return jsonResult(map[string]interface{}{
		"updated":   "prompt",
		"reasoning": stringArg(args, "reasoning"),
	})
}

func (e *Executor) editStructuredOutput(args map[string]interface{}) Result {
	newSchema, ok := args["newSchema"].(string)
	if !ok {
		return failuref("edit_structured_output: newSchema must be a string")
	}

	// Invalid schemas never reach the draft.
	var probe interface{}
	if err := json.Unmarshal([]byte(newSchema), &probe); err != nil {
		return failuref("newSchema is not valid JSON: %v", err)
	}

	e.draft.OutputSchema = newSchema
	return jsonResult(map[string]interface{}{
		"updated":   "outputSchema",
		"reasoning": stringArg(args, "reasoning"),
	})
}

func (e *Executor) editUICode(args map[string]interface{}) Result {
	newCode, ok := args["newCode"].(string)
	if !ok {
		return failuref("edit_ui_code: newCode must be a string")
	}
	// No syntax validation at this layer; the renderer owns that.
	e.draft.UICode = newCode
	return jsonResult(map[string]interface{}{
		"updated":   "uiCode",
		"reasoning": stringArg(args, "reasoning"),
	})
}

func (e *Executor) testComponent(ctx context.Context, args map[string]interface{}) Result {
	if e.tester == nil {
		return failuref("test_component is not available")
	}
	kind := stringArg(args, "testKind")
	out, err := e.tester.Test(ctx, kind, *e.draft, e.conversationID)
	if err != nil {
		return failuref("test failed: %v", err)
	}
	return Result{Success: true, Content: out}
}

// Summary renders a short tool action line for display.
func Summary(name string, args map[string]interface{}, res Result) string {
	switch name {
	case capability.ToolReadCurrentComponent:
		return "READ component"
	case capability.ToolGetTranscript:
		return "FETCH transcript"
	case capability.ToolTestComponent:
		kind := stringArg(args, "testKind")
		if kind == "" {
			kind = "default"
		}
		return fmt.Sprintf("TEST %s", kind)
	case capability.ToolEditPrompt:
		if !res.Success {
			return "EDIT prompt (failed)"
		}
		return "EDIT prompt"
	case capability.ToolEditStructuredOutput:
		if !res.Success {
			return "EDIT schema (failed)"
		}
		return "EDIT schema"
	case capability.ToolEditUICode:
		if !res.Success {
			return "EDIT ui code (failed)"
		}
		return "EDIT ui code"
	default:
		return fmt.Sprintf("%s called", name)
	}
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func jsonResult(v interface{}) Result {
	data, err := json.Marshal(v)
	if err != nil {
		return failuref("failed to encode tool result: %v", err)
	}
	return Result{Success: true, Content: string(data)}
}

func failuref(format string, args ...interface{}) Result {
	return Result{Success: false, Content: fmt.Sprintf(format, args...)}
}
