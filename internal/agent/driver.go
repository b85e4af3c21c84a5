package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"atelier/internal/executor"
	"atelier/internal/models"
	"atelier/internal/wire"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
)

// ErrMaxIterations marks a run that hit the iteration cap. The run's
// partial progress is still returned alongside it.
var ErrMaxIterations = errors.New("agent reached maximum iterations")

const systemPrompt = `You are Atelier, an assistant that refines a dashboard component. A component is three pieces: an LLM prompt, a JSON output schema, and a UI renderer snippet. The component runs against a recorded conversation transcript.

Use your tools to inspect the component, read as much of the transcript as you need, make the requested edits, and test the result. Edit tools are only offered for the fields you are allowed to change this run.

Guidelines:
- Read the current component before editing it.
- Fetch a small transcript prefix first; request more characters only if needed.
- Keep edits minimal and targeted to the user's request.
- After editing, briefly explain what you changed.`

// RunInput carries everything one run needs besides the draft itself,
// which the tool executor owns.
type RunInput struct {
	UserPrompt        string
	ComponentTitle    string
	ConversationTitle string
	Meta              models.ConversationMeta
}

// Driver runs the bounded multi-turn tool-calling loop for one request.
// It is single-use: one Driver per run, exclusively owning its executor's
// draft for the duration.
type Driver struct {
	model         ModelClient
	exec          *executor.Executor
	tools         []openai.ChatCompletionToolUnionParam
	maxIterations int
	streamTimeout time.Duration
	logger        *slog.Logger

	state State
}

func NewDriver(
	model ModelClient,
	exec *executor.Executor,
	tools []openai.ChatCompletionToolUnionParam,
	maxIterations int,
	streamTimeout time.Duration,
	logger *slog.Logger,
) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{
		model:         model,
		exec:          exec,
		tools:         tools,
		maxIterations: maxIterations,
		streamTimeout: streamTimeout,
		logger:        logger,
		state:         StateAwaitingModel,
	}
}

// State reports the loop's current state.
func (d *Driver) State() State {
	return d.state
}

func (d *Driver) transition(to State) {
	if !d.state.CanTransition(to) {
		d.logger.Error("illegal state transition", "from", d.state, "to", to)
	}
	d.state = to
}

// Run drives the loop to a terminal state and returns the last-known
// draft. Exactly one agent_complete or error event terminates the
// stream; tool-level failures never abort the run.
func (d *Driver) Run(ctx context.Context, input RunInput, emit wire.EmitFunc) (models.ComponentDraft, error) {
	history := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(buildUserMessage(input, d.exec.Draft())),
	}

	for iteration := 1; ; iteration++ {
		if iteration > d.maxIterations {
			d.transition(StateMaxIterations)
			d.logger.Warn("run stopped at iteration cap", "max_iterations", d.maxIterations)
			draft := d.exec.Draft()
			emit(wire.Event{
				Type:          wire.EventAgentComplete,
				AgentComplete: &wire.AgentCompletePayload{Success: false, UpdatedState: draft},
			})
			return draft, fmt.Errorf("run: %w", ErrMaxIterations)
		}

		text, calls, err := d.streamTurn(ctx, history, emit)
		if err != nil {
			return d.fatal(emit, err)
		}

		history = append(history, assistantMessage(text, calls))

		if len(calls) == 0 {
			d.transition(StateDone)
			draft := d.exec.Draft()
			emit(wire.Event{
				Type:          wire.EventAgentComplete,
				AgentComplete: &wire.AgentCompletePayload{Success: true, UpdatedState: draft},
			})
			return draft, nil
		}

		d.transition(StateExecutingTools)
		for _, call := range calls {
			history = append(history, d.executeCall(ctx, call, emit))
		}
		d.transition(StateAwaitingModel)
	}
}

// streamTurn issues one model call and consumes its stream, forwarding
// text deltas immediately and assembling tool-call fragments per index.
func (d *Driver) streamTurn(
	ctx context.Context,
	history []openai.ChatCompletionMessageParamUnion,
	emit wire.EmitFunc,
) (string, []pendingToolCall, error) {
	streamCtx, cancel := context.WithTimeout(ctx, d.streamTimeout)
	defer cancel()

	stream, err := d.model.Stream(streamCtx, ModelRequest{Messages: history, Tools: d.tools})
	if err != nil {
		return "", nil, fmt.Errorf("model call: %w", err)
	}
	defer stream.Close()

	d.transition(StateStreaming)

	messageID := uuid.NewString()
	started := false
	text := ""
	assembly := newToolCallAssembly()

	for stream.Next() {
		chunk := stream.Current()
		if chunk.TextDelta != "" {
			if !started {
				started = true
				emit(wire.Event{
					Type:         wire.EventMessageStart,
					MessageStart: &wire.MessageStartPayload{MessageID: messageID},
				})
			}
			text += chunk.TextDelta
			emit(wire.Event{
				Type:         wire.EventMessageChunk,
				MessageChunk: &wire.MessageChunkPayload{MessageID: messageID, Delta: chunk.TextDelta},
			})
		}
		for _, tc := range chunk.ToolCalls {
			assembly.apply(tc)
		}
	}
	if err := stream.Err(); err != nil {
		return "", nil, fmt.Errorf("model stream: %w", err)
	}

	if started {
		emit(wire.Event{
			Type:            wire.EventMessageComplete,
			MessageComplete: &wire.MessageCompletePayload{MessageID: messageID, Content: text},
		})
	}

	calls := assembly.ordered()
	for i := range calls {
		// Some providers omit tool-call ids; results still need a
		// correlation id in both history and the event stream.
		if calls[i].ID == "" {
			calls[i].ID = uuid.NewString()
		}
	}
	return text, calls, nil
}

// executeCall dispatches one assembled tool call and returns the tool
// message to append to history. Argument parse failures and execution
// failures are isolated to this call: the model sees them as the tool's
// result and the client sees them as a failed tool_result event.
func (d *Driver) executeCall(ctx context.Context, call pendingToolCall, emit wire.EmitFunc) openai.ChatCompletionMessageParamUnion {
	callID := call.ID

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(call.Args), &args); err != nil {
		d.logger.Warn("tool arguments failed to parse", "tool", call.Name, "error", err)
		outcome := toolOutcome{
			Success:      false,
			Error:        fmt.Sprintf("invalid tool arguments: %v", err),
			RawArguments: call.Args,
		}
		emit(wire.Event{
			Type: wire.EventToolResult,
			ToolResult: &wire.ToolResultPayload{
				ID:       callID,
				ToolName: call.Name,
				Result:   outcome.Error,
				Success:  false,
			},
		})
		return openai.ToolMessage(callID, outcome.encode())
	}

	emit(wire.Event{
		Type: wire.EventToolCall,
		ToolCall: &wire.ToolCallPayload{
			ID:       callID,
			ToolName: call.Name,
			Args:     json.RawMessage(call.Args),
		},
	})

	res := d.exec.Execute(ctx, call.Name, args)
	d.logger.Debug("tool executed", "tool", call.Name, "success", res.Success)

	outcome := toolOutcome{Success: res.Success}
	if res.Success {
		outcome.Result = res.Content
	} else {
		outcome.Error = res.Content
	}
	emit(wire.Event{
		Type: wire.EventToolResult,
		ToolResult: &wire.ToolResultPayload{
			ID:       callID,
			ToolName: call.Name,
			Result:   res.Content,
			Success:  res.Success,
		},
	})
	return openai.ToolMessage(callID, outcome.encode())
}

func (d *Driver) fatal(emit wire.EmitFunc, err error) (models.ComponentDraft, error) {
	d.transition(StateFatal)
	d.logger.Error("run failed", "error", err)
	emit(wire.Event{
		Type:  wire.EventError,
		Error: &wire.ErrorPayload{Message: err.Error()},
	})
	return d.exec.Draft(), err
}

// toolOutcome is the tool's turn result as the model sees it in history.
type toolOutcome struct {
	Success      bool   `json:"success"`
	Result       string `json:"result,omitempty"`
	Error        string `json:"error,omitempty"`
	RawArguments string `json:"rawArguments,omitempty"`
}

func (o toolOutcome) encode() string {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
	}
	return string(data)
}

func assistantMessage(text string, calls []pendingToolCall) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{}
	if text != "" {
		assistant.Content.OfString = openai.String(text)
	}
	for _, call := range calls {
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      call.Name,
					Arguments: call.Args,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func buildUserMessage(input RunInput, draft models.ComponentDraft) string {
	return fmt.Sprintf(`Request: %s

Component: %s
Grounding conversation: %s (%d seconds, %d speakers, %d words, %d characters)

Current component state:

## Prompt
%s

## Output schema
%s

## UI code
%s`,
		input.UserPrompt,
		input.ComponentTitle,
		input.ConversationTitle,
		input.Meta.DurationSeconds,
		input.Meta.SpeakerCount,
		input.Meta.WordCount,
		input.Meta.CharCount,
		draft.Prompt,
		draft.OutputSchema,
		draft.UICode,
	)
}
