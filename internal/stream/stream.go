package stream

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"atelier/internal/models"
	"atelier/internal/wire"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

// EventReader parses a framed run stream back into wire events.
type EventReader struct {
	dec     ssestream.Decoder
	current wire.Event
	err     error
}

func NewEventReader(resp *http.Response) *EventReader {
	return &EventReader{dec: ssestream.NewDecoder(resp)}
}

func (r *EventReader) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.dec.Next() {
		r.err = r.dec.Err()
		return false
	}
	raw := r.dec.Event()
	evt, err := wire.Decode(raw.Type, raw.Data)
	if err != nil {
		r.err = err
		return false
	}
	r.current = evt
	return true
}

func (r *EventReader) Event() wire.Event {
	return r.current
}

func (r *EventReader) Err() error {
	return r.err
}

func (r *EventReader) Close() error {
	return r.dec.Close()
}

// RoundStore is the ordered, append-only collection of conversation
// rounds. Rounds are created when the user submits a prompt and only
// ever grow.
type RoundStore struct {
	rounds []models.ConversationRound
}

func NewRoundStore() *RoundStore {
	return &RoundStore{}
}

// Begin opens a new round for a user prompt and returns its id.
func (s *RoundStore) Begin(userPrompt string, modes models.EditModes) string {
	round := models.ConversationRound{
		ID:         uuid.NewString(),
		UserPrompt: userPrompt,
		EditModes:  modes,
		CreatedAt:  time.Now(),
	}
	s.rounds = append(s.rounds, round)
	return round.ID
}

// Rounds returns the round history in creation order.
func (s *RoundStore) Rounds() []models.ConversationRound {
	return s.rounds
}

func (s *RoundStore) active() *models.ConversationRound {
	if len(s.rounds) == 0 {
		return nil
	}
	return &s.rounds[len(s.rounds)-1]
}

// Consumer folds a run's event sequence into the active round of a
// RoundStore. Event processing is strictly sequential in arrival order.
type Consumer struct {
	store *RoundStore

	// running concatenation per assistant message id, so chunk folding
	// is a pure function of the chunk sequence
	buffers map[string]string

	draft     models.ComponentDraft
	done      bool
	succeeded bool
}

func NewConsumer(store *RoundStore, initial models.ComponentDraft) *Consumer {
	return &Consumer{
		store:   store,
		buffers: make(map[string]string),
		draft:   initial,
	}
}

// Draft is the caller-visible component state, updated only by
// agent_complete.
func (c *Consumer) Draft() models.ComponentDraft {
	return c.draft
}

// Done reports whether a terminal event has been consumed; Succeeded is
// only meaningful once Done.
func (c *Consumer) Done() bool      { return c.done }
func (c *Consumer) Succeeded() bool { return c.succeeded }

// Apply folds one event into the active round. Existing messages are
// never removed or reordered; every event either appends or rewrites the
// content of the message it names.
func (c *Consumer) Apply(evt wire.Event) error {
	round := c.store.active()
	if round == nil {
		return fmt.Errorf("no active round")
	}
	if c.done {
		return fmt.Errorf("event %s after terminal event", evt.Type)
	}

	switch evt.Type {
	case wire.EventMessageStart:
		round.Messages = append(round.Messages, models.AgentMessage{
			ID:        evt.MessageStart.MessageID,
			Kind:      models.KindAssistantText,
			CreatedAt: time.Now(),
		})

	case wire.EventMessageChunk:
		id := evt.MessageChunk.MessageID
		c.buffers[id] += evt.MessageChunk.Delta
		msg := findMessage(round, id)
		if msg == nil {
			return fmt.Errorf("message_chunk for unknown message %s", id)
		}
		msg.Content = c.buffers[id]

	case wire.EventMessageComplete:
		msg := findMessage(round, evt.MessageComplete.MessageID)
		if msg == nil {
			return fmt.Errorf("message_complete for unknown message %s", evt.MessageComplete.MessageID)
		}
		msg.Content = evt.MessageComplete.Content

	case wire.EventToolCall:
		round.Messages = append(round.Messages, models.AgentMessage{
			ID:        uuid.NewString(),
			Kind:      models.KindToolCall,
			Content:   string(evt.ToolCall.Args),
			CreatedAt: time.Now(),
			Metadata: map[string]string{
				"toolName":   evt.ToolCall.ToolName,
				"toolCallId": evt.ToolCall.ID,
			},
		})

	case wire.EventToolResult:
		// Correlated to its tool_call by log proximity; the shared id in
		// metadata is advisory.
		round.Messages = append(round.Messages, models.AgentMessage{
			ID:        uuid.NewString(),
			Kind:      models.KindToolResult,
			Content:   evt.ToolResult.Result,
			CreatedAt: time.Now(),
			Metadata: map[string]string{
				"toolName":   evt.ToolResult.ToolName,
				"toolCallId": evt.ToolResult.ID,
				"success":    strconv.FormatBool(evt.ToolResult.Success),
			},
		})

	case wire.EventAgentComplete:
		c.draft = evt.AgentComplete.UpdatedState
		c.done = true
		c.succeeded = evt.AgentComplete.Success

	case wire.EventError:
		round.Messages = append(round.Messages, models.AgentMessage{
			ID:        uuid.NewString(),
			Kind:      models.KindError,
			Content:   evt.Error.Message,
			CreatedAt: time.Now(),
		})
		c.done = true
		c.succeeded = false

	default:
		return fmt.Errorf("unknown event type %q", evt.Type)
	}
	return nil
}

func findMessage(round *models.ConversationRound, id string) *models.AgentMessage {
	for i := range round.Messages {
		if round.Messages[i].ID == id {
			return &round.Messages[i]
		}
	}
	return nil
}
