package agent

import (
	"context"
	"fmt"

	"atelier/internal/models"
	"atelier/internal/transcript"

	"github.com/openai/openai-go/v3"
)

// ComponentTester runs a draft component against its grounding
// conversation with a single non-streaming model call, so the agent can
// see what the component would actually produce.
type ComponentTester struct {
	model       ModelClient
	transcripts transcript.Store
}

func NewComponentTester(model ModelClient, transcripts transcript.Store) *ComponentTester {
	return &ComponentTester{model: model, transcripts: transcripts}
}

func (t *ComponentTester) Test(ctx context.Context, kind string, draft models.ComponentDraft, conversationID string) (string, error) {
	full, _, err := t.transcripts.Transcript(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("test component: %w", err)
	}
	bounded := transcript.Bound(full, transcript.DefaultMaxChars)

	system := draft.Prompt
	if kind != "render" && draft.OutputSchema != "" {
		system = fmt.Sprintf("%s\n\nRespond with JSON matching this schema:\n%s", draft.Prompt, draft.OutputSchema)
	}

	out, err := t.model.Complete(ctx, ModelRequest{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(bounded.Text),
		},
	})
	if err != nil {
		return "", fmt.Errorf("test component: %w", err)
	}
	return out, nil
}
