package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"atelier/internal/capability"
	"atelier/internal/models"
)

type fakeTranscripts struct {
	text string
	meta models.ConversationMeta
	err  error
}

func (f *fakeTranscripts) Transcript(_ context.Context, _ string) (string, models.ConversationMeta, error) {
	return f.text, f.meta, f.err
}

type fakeTester struct {
	out string
	err error

	gotKind  string
	gotDraft models.ComponentDraft
}

func (f *fakeTester) Test(_ context.Context, kind string, draft models.ComponentDraft, _ string) (string, error) {
	f.gotKind = kind
	f.gotDraft = draft
	return f.out, f.err
}

func newTestExecutor(draft *models.ComponentDraft, transcripts *fakeTranscripts, tester Tester) *Executor {
	if transcripts == nil {
		transcripts = &fakeTranscripts{}
	}
	return New(draft, "conv-1", transcripts, tester, nil)
}

func TestEditPrompt(t *testing.T) {
	draft := models.ComponentDraft{Prompt: "old"}
	exec := newTestExecutor(&draft, nil, nil)

	res := exec.Execute(context.Background(), capability.ToolEditPrompt, map[string]interface{}{
		"newPrompt": "new prompt",
		"reasoning": "user asked",
	})
	if !res.Success {
		t.Fatalf("edit_prompt failed: %s", res.Content)
	}
	if draft.Prompt != "new prompt" {
		t.Errorf("draft.Prompt = %q, want %q", draft.Prompt, "new prompt")
	}
}

func TestEditPromptRejectsMissingArgument(t *testing.T) {
	draft := models.ComponentDraft{Prompt: "old"}
	exec := newTestExecutor(&draft, nil, nil)

	res := exec.Execute(context.Background(), capability.ToolEditPrompt, map[string]interface{}{})
	if res.Success {
		t.Fatal("expected failure for missing newPrompt")
	}
	if draft.Prompt != "old" {
		t.Errorf("draft.Prompt = %q, want unchanged", draft.Prompt)
	}
}

func TestEditStructuredOutputValidatesJSON(t *testing.T) {
	draft := models.ComponentDraft{OutputSchema: "{}"}
	exec := newTestExecutor(&draft, nil, nil)

	res := exec.Execute(context.Background(), capability.ToolEditStructuredOutput, map[string]interface{}{
		"newSchema": `{not json`,
		"reasoning": "broken",
	})
	if res.Success {
		t.Fatal("expected failure for invalid JSON schema")
	}
	if draft.OutputSchema != "{}" {
		t.Errorf("draft.OutputSchema = %q, want unchanged", draft.OutputSchema)
	}

	res = exec.Execute(context.Background(), capability.ToolEditStructuredOutput, map[string]interface{}{
		"newSchema": `{"type":"object"}`,
		"reasoning": "valid",
	})
	if !res.Success {
		t.Fatalf("valid schema rejected: %s", res.Content)
	}
	if draft.OutputSchema != `{"type":"object"}` {
		t.Errorf("draft.OutputSchema = %q, want new schema", draft.OutputSchema)
	}
}

func TestEditUICode(t *testing.T) {
	draft := models.ComponentDraft{}
	exec := newTestExecutor(&draft, nil, nil)

	res := exec.Execute(context.Background(), capability.ToolEditUICode, map[string]interface{}{
		"newCode":   "<div>hi</div>",
		"reasoning": "new layout",
	})
	if !res.Success {
		t.Fatalf("edit_ui_code failed: %s", res.Content)
	}
	if draft.UICode != "<div>hi</div>" {
		t.Errorf("draft.UICode = %q", draft.UICode)
	}
}

func TestReadCurrentComponent(t *testing.T) {
	draft := models.ComponentDraft{Prompt: "p", OutputSchema: "s", UICode: "u"}
	exec := newTestExecutor(&draft, nil, nil)

	res := exec.Execute(context.Background(), capability.ToolReadCurrentComponent, map[string]interface{}{})
	if !res.Success {
		t.Fatalf("read failed: %s", res.Content)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(res.Content), &got); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if got["prompt"] != "p" || got["outputSchema"] != "s" || got["uiCode"] != "u" {
		t.Errorf("read result = %v", got)
	}
}

func TestGetConversationTranscriptBounds(t *testing.T) {
	full := strings.Repeat("x", 100)
	draft := models.ComponentDraft{}
	exec := newTestExecutor(&draft, &fakeTranscripts{text: full}, nil)

	res := exec.Execute(context.Background(), capability.ToolGetTranscript, map[string]interface{}{
		"maxChars": float64(10),
	})
	if !res.Success {
		t.Fatalf("transcript fetch failed: %s", res.Content)
	}
	var slice struct {
		Transcript         string `json:"transcript"`
		TotalCharacters    int    `json:"totalCharacters"`
		ReturnedCharacters int    `json:"returnedCharacters"`
		PercentageFetched  string `json:"percentageFetched"`
		Truncated          bool   `json:"truncated"`
	}
	if err := json.Unmarshal([]byte(res.Content), &slice); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if slice.ReturnedCharacters != 10 || slice.TotalCharacters != 100 {
		t.Errorf("slice = %+v", slice)
	}
	if slice.PercentageFetched != "10%" {
		t.Errorf("PercentageFetched = %q, want 10%%", slice.PercentageFetched)
	}
	if !slice.Truncated {
		t.Error("expected Truncated")
	}
}

func TestGetConversationTranscriptError(t *testing.T) {
	draft := models.ComponentDraft{}
	exec := newTestExecutor(&draft, &fakeTranscripts{err: fmt.Errorf("no such conversation")}, nil)

	res := exec.Execute(context.Background(), capability.ToolGetTranscript, map[string]interface{}{})
	if res.Success {
		t.Fatal("expected failure when transcript store errors")
	}
	if !strings.Contains(res.Content, "no such conversation") {
		t.Errorf("failure content %q should carry the cause", res.Content)
	}
}

func TestTestComponent(t *testing.T) {
	draft := models.ComponentDraft{Prompt: "p"}
	tester := &fakeTester{out: `{"summary":"ok"}`}
	exec := newTestExecutor(&draft, nil, tester)

	res := exec.Execute(context.Background(), capability.ToolTestComponent, map[string]interface{}{
		"testKind": "output",
	})
	if !res.Success {
		t.Fatalf("test_component failed: %s", res.Content)
	}
	if res.Content != `{"summary":"ok"}` {
		t.Errorf("result = %q", res.Content)
	}
	if tester.gotKind != "output" {
		t.Errorf("tester got kind %q, want output", tester.gotKind)
	}
	if tester.gotDraft.Prompt != "p" {
		t.Errorf("tester got draft %+v", tester.gotDraft)
	}
}

func TestTestComponentWithoutTester(t *testing.T) {
	draft := models.ComponentDraft{}
	exec := newTestExecutor(&draft, nil, nil)

	res := exec.Execute(context.Background(), capability.ToolTestComponent, map[string]interface{}{})
	if res.Success {
		t.Fatal("expected failure when no tester is wired")
	}
}

func TestUnknownTool(t *testing.T) {
	draft := models.ComponentDraft{}
	exec := newTestExecutor(&draft, nil, nil)

	res := exec.Execute(context.Background(), "delete_everything", map[string]interface{}{})
	if res.Success {
		t.Fatal("expected failure for unknown tool")
	}
	if !strings.Contains(res.Content, "delete_everything") {
		t.Errorf("failure content %q should name the tool", res.Content)
	}
}

func TestSummary(t *testing.T) {
	cases := []struct {
		name string
		args map[string]interface{}
		res  Result
		want string
	}{
		{capability.ToolReadCurrentComponent, nil, Result{Success: true}, "READ component"},
		{capability.ToolGetTranscript, nil, Result{Success: true}, "FETCH transcript"},
		{capability.ToolTestComponent, map[string]interface{}{"testKind": "render"}, Result{Success: true}, "TEST render"},
		{capability.ToolTestComponent, nil, Result{Success: true}, "TEST default"},
		{capability.ToolEditPrompt, nil, Result{Success: true}, "EDIT prompt"},
		{capability.ToolEditPrompt, nil, Result{Success: false}, "EDIT prompt (failed)"},
		{capability.ToolEditStructuredOutput, nil, Result{Success: false}, "EDIT schema (failed)"},
		{capability.ToolEditUICode, nil, Result{Success: true}, "EDIT ui code"},
	}
	for _, tc := range cases {
		if got := Summary(tc.name, tc.args, tc.res); got != tc.want {
			t.Errorf("Summary(%s) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
