package capability

import (
	"atelier/internal/models"

	"github.com/openai/openai-go/v3"
)

// Tool names offered to the model. The read-only set is always present;
// each edit tool appears only when its edit mode is enabled for the run.
const (
	ToolReadCurrentComponent = "read_current_component"
	ToolGetTranscript        = "get_conversation_transcript"
	ToolTestComponent        = "test_component"
	ToolEditPrompt           = "edit_prompt"
	ToolEditStructuredOutput = "edit_structured_output"
	ToolEditUICode           = "edit_ui_code"
)

var readOnlyTools = []openai.ChatCompletionToolUnionParam{
	openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
		Name:        ToolReadCurrentComponent,
		Description: openai.String("Read the component's current prompt, output schema and UI code"),
		Parameters: openai.FunctionParameters{
			"type":       "object",
			"properties": map[string]interface{}{},
			"required":   []string{},
		},
	}),
	openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
		Name:        ToolGetTranscript,
		Description: openai.String("Fetch a character-bounded prefix of the grounding conversation transcript"),
		Parameters: openai.FunctionParameters{
			"type": "object",
			"properties": map[string]interface{}{
				"maxChars": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum characters to return (default 5000)",
				},
			},
			"required": []string{},
		},
	}),
	openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
		Name:        ToolTestComponent,
		Description: openai.String("Run the component against the grounding conversation and return the result"),
		Parameters: openai.FunctionParameters{
			"type": "object",
			"properties": map[string]interface{}{
				"testKind": map[string]interface{}{
					"type":        "string",
					"description": "Which test to run (e.g. output, render)",
				},
			},
			"required": []string{},
		},
	}),
}

var editPromptTool = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
	Name:        ToolEditPrompt,
	Description: openai.String("Overwrite the component's prompt"),
	Parameters: openai.FunctionParameters{
		"type": "object",
		"properties": map[string]interface{}{
			"newPrompt": map[string]interface{}{"type": "string"},
			"reasoning": map[string]interface{}{"type": "string"},
		},
		"required": []string{"newPrompt", "reasoning"},
	},
})

var editStructuredOutputTool = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
	Name:        ToolEditStructuredOutput,
	Description: openai.String("Overwrite the component's JSON output schema (must be valid JSON)"),
	Parameters: openai.FunctionParameters{
		"type": "object",
		"properties": map[string]interface{}{
			"newSchema": map[string]interface{}{"type": "string"},
			"reasoning": map[string]interface{}{"type": "string"},
		},
		"required": []string{"newSchema", "reasoning"},
	},
})

var editUICodeTool = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
	Name:        ToolEditUICode,
	Description: openai.String("Overwrite the component's UI renderer code"),
	Parameters: openai.FunctionParameters{
		"type": "object",
		"properties": map[string]interface{}{
			"newCode":   map[string]interface{}{"type": "string"},
			"reasoning": map[string]interface{}{"type": "string"},
		},
		"required": []string{"newCode", "reasoning"},
	},
})

// Tools returns the tool definitions the model may invoke this run. A
// disabled edit mode means its tool is never offered, not rejected later.
func Tools(modes models.EditModes) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(readOnlyTools)+3)
	out = append(out, readOnlyTools...)
	if modes.Prompt {
		out = append(out, editPromptTool)
	}
	if modes.Data {
		out = append(out, editStructuredOutputTool)
	}
	if modes.UICode {
		out = append(out, editUICodeTool)
	}
	return out
}

// Names lists the offered tool names in definition order.
func Names(modes models.EditModes) []string {
	out := []string{ToolReadCurrentComponent, ToolGetTranscript, ToolTestComponent}
	if modes.Prompt {
		out = append(out, ToolEditPrompt)
	}
	if modes.Data {
		out = append(out, ToolEditStructuredOutput)
	}
	if modes.UICode {
		out = append(out, ToolEditUICode)
	}
	return out
}
