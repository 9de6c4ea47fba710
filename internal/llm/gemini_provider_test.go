package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func geminiResponse(calls ...*genai.FunctionCall) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, 0, len(calls))
	for _, call := range calls {
		parts = append(parts, &genai.Part{FunctionCall: call})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func TestGeminiProvider_Name(t *testing.T) {
	provider := &GeminiProvider{client: nil}
	assert.Equal(t, "gemini", provider.Name())
}

func TestGeminiProvider_BuildConfig(t *testing.T) {
	provider := &GeminiProvider{client: nil}

	config := provider.buildConfig(&InvocationRequest{
		Model:        "gemini-2.5-flash",
		Prompt:       "journey",
		SystemPrompt: "You are a UX researcher",
		Temperature:  0.7,
		MaxTokens:    4000,
		Tool:         journeyTool(),
	})

	require.Len(t, config.Tools, 1)
	require.Len(t, config.Tools[0].FunctionDeclarations, 1)
	assert.Equal(t, "createJourneySteps", config.Tools[0].FunctionDeclarations[0].Name)
	assert.Equal(t, journeyTool().Parameters, config.Tools[0].FunctionDeclarations[0].ParametersJsonSchema)

	require.NotNil(t, config.ToolConfig)
	assert.Equal(t, genai.FunctionCallingConfigModeAny, config.ToolConfig.FunctionCallingConfig.Mode)
	assert.Equal(t, []string{"createJourneySteps"}, config.ToolConfig.FunctionCallingConfig.AllowedFunctionNames)

	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "You are a UX researcher", config.SystemInstruction.Parts[0].Text)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.7, *config.Temperature, 1e-6)
	assert.Equal(t, int32(4000), config.MaxOutputTokens)
}

func TestGeminiProvider_BuildContents(t *testing.T) {
	provider := &GeminiProvider{client: nil}
	contents := provider.buildContents(&InvocationRequest{Prompt: "hello"})
	require.Len(t, contents, 1)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "hello", contents[0].Parts[0].Text)
}

func TestExtractFunctionCall(t *testing.T) {
	tests := []struct {
		name     string
		response *genai.GenerateContentResponse
		wantArgs string
		wantName string
		wantErr  bool
	}{
		{
			name: "requested function",
			response: geminiResponse(
				&genai.FunctionCall{Name: "other", Args: map[string]any{"a": 1}},
				&genai.FunctionCall{Name: "createJourneySteps", Args: map[string]any{"responseTitle": "Trip"}},
			),
			wantArgs: `{"responseTitle":"Trip"}`,
			wantName: "createJourneySteps",
		},
		{
			name:     "only another function called",
			response: geminiResponse(&genai.FunctionCall{Name: "other", Args: map[string]any{"a": 1}}),
			wantErr:  true,
		},
		{
			name:     "no calls",
			response: geminiResponse(),
			wantErr:  true,
		},
		{
			name:     "nil response",
			response: nil,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, name, err := extractFunctionCall(tt.response, "createJourneySteps")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoStructuredCall)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantArgs, args)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestWrapGeminiError(t *testing.T) {
	err := wrapGeminiError(genai.APIError{Code: 429, Message: "quota", Status: "RESOURCE_EXHAUSTED"})
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, 429, upstream.StatusCode)
	assert.Equal(t, "gemini", upstream.Provider)

	err = wrapGeminiError(errors.New("dial tcp: refused"))
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, 0, upstream.StatusCode)
}
