package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const journeyArguments = `{"journeySteps":[{"step":1,"title":"Awareness","description":"Sees an ad"}],"responseTitle":"Trip"}`

func journeyTool() ToolSpec {
	return ToolSpec{
		Name:        "createJourneySteps",
		Description: "Create customer journey steps",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"journeySteps": map[string]any{"type": "array"},
			},
		},
	}
}

func chatCompletionBody(message map[string]any, finishReason string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": finishReason,
			"logprobs":      nil,
			"message":       message,
		}},
		"usage": map[string]any{
			"prompt_tokens":     12,
			"completion_tokens": 30,
			"total_tokens":      42,
		},
	}
}

// newFakeOpenAI serves /chat/completions with the given status and body and
// records the last request body it received.
func newFakeOpenAI(t *testing.T, status int, body any, lastRequest *map[string]any) *OpenAIProvider {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if lastRequest != nil {
			raw, err := io.ReadAll(r.Body)
			if err == nil {
				_ = json.Unmarshal(raw, lastRequest)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)

	return NewOpenAIProvider("test-key", option.WithBaseURL(server.URL+"/v1/"))
}

func TestNewOpenAIProvider(t *testing.T) {
	provider := NewOpenAIProvider("test-api-key")
	require.NotNil(t, provider)
	assert.Equal(t, "openai", provider.Name())
	assert.NotNil(t, provider.client)
}

func TestOpenAIProvider_BuildRequestParams(t *testing.T) {
	provider := NewOpenAIProvider("test-key")

	tests := []struct {
		name    string
		request *InvocationRequest
		checks  func(t *testing.T, params openai.ChatCompletionNewParams)
	}{
		{
			name: "forces the named tool",
			request: &InvocationRequest{
				Model:  "gpt-4",
				Prompt: "journey for a bike shop",
				Tool:   journeyTool(),
			},
			checks: func(t *testing.T, params openai.ChatCompletionNewParams) {
				t.Helper()
				assert.Equal(t, openai.ChatModel("gpt-4"), params.Model)
				require.Len(t, params.Tools, 1)
				assert.Equal(t, "createJourneySteps", params.Tools[0].Function.Name)
				require.NotNil(t, params.ToolChoice.OfChatCompletionNamedToolChoice)
				assert.Equal(t, "createJourneySteps", params.ToolChoice.OfChatCompletionNamedToolChoice.Function.Name)
				assert.Len(t, params.Messages, 1)
			},
		},
		{
			name: "system prompt is prepended",
			request: &InvocationRequest{
				Model:        "gpt-4",
				Prompt:       "pains for step 1",
				SystemPrompt: "You are a UX researcher",
				Tool:         journeyTool(),
			},
			checks: func(t *testing.T, params openai.ChatCompletionNewParams) {
				t.Helper()
				require.Len(t, params.Messages, 2)
				assert.NotNil(t, params.Messages[0].OfSystem)
				assert.NotNil(t, params.Messages[1].OfUser)
			},
		},
		{
			name: "sampling parameters are set when positive",
			request: &InvocationRequest{
				Model:       "gpt-4",
				Prompt:      "x",
				Temperature: 0.7,
				MaxTokens:   4000,
				Tool:        journeyTool(),
			},
			checks: func(t *testing.T, params openai.ChatCompletionNewParams) {
				t.Helper()
				assert.InDelta(t, 0.7, params.Temperature.Value, 1e-9)
				assert.Equal(t, int64(4000), params.MaxTokens.Value)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.checks(t, provider.buildRequestParams(tt.request))
		})
	}
}

func TestOpenAIProvider_Invoke_ToolCall(t *testing.T) {
	var sent map[string]any
	provider := newFakeOpenAI(t, http.StatusOK, chatCompletionBody(map[string]any{
		"role":    "assistant",
		"content": nil,
		"tool_calls": []any{map[string]any{
			"id":   "call_1",
			"type": "function",
			"function": map[string]any{
				"name":      "createJourneySteps",
				"arguments": journeyArguments,
			},
		}},
	}, "tool_calls"), &sent)

	resp, err := provider.Invoke(context.Background(), &InvocationRequest{
		Model:  "gpt-4",
		Prompt: "journey for a bike shop",
		Tool:   journeyTool(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, journeyArguments, resp.Arguments)
	assert.Equal(t, "createJourneySteps", resp.FunctionName)
	assert.Equal(t, int64(12), resp.Usage.InputTokens)
	assert.Equal(t, int64(30), resp.Usage.OutputTokens)
	assert.Equal(t, int64(42), resp.Usage.TotalTokens)

	require.NotNil(t, sent)
	assert.Equal(t, "gpt-4", sent["model"])
	assert.NotNil(t, sent["tool_choice"])
}

func TestOpenAIProvider_Invoke_PlainTextReply(t *testing.T) {
	provider := newFakeOpenAI(t, http.StatusOK, chatCompletionBody(map[string]any{
		"role":    "assistant",
		"content": "Here is your journey in prose.",
	}, "stop"), nil)

	_, err := provider.Invoke(context.Background(), &InvocationRequest{
		Model:  "gpt-4",
		Prompt: "journey",
		Tool:   journeyTool(),
	})
	assert.ErrorIs(t, err, ErrNoStructuredCall)
}

func TestOpenAIProvider_Invoke_WrongFunction(t *testing.T) {
	provider := newFakeOpenAI(t, http.StatusOK, chatCompletionBody(map[string]any{
		"role":    "assistant",
		"content": nil,
		"tool_calls": []any{map[string]any{
			"id":   "call_1",
			"type": "function",
			"function": map[string]any{
				"name":      "createPainPoints",
				"arguments": `{"painPoints":[]}`,
			},
		}},
	}, "tool_calls"), nil)

	_, err := provider.Invoke(context.Background(), &InvocationRequest{
		Model:  "gpt-4",
		Prompt: "journey",
		Tool:   journeyTool(),
	})
	assert.ErrorIs(t, err, ErrNoStructuredCall)
}

func TestOpenAIProvider_Invoke_UpstreamError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized},
		{name: "rate limited", status: http.StatusTooManyRequests},
		{name: "server error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeOpenAI(t, tt.status, map[string]any{
				"error": map[string]any{
					"message": "upstream says no",
					"type":    "test_error",
				},
			}, nil)

			_, err := provider.Invoke(context.Background(), &InvocationRequest{
				Model:  "gpt-4",
				Prompt: "journey",
				Tool:   journeyTool(),
			})
			require.Error(t, err)

			var upstream *UpstreamError
			require.True(t, errors.As(err, &upstream))
			assert.Equal(t, "openai", upstream.Provider)
			assert.Equal(t, tt.status, upstream.StatusCode)
		})
	}
}

func TestOpenAIProvider_Invoke_RejectsMissingTool(t *testing.T) {
	provider := NewOpenAIProvider("test-key")
	_, err := provider.Invoke(context.Background(), &InvocationRequest{Model: "gpt-4", Prompt: "x"})
	assert.Error(t, err)

	_, err = provider.Invoke(context.Background(), nil)
	assert.Error(t, err)
}

func TestExtractToolArguments(t *testing.T) {
	tests := []struct {
		name     string
		message  openai.ChatCompletionMessage
		wantArgs string
		wantName string
		wantErr  error
	}{
		{
			name: "prefers the requested tool",
			message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCall{
					{Function: openai.ChatCompletionMessageToolCallFunction{Name: "other", Arguments: `{"a":1}`}},
					{Function: openai.ChatCompletionMessageToolCallFunction{Name: "createJourneySteps", Arguments: `{"b":2}`}},
				},
			},
			wantArgs: `{"b":2}`,
			wantName: "createJourneySteps",
		},
		{
			name: "only other functions called",
			message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCall{
					{Function: openai.ChatCompletionMessageToolCallFunction{Name: "createJourneySteps"}},
					{Function: openai.ChatCompletionMessageToolCallFunction{Name: "other", Arguments: `{"a":1}`}},
				},
			},
			wantErr: ErrNoStructuredCall,
		},
		{
			name: "legacy function_call to another function",
			message: openai.ChatCompletionMessage{
				FunctionCall: openai.ChatCompletionMessageFunctionCall{Name: "other", Arguments: `{"c":3}`},
			},
			wantErr: ErrNoStructuredCall,
		},
		{
			name: "legacy function_call",
			message: openai.ChatCompletionMessage{
				FunctionCall: openai.ChatCompletionMessageFunctionCall{Name: "createJourneySteps", Arguments: `{"c":3}`},
			},
			wantArgs: `{"c":3}`,
			wantName: "createJourneySteps",
		},
		{
			name:    "no call at all",
			message: openai.ChatCompletionMessage{Content: "prose"},
			wantErr: ErrNoStructuredCall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{{Message: tt.message}}}
			args, name, err := extractToolArguments(resp, "createJourneySteps")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantArgs, args)
			assert.Equal(t, tt.wantName, name)
		})
	}

	_, _, err := extractToolArguments(&openai.ChatCompletion{}, "createJourneySteps")
	assert.ErrorIs(t, err, ErrNoStructuredCall)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
