package llm

import (
	"context"
	"errors"
	"time"

	"github.com/Conceptual-Machines/journey-api/internal/logger"
	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// Provider name
	providerNameOpenAI = "openai"

	// Logging limits
	maxPromptLogChars    = 500
	maxArgumentsLogChars = 1000
)

// OpenAIProvider implements the Provider interface using the Chat Completions API
// with a single forced function tool
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
// SDK retries are disabled: a failed generation surfaces to the caller immediately.
func NewOpenAIProvider(apiKey string, opts ...option.RequestOption) *OpenAIProvider {
	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	client := openai.NewClient(clientOpts...)
	return &OpenAIProvider{
		client: &client,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Invoke sends the prompt with the forced tool and extracts the tool arguments
func (p *OpenAIProvider) Invoke(ctx context.Context, request *InvocationRequest) (*InvocationResponse, error) {
	if err := validateRequest(request); err != nil {
		return nil, err
	}

	startTime := time.Now()

	// Start Sentry transaction
	transaction := sentry.StartTransaction(ctx, "openai.invoke")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameOpenAI)
	transaction.SetTag("tool", request.Tool.Name)

	params := p.buildRequestParams(request)

	logger.Debug("OpenAI outbound prompt", logger.Fields{
		"model":  request.Model,
		"tool":   request.Tool.Name,
		"prompt": truncate(request.Prompt, maxPromptLogChars),
	})

	span := transaction.StartChild("openai.api_call")
	resp, err := p.client.Chat.Completions.New(ctx, params)
	apiDuration := time.Since(startTime)
	span.Finish()

	if err != nil {
		transaction.SetTag("success", "false")
		// Deadline and cancellation belong to the caller's race, not the provider
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("OpenAI request failed", logger.Fields{
			"model":       request.Model,
			"duration_ms": apiDuration.Milliseconds(),
			"error":       err.Error(),
		})
		return nil, p.wrapError(err)
	}

	arguments, functionName, err := extractToolArguments(resp, request.Tool.Name)
	if err != nil {
		transaction.SetTag("success", "false")
		logger.Warn("OpenAI response had no structured call", logger.Fields{
			"model":         request.Model,
			"tool":          request.Tool.Name,
			"finish_reason": firstFinishReason(resp),
		})
		return nil, err
	}

	logger.Debug("OpenAI inbound arguments", logger.Fields{
		"model":       resp.Model,
		"tool":        functionName,
		"duration_ms": apiDuration.Milliseconds(),
		"arguments":   truncate(arguments, maxArgumentsLogChars),
	})

	transaction.SetTag("success", "true")
	return &InvocationResponse{
		Arguments:    arguments,
		FunctionName: functionName,
		Model:        resp.Model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// buildRequestParams converts InvocationRequest to Chat Completions params
func (p *OpenAIProvider) buildRequestParams(request *InvocationRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if request.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(request.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(request.Prompt))

	tool := openai.FunctionDefinitionParam{
		Name:       request.Tool.Name,
		Parameters: openai.FunctionParameters(request.Tool.Parameters),
	}
	if request.Tool.Description != "" {
		tool.Description = openai.String(request.Tool.Description)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(request.Model),
		Messages: messages,
		Tools:    []openai.ChatCompletionToolParam{{Function: tool}},
		ToolChoice: openai.ChatCompletionToolChoiceOptionParamOfChatCompletionNamedToolChoice(
			openai.ChatCompletionNamedToolChoiceFunctionParam{Name: request.Tool.Name},
		),
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(request.MaxTokens)
	}
	return params
}

// extractToolArguments returns the arguments of the first call to toolName,
// checking tool_calls and then the deprecated function_call field. Calls to any
// other function do not count as a structured answer.
func extractToolArguments(resp *openai.ChatCompletion, toolName string) (string, string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", "", ErrNoStructuredCall
	}
	message := resp.Choices[0].Message

	for _, call := range message.ToolCalls {
		if call.Function.Name == toolName && call.Function.Arguments != "" {
			return call.Function.Arguments, call.Function.Name, nil
		}
	}

	if message.FunctionCall.Name == toolName && message.FunctionCall.Arguments != "" {
		return message.FunctionCall.Arguments, message.FunctionCall.Name, nil
	}
	return "", "", ErrNoStructuredCall
}

func (p *OpenAIProvider) wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &UpstreamError{
			Provider:   providerNameOpenAI,
			StatusCode: apiErr.StatusCode,
			Err:        apiErr,
		}
	}
	return &UpstreamError{Provider: providerNameOpenAI, Err: err}
}

func firstFinishReason(resp *openai.ChatCompletion) string {
	if resp == nil || len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].FinishReason
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
