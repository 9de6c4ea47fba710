package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/journey-api/internal/logger"
	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
	geminiUserRole     = "user"
)

// GeminiProvider implements the Provider interface using Gemini function calling
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// Invoke forces a single function call and returns its arguments re-encoded as JSON
func (p *GeminiProvider) Invoke(ctx context.Context, request *InvocationRequest) (*InvocationResponse, error) {
	if err := validateRequest(request); err != nil {
		return nil, err
	}
	if p.client == nil {
		return nil, errors.New("gemini client not initialized")
	}

	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, "gemini.invoke")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameGemini)
	transaction.SetTag("tool", request.Tool.Name)

	contents := p.buildContents(request)
	config := p.buildConfig(request)

	logger.Debug("Gemini outbound prompt", logger.Fields{
		"model":  request.Model,
		"tool":   request.Tool.Name,
		"prompt": truncate(request.Prompt, maxPromptLogChars),
	})

	span := transaction.StartChild("gemini.api_call")
	result, err := p.client.Models.GenerateContent(ctx, request.Model, contents, config)
	apiDuration := time.Since(startTime)
	span.Finish()

	if err != nil {
		transaction.SetTag("success", "false")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("Gemini request failed", logger.Fields{
			"model":       request.Model,
			"duration_ms": apiDuration.Milliseconds(),
			"error":       err.Error(),
		})
		return nil, wrapGeminiError(err)
	}

	arguments, functionName, err := extractFunctionCall(result, request.Tool.Name)
	if err != nil {
		transaction.SetTag("success", "false")
		logger.Warn("Gemini response had no structured call", logger.Fields{
			"model": request.Model,
			"tool":  request.Tool.Name,
		})
		return nil, err
	}

	logger.Debug("Gemini inbound arguments", logger.Fields{
		"model":       request.Model,
		"tool":        functionName,
		"duration_ms": apiDuration.Milliseconds(),
		"arguments":   truncate(arguments, maxArgumentsLogChars),
	})

	response := &InvocationResponse{
		Arguments:    arguments,
		FunctionName: functionName,
		Model:        request.Model,
	}
	if result.UsageMetadata != nil {
		response.Usage = Usage{
			InputTokens:  int64(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int64(result.UsageMetadata.TotalTokenCount),
		}
	}

	transaction.SetTag("success", "true")
	return response, nil
}

// buildContents converts the prompt to Gemini Content format
func (p *GeminiProvider) buildContents(request *InvocationRequest) []*genai.Content {
	return []*genai.Content{{
		Role:  geminiUserRole,
		Parts: []*genai.Part{{Text: request.Prompt}},
	}}
}

// buildConfig declares the single function and forces the model to call it
func (p *GeminiProvider) buildConfig(request *InvocationRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:                 request.Tool.Name,
				Description:          request.Tool.Description,
				ParametersJsonSchema: request.Tool.Parameters,
			}},
		}},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode:                 genai.FunctionCallingConfigModeAny,
				AllowedFunctionNames: []string{request.Tool.Name},
			},
		},
	}
	if request.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: request.SystemPrompt}},
		}
	}
	if request.Temperature > 0 {
		temperature := float32(request.Temperature)
		config.Temperature = &temperature
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}
	return config
}

// extractFunctionCall returns the arguments of the call to toolName re-encoded as JSON
func extractFunctionCall(result *genai.GenerateContentResponse, toolName string) (string, string, error) {
	if result == nil {
		return "", "", ErrNoStructuredCall
	}

	for _, call := range result.FunctionCalls() {
		if call == nil || call.Name != toolName || call.Args == nil {
			continue
		}
		raw, err := json.Marshal(call.Args)
		if err != nil {
			return "", "", fmt.Errorf("failed to encode gemini function args: %w", err)
		}
		return string(raw), call.Name, nil
	}
	return "", "", ErrNoStructuredCall
}

func wrapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Provider: providerNameGemini, StatusCode: apiErr.Code, Err: apiErr}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &UpstreamError{Provider: providerNameGemini, StatusCode: apiErrPtr.Code, Err: apiErrPtr}
	}
	return &UpstreamError{Provider: providerNameGemini, Err: err}
}
