package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider defines the interface for LLM providers
// Every provider MUST force exactly one structured call matching the requested tool
type Provider interface {
	// Invoke sends the prompt with a single required tool and returns the
	// tool's JSON argument payload
	Invoke(ctx context.Context, request *InvocationRequest) (*InvocationResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// InvocationRequest contains all parameters needed for one structured call
type InvocationRequest struct {
	Model        string
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int64
	// Tool the model is required to call - REQUIRED
	Tool ToolSpec
}

// ToolSpec describes the single function the model must call
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema object
}

// InvocationResponse carries the extracted structured payload
type InvocationResponse struct {
	Arguments    string `json:"-"` // JSON-encoded tool arguments, not yet decoded
	FunctionName string `json:"function_name"`
	Model        string `json:"model"`
	Usage        Usage  `json:"usage"`
}

// Usage holds token counts reported by the provider
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// ErrNoStructuredCall means the model answered without calling the tool.
var ErrNoStructuredCall = errors.New("model response contained no structured call")

// UpstreamError wraps a provider-side failure (auth, quota, outage, transport).
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func validateRequest(request *InvocationRequest) error {
	if request == nil {
		return errors.New("invocation request is nil")
	}
	if request.Tool.Name == "" {
		return errors.New("invocation request has no tool name")
	}
	return nil
}
