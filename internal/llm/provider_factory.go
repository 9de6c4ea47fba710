package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go/option"
)

const (
	// ProviderOpenAI selects the Chat Completions backend
	ProviderOpenAI = providerNameOpenAI
	// ProviderGemini selects the Gemini backend
	ProviderGemini = providerNameGemini
)

// ProviderFactory creates providers based on model name or explicit provider choice.
// Providers are built lazily and cached one per provider name; a rotated key
// replaces the cached client on the next request.
type ProviderFactory struct {
	mu         sync.Mutex
	providers  map[string]cachedProvider
	openaiOpts []option.RequestOption
}

type cachedProvider struct {
	apiKey   string
	provider Provider
}

// NewProviderFactory creates a new provider factory.
// openaiOpts are appended to every OpenAI client it builds.
func NewProviderFactory(openaiOpts ...option.RequestOption) *ProviderFactory {
	return &ProviderFactory{
		providers:  make(map[string]cachedProvider),
		openaiOpts: openaiOpts,
	}
}

// GetProvider returns the appropriate provider for the given provider name or model.
// An empty providerName infers the provider from the model prefix.
func (f *ProviderFactory) GetProvider(ctx context.Context, providerName, model, apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key not configured", ResolveProviderName(providerName, model))
	}

	name := ResolveProviderName(providerName, model)

	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.providers[name]; ok && cached.apiKey == apiKey {
		return cached.provider, nil
	}

	var (
		p   Provider
		err error
	)
	switch name {
	case ProviderOpenAI:
		p = NewOpenAIProvider(apiKey, f.openaiOpts...)
	case ProviderGemini:
		p, err = NewGeminiProvider(ctx, apiKey)
	default:
		return nil, fmt.Errorf("unknown provider: %s (allowed: openai, gemini)", name)
	}
	if err != nil {
		return nil, err
	}

	f.providers[name] = cachedProvider{apiKey: apiKey, provider: p}
	return p, nil
}

// ResolveProviderName prefers the explicit name and otherwise infers from the model
func ResolveProviderName(providerName, model string) string {
	if providerName != "" {
		return strings.ToLower(providerName)
	}

	modelLower := strings.ToLower(model)
	if strings.HasPrefix(modelLower, "gemini-") {
		return ProviderGemini
	}

	// GPT models and unknown models use OpenAI
	return ProviderOpenAI
}
