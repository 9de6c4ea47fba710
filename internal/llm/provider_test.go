package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamError(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := &UpstreamError{Provider: "openai", StatusCode: 429, Err: cause}

	assert.Contains(t, err.Error(), "status 429")
	assert.ErrorIs(t, err, cause)

	noStatus := &UpstreamError{Provider: "gemini", Err: cause}
	assert.NotContains(t, noStatus.Error(), "status")
}

func TestResolveProviderName(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		want     string
	}{
		{provider: "", model: "gpt-4", want: ProviderOpenAI},
		{provider: "", model: "gemini-2.5-flash", want: ProviderGemini},
		{provider: "", model: "some-new-model", want: ProviderOpenAI},
		{provider: "OpenAI", model: "gemini-2.5-flash", want: ProviderOpenAI},
		{provider: "gemini", model: "gpt-4", want: ProviderGemini},
	}

	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveProviderName(tt.provider, tt.model))
		})
	}
}

func TestProviderFactory_GetProvider(t *testing.T) {
	factory := NewProviderFactory()
	ctx := context.Background()

	_, err := factory.GetProvider(ctx, "", "gpt-4", "")
	assert.Error(t, err, "missing key must fail")

	_, err = factory.GetProvider(ctx, "anthropic", "claude", "key")
	assert.Error(t, err)

	first, err := factory.GetProvider(ctx, "", "gpt-4", "key-a")
	require.NoError(t, err)
	assert.Equal(t, "openai", first.Name())

	again, err := factory.GetProvider(ctx, "openai", "gpt-4", "key-a")
	require.NoError(t, err)
	assert.Same(t, first, again, "same provider and key reuse the cached client")

	rotated, err := factory.GetProvider(ctx, "openai", "gpt-4", "key-b")
	require.NoError(t, err)
	assert.NotSame(t, first, rotated)
}

func TestProviderFactory_RotatedKeyReplacesClient(t *testing.T) {
	factory := NewProviderFactory()
	ctx := context.Background()

	for _, key := range []string{"key-a", "key-b", "key-c", "key-d"} {
		_, err := factory.GetProvider(ctx, "openai", "gpt-4", key)
		require.NoError(t, err)
	}
	assert.Len(t, factory.providers, 1, "one cached client per provider")
	assert.Equal(t, "key-d", factory.providers[ProviderOpenAI].apiKey)

	current, err := factory.GetProvider(ctx, "openai", "gpt-4", "key-d")
	require.NoError(t, err)
	assert.Same(t, factory.providers[ProviderOpenAI].provider, current)

	old, err := factory.GetProvider(ctx, "openai", "gpt-4", "key-a")
	require.NoError(t, err)
	assert.NotSame(t, current, old, "a replaced key is rebuilt, not resurrected")
	assert.Len(t, factory.providers, 1)
}
