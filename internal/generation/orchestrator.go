package generation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/Conceptual-Machines/journey-api/internal/contract"
	"github.com/Conceptual-Machines/journey-api/internal/llm"
	"github.com/Conceptual-Machines/journey-api/internal/logger"
	"github.com/Conceptual-Machines/journey-api/internal/metrics"
	"github.com/Conceptual-Machines/journey-api/internal/observability"
	"github.com/Conceptual-Machines/journey-api/internal/race"
	"github.com/Conceptual-Machines/journey-api/internal/validation"
	"github.com/getsentry/sentry-go"
)

// ProviderSource hands out a provider for a provider name, model and credential
type ProviderSource interface {
	GetProvider(ctx context.Context, providerName, model, apiKey string) (llm.Provider, error)
}

// CredentialFunc returns the API key for a provider, or "" when absent.
// It is consulted on every call.
type CredentialFunc func(provider string) string

// Options are the per-deployment model settings
type Options struct {
	Provider     string
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int64
	Timeout      time.Duration
}

// Result is one successful generation. Records already carry the sibling field.
type Result struct {
	Records    []validation.Record
	Sibling    string
	HasSibling bool
	Task       string
	Model      string
	Usage      llm.Usage
	Duration   time.Duration
}

// Orchestrator runs the single-attempt generation pipeline
type Orchestrator struct {
	providers  ProviderSource
	credential CredentialFunc
	opts       Options
	recorder   metrics.Recorder
	langfuse   *observability.LangfuseClient
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithRecorder sets the outcome recorder
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLangfuse enables Langfuse tracing
func WithLangfuse(c *observability.LangfuseClient) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.langfuse = c
		}
	}
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(providers ProviderSource, credential CredentialFunc, opts Options, options ...Option) *Orchestrator {
	o := &Orchestrator{
		providers:  providers,
		credential: credential,
		opts:       opts,
		recorder:   metrics.Nop{},
		langfuse:   observability.Disabled(),
	}
	for _, apply := range options {
		apply(o)
	}
	return o
}

// Generate turns a prompt into validated records for c. Failures are always *Error.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, c *contract.GenerationContract) (*Result, error) {
	start := time.Now()

	span := sentry.StartSpan(ctx, "generation.generate")
	span.SetTag("task", c.TaskName())
	defer span.Finish()
	ctx = span.Context()

	trace := o.langfuse.StartTrace(ctx, c.TaskName(), map[string]interface{}{
		"function": c.FunctionName(),
	})
	defer trace.Finish()
	gen := trace.Generation(c.FunctionName(), map[string]interface{}{"task": c.TaskName()})
	defer gen.Finish()

	result, usage, err := o.generate(ctx, strings.TrimSpace(prompt), c, gen)
	duration := time.Since(start)

	outcome := metrics.Outcome{
		Task:         c.TaskName(),
		Kind:         metrics.KindOK,
		Model:        o.opts.Model,
		Duration:     duration,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  usage.TotalTokens,
	}

	if err != nil {
		genErr := Classify(err)
		outcome.Kind = string(genErr.Kind)
		o.recorder.RecordGeneration(ctx, outcome)
		gen.Fail(string(genErr.Kind), genErr.Message)

		fields := logger.Fields{
			"task":        c.TaskName(),
			"kind":        string(genErr.Kind),
			"model":       o.opts.Model,
			"duration_ms": duration.Milliseconds(),
		}
		if genErr.HTTPStatus >= 500 {
			logger.Error("Generation failed", genErr, fields)
		} else {
			logger.Warn("Generation rejected", fields)
		}
		return nil, genErr
	}

	result.Duration = duration
	o.recorder.RecordGeneration(ctx, outcome)
	logger.Info("Generation completed", logger.Fields{
		"task":         c.TaskName(),
		"model":        result.Model,
		"records":      len(result.Records),
		"duration_ms":  duration.Milliseconds(),
		"total_tokens": usage.TotalTokens,
	})
	return result, nil
}

// Ready reports a config_missing *Error when the provider credential is
// absent. Handlers call it before reading the request body.
func (o *Orchestrator) Ready() error {
	if _, _, err := o.resolveCredential(); err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) resolveCredential() (string, string, *Error) {
	providerName := llm.ResolveProviderName(o.opts.Provider, o.opts.Model)
	apiKey := ""
	if o.credential != nil {
		apiKey = o.credential(providerName)
	}
	if apiKey == "" {
		return providerName, "", NewError(KindConfigMissing, nil).
			WithDetails(strings.ToUpper(providerName) + "_API_KEY is not set")
	}
	return providerName, apiKey, nil
}

func (o *Orchestrator) generate(
	ctx context.Context,
	prompt string,
	c *contract.GenerationContract,
	gen *observability.Generation,
) (*Result, llm.Usage, error) {
	var usage llm.Usage

	// A missing credential wins over an invalid prompt
	providerName, apiKey, credErr := o.resolveCredential()
	if credErr != nil {
		return nil, usage, credErr
	}

	if prompt == "" {
		return nil, usage, NewError(KindBadRequest, nil)
	}

	provider, err := o.providers.GetProvider(ctx, providerName, o.opts.Model, apiKey)
	if err != nil {
		return nil, usage, NewError(KindUpstreamError, err).
			WithDetails("could not create the " + providerName + " client")
	}

	request := &llm.InvocationRequest{
		Model:        o.opts.Model,
		Prompt:       prompt,
		SystemPrompt: o.opts.SystemPrompt,
		Temperature:  o.opts.Temperature,
		MaxTokens:    o.opts.MaxTokens,
		Tool: llm.ToolSpec{
			Name:        c.FunctionName(),
			Description: c.Description(),
			Parameters:  c.OutputSchema(),
		},
	}

	resp, err := race.Run(ctx, o.opts.Timeout, func(ctx context.Context) (*llm.InvocationResponse, error) {
		return provider.Invoke(ctx, request)
	})
	if err != nil {
		return nil, usage, err
	}
	if resp == nil {
		return nil, usage, llm.ErrNoStructuredCall
	}
	usage = resp.Usage
	model := resp.Model
	if model == "" {
		model = o.opts.Model
	}
	gen.LogInvocation(model, prompt, resp.Arguments, usage)

	payload, err := decodeArguments(resp.Arguments)
	if err != nil {
		return nil, usage, NewError(KindInvalidResponse, err)
	}

	validated, err := validation.Validate(payload, c)
	if err != nil {
		return nil, usage, err
	}
	if len(validated.Records) == 0 {
		return nil, usage, NewError(KindEmptyResult, nil)
	}

	return &Result{
		Records:    attachSibling(validated, c),
		Sibling:    validated.Sibling,
		HasSibling: validated.HasSibling,
		Task:       c.TaskName(),
		Model:      model,
		Usage:      usage,
	}, usage, nil
}

// decodeArguments parses exactly one JSON value, keeping numbers as json.Number
func decodeArguments(arguments string) (any, error) {
	if strings.TrimSpace(arguments) == "" {
		return nil, llm.ErrNoStructuredCall
	}
	dec := json.NewDecoder(strings.NewReader(arguments))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after structured arguments")
	}
	return payload, nil
}

// attachSibling copies the sibling scalar onto every record without
// touching the validated maps
func attachSibling(v *validation.Validated, c *contract.GenerationContract) []validation.Record {
	records := make([]validation.Record, len(v.Records))
	for i, rec := range v.Records {
		out := make(validation.Record, len(rec)+1)
		for k, val := range rec {
			out[k] = val
		}
		if v.HasSibling {
			out[c.SiblingField()] = v.Sibling
		}
		records[i] = out
	}
	return records
}
