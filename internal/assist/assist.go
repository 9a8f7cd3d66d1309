// Package assist turns natural-language selector prompts into regular
// expressions with an LLM.
//
// Rule programs may write a selector as {prompt}. Before a flow starts, the
// compiler hands each prompt to an Assistant, which asks the model for a
// pattern and replaces the prompt selector with an ordinary regex selector.
// The engine never sees prompts.
//
// Answers are cached per prompt, so a program that repeats a prompt asks
// the model once.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tmc/langchaingo/llms"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/vec"
)

// SystemPrompt instructs the model to answer with a bare pattern or the
// literal word Error.
const SystemPrompt = `You are the "Selector," a specialized engine dedicated solely to generating Regular Expressions.

YOUR INSTRUCTIONS:
1. Analyze the user's request to identify the specific text pattern, validation rule, or extraction logic required.
2. If the request is valid, output ONLY the raw Regular Expression string.
   - Do NOT use Markdown formatting (no backticks or code blocks).
   - Do NOT provide explanations, introductions, or conclusions.
3. If the request is unrelated to pattern matching (e.g., general knowledge questions, creative writing, or casual conversation), you must return exactly: "Error".

EXAMPLES:
User: "All the Bs at the end of a sequence, but only if there are more than 3."
You: B{4,}$

User: "Find any pattern that matches ABB where A stands for any character and BB stands the sequence of two of the same characters."
You: .(.)\1

User: "What is the capital of France?"
You: Error`

// refusal is the model's answer for prompts that are not about patterns.
const refusal = "Error"

// DefaultCacheSize bounds the per-assistant answer cache.
const DefaultCacheSize = 128

// ErrRefused is returned when the model declines a prompt.
var ErrRefused = errors.New("selector prompt is not about pattern matching")

// PromptError reports a prompt the assistant could not turn into a pattern.
type PromptError struct {
	Prompt string
	Err    error
}

// Error implements the error interface.
func (e *PromptError) Error() string {
	return fmt.Sprintf("prompt %q: %v", e.Prompt, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PromptError) Unwrap() error { return e.Err }

// Assistant generates regex patterns from prompts.
//
// Thread-safety: Assistant is safe for concurrent use if the model is.
type Assistant struct {
	model       llms.Model
	cache       *lru.Cache[string, string]
	backend     vec.Backend
	temperature *float64
	seed        *int
	logger      *slog.Logger
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithTemperature sets the sampling temperature sent with every call.
func WithTemperature(t float64) Option {
	return func(a *Assistant) { a.temperature = &t }
}

// WithSeed sets the sampling seed sent with every call.
func WithSeed(seed int) Option {
	return func(a *Assistant) { a.seed = &seed }
}

// WithBackend sets the regex backend answers are compiled against. It must
// match the backend of the flow the resolved rules run in.
// Default: vec.BackendRE2, the engine default.
func WithBackend(b vec.Backend) Option {
	return func(a *Assistant) { a.backend = b }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) { a.logger = l }
}

// New creates an Assistant backed by model.
func New(model llms.Model, opts ...Option) (*Assistant, error) {
	if model == nil {
		return nil, errors.New("assist: model is required")
	}
	cache, err := lru.New[string, string](DefaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("assist: creating cache: %w", err)
	}
	a := &Assistant{
		model:   model,
		cache:   cache,
		backend: vec.BackendRE2,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Pattern asks the model for a pattern matching what prompt describes. The
// answer must compile for the assistant's backend; a compile failure is
// returned as a *vec.PatternCompileError inside a *PromptError.
func (a *Assistant) Pattern(ctx context.Context, prompt string) (string, error) {
	if p, ok := a.cache.Get(prompt); ok {
		return p, nil
	}

	var callOpts []llms.CallOption
	if a.temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(*a.temperature))
	}
	if a.seed != nil {
		callOpts = append(callOpts, llms.WithSeed(*a.seed))
	}

	resp, err := a.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, callOpts...)
	if err != nil {
		return "", &PromptError{Prompt: prompt, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &PromptError{Prompt: prompt, Err: errors.New("model returned no choices")}
	}

	answer := strings.TrimSpace(resp.Choices[0].Content)
	if answer == refusal {
		return "", &PromptError{Prompt: prompt, Err: ErrRefused}
	}
	if answer == "" {
		return "", &PromptError{Prompt: prompt, Err: errors.New("model returned an empty pattern")}
	}
	if err := vec.Compile(a.backend, answer); err != nil {
		return "", &PromptError{Prompt: prompt, Err: err}
	}

	a.logger.Debug("selector pattern generated", "prompt", prompt, "pattern", answer)
	a.cache.Add(prompt, answer)
	return answer, nil
}

// Resolve replaces a prompt selector with the regex selector the model
// generates for it. Other selectors are returned unchanged.
func (a *Assistant) Resolve(ctx context.Context, sel ir.Selector) (ir.Selector, error) {
	if sel.Kind != ir.SelectorPrompt {
		return sel, nil
	}
	pattern, err := a.Pattern(ctx, sel.Pattern)
	if err != nil {
		return ir.Selector{}, err
	}
	return ir.RegexSelector(pattern), nil
}

// ResolveAll resolves every selector in sels in place.
func (a *Assistant) ResolveAll(ctx context.Context, sels []ir.Selector) error {
	for i, s := range sels {
		r, err := a.Resolve(ctx, s)
		if err != nil {
			return err
		}
		sels[i] = r
	}
	return nil
}

// IsRefused returns true if err reports a prompt the model declined.
func IsRefused(err error) bool {
	return errors.Is(err, ErrRefused)
}
