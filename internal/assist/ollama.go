package assist

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
)

// DefaultOllamaModel is the model used when none is configured.
const DefaultOllamaModel = "llama3.1:latest"

// NewOllama creates an Assistant backed by a local Ollama server. An empty
// serverURL uses the client's default (OLLAMA_HOST or localhost).
func NewOllama(model, serverURL string, opts ...Option) (*Assistant, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	clientOpts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		clientOpts = append(clientOpts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("assist: creating ollama client: %w", err)
	}
	return New(llm, opts...)
}
