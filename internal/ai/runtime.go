package ai

import "context"

// Runtime is the text-generation capability: one prompt in, one text out.
// Implemented by the Ollama, OpenRouter and OpenAI-compatible clients.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderOllama     = "ollama"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)
