package ai

import "sort"

// ModelInfo is the metadata used to warn about oversized prompts.
type ModelInfo struct {
	Name          string
	ContextTokens int // approximate context window
}

var models = map[string]ModelInfo{
	// Common local (Ollama) tags
	"mistral":               {Name: "mistral", ContextTokens: 8192},
	"mistral:latest":        {Name: "mistral:latest", ContextTokens: 8192},
	"mistral:7b-instruct":   {Name: "mistral:7b-instruct", ContextTokens: 8192},
	"mistral-nemo:latest":   {Name: "mistral-nemo:latest", ContextTokens: 8192},
	"llama3:latest":         {Name: "llama3:latest", ContextTokens: 8192},
	"llama3.1:8b-instruct":  {Name: "llama3.1:8b-instruct", ContextTokens: 8192},
	"phi3:mini-4k-instruct": {Name: "phi3:mini-4k-instruct", ContextTokens: 4096},
	// Hosted
	"gpt-4o-mini":                      {Name: "gpt-4o-mini", ContextTokens: 128000},
	"gpt-4o":                           {Name: "gpt-4o", ContextTokens: 128000},
	"openai/gpt-4o-mini":               {Name: "openai/gpt-4o-mini", ContextTokens: 128000},
	"anthropic/claude-3.5-sonnet":      {Name: "anthropic/claude-3.5-sonnet", ContextTokens: 200000},
	"google/gemini-1.5-flash":          {Name: "google/gemini-1.5-flash", ContextTokens: 1000000},
	"meta-llama/llama-3.1-8b-instruct": {Name: "meta-llama/llama-3.1-8b-instruct", ContextTokens: 131072},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// defaultModels is the model used per provider when none is configured.
var defaultModels = map[string]string{
	ProviderOllama:     "mistral",
	ProviderOpenRouter: "openai/gpt-4o-mini",
	ProviderOpenAI:     "gpt-4o-mini",
}

// DefaultModel returns the default model for provider, or "" when unknown.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// Models lists the known models sorted by name.
func Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, mi := range models {
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
