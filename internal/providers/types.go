// Package providers implements the provider client (C7): a thin,
// single-turn chat-completion client for each supported LLM backend,
// plus the fallback-chain iteration, allow-listing, rate limiting, and
// health checking that wraps them.
//
// This package replaces the teacher's much larger multi-turn agent
// provider client (tool calls, image content, streaming) with a
// narrower shape: aegish only ever needs one classification turn per
// command. The HTTP idioms are kept — a shared *http.Client,
// bearer/x-api-key auth, JSON decode into a response-shape struct, and
// retry-with-backoff around the request.
package providers

import "context"

// ClassifyRequest is a single classification turn: a system prompt
// describing the task and a user prompt carrying the command to judge.
type ClassifyRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
}

// ClassifyResponse is the raw text the model returned, plus the
// provider's own stop/finish reason — internal/llmparse needs both to
// classify an empty completion correctly.
type ClassifyResponse struct {
	Completion string
	StopReason string
}

// Provider is the minimal interface every backend implements.
type Provider interface {
	Name() string
	DefaultModel() string
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error)
}

// Descriptor names a provider/model pair as it appears in the
// configured model chain, e.g. "openai/gpt-4o-mini" or
// "gemini/gemini-3-flash-preview".
type Descriptor struct {
	Provider string
	Model    string
}

// String renders the descriptor back to its "provider/model" form.
func (d Descriptor) String() string {
	if d.Model == "" {
		return d.Provider
	}
	return d.Provider + "/" + d.Model
}

// ParseDescriptor splits a "provider/model" chain entry. Entries with no
// slash name a provider with no explicit model (the provider's own
// default is used).
func ParseDescriptor(entry string) Descriptor {
	for i := 0; i < len(entry); i++ {
		if entry[i] == '/' {
			return Descriptor{Provider: entry[:i], Model: entry[i+1:]}
		}
	}
	return Descriptor{Provider: entry}
}
