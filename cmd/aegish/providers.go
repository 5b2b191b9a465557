package main

import (
	"os"
	"strings"

	"github.com/aegish-sh/aegish/internal/config"
	"github.com/aegish-sh/aegish/internal/providers"
)

// openAICompatibleBases gives the known base URL for every OpenAI-wire-
// compatible backend aegish supports beyond OpenAI itself. Ollama's is
// overridable since it's normally a local install on a non-default port.
var openAICompatibleBases = map[string]string{
	"groq":           "https://api.groq.com/openai/v1",
	"together_ai":    "https://api.together.xyz/v1",
	"featherless_ai": "https://api.featherless.ai/v1",
	"ollama":         "http://localhost:11434/v1",
}

// buildRegistry constructs every provider aegish knows how to speak to,
// keyed by name, regardless of whether the running config currently
// allow-lists or credentials it — Chain.Classify and Chain.HealthCheck
// both skip providers the allow-list rejects, so registering all of them
// up front costs nothing and lets an operator widen the allow-list
// without a restart-time code change.
func buildRegistry(cfg *config.Config) map[string]providers.Provider {
	reg := make(map[string]providers.Provider)

	reg["openai"] = providers.NewOpenAIProvider("openai", cfg.APIKey("openai"), "", "gpt-5-mini", false)
	reg["anthropic"] = providers.NewAnthropicProvider(cfg.APIKey("anthropic"))
	reg["gemini"] = providers.NewGeminiProvider(cfg.APIKey("gemini"), "", "")
	reg["dashscope"] = providers.NewDashScopeProvider(cfg.APIKey("dashscope"), "", "")

	for name, base := range openAICompatibleBases {
		if name == "ollama" {
			if override := strings.TrimSpace(os.Getenv("OLLAMA_BASE_URL")); override != "" {
				base = override
			}
			reg[name] = providers.NewOpenAIProvider(name, "", base, "llama3", true)
			continue
		}
		reg[name] = providers.NewOpenAIProvider(name, cfg.APIKey(name), base, defaultModelFor(name), false)
	}

	return reg
}

func defaultModelFor(provider string) string {
	switch provider {
	case "groq":
		return "llama-3.3-70b-versatile"
	case "together_ai":
		return "meta-llama/Llama-3.3-70B-Instruct-Turbo"
	case "featherless_ai":
		return "fdtn-ai/Foundation-Sec-8B-Instruct"
	default:
		return ""
	}
}

// buildChain parses the configured model chain into descriptors and
// wraps the registry in a providers.Chain, rate limited per cfg and
// allow-listed per cfg.
func buildChain(cfg *config.Config, registry map[string]providers.Provider) *providers.Chain {
	var descriptors []providers.Descriptor
	for _, entry := range cfg.ModelChain() {
		descriptors = append(descriptors, providers.ParseDescriptor(entry))
	}
	return providers.NewChain(descriptors, registry, cfg.IsProviderAllowed, cfg.MaxQueriesPerMinute())
}
