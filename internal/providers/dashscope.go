package providers

const (
	dashscopeDefaultBase  = "https://dashscope-intl.aliyuncs.com/compatible-mode/v1"
	dashscopeDefaultModel = "qwen3-max"
)

// DashScopeProvider wraps OpenAIProvider with DashScope's own default
// base URL and model, since DashScope speaks the OpenAI-compatible
// chat-completions shape. Adapted from the teacher's DashScopeProvider,
// with the tools+streaming fallback logic dropped — aegish's classifier
// never streams and never uses tools, so that concern has nothing left
// to guard.
type DashScopeProvider struct {
	*OpenAIProvider
}

func NewDashScopeProvider(apiKey, apiBase, defaultModel string) *DashScopeProvider {
	if apiBase == "" {
		apiBase = dashscopeDefaultBase
	}
	if defaultModel == "" {
		defaultModel = dashscopeDefaultModel
	}
	return &DashScopeProvider{
		OpenAIProvider: NewOpenAIProvider("dashscope", apiKey, apiBase, defaultModel, false),
	}
}

func (p *DashScopeProvider) Name() string { return "dashscope" }
