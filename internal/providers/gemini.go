package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultGeminiModel = "gemini-3-flash-preview"
	geminiAPIBase      = "https://generativelanguage.googleapis.com/v1beta"
)

// GeminiProvider implements Provider for Google's native generateContent
// API. Grounded on the same request/response/retry shape as the other
// variants in this package; Gemini's own wire format (contents/parts,
// systemInstruction, an API key as a query parameter rather than a
// header) is kept distinct rather than forced through the OpenAI
// variant, mirroring how the teacher kept each provider's own file.
type GeminiProvider struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	retryConfig  RetryConfig
}

func NewGeminiProvider(apiKey, baseURL, defaultModel string) *GeminiProvider {
	if baseURL == "" {
		baseURL = geminiAPIBase
	}
	if defaultModel == "" {
		defaultModel = defaultGeminiModel
	}
	return &GeminiProvider{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 120 * time.Second},
		retryConfig:  DefaultRetryConfig(),
	}
}

func (p *GeminiProvider) Name() string         { return "gemini" }
func (p *GeminiProvider) DefaultModel() string { return p.defaultModel }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (p *GeminiProvider) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	body, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.UserPrompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, model, url.QueryEscape(p.apiKey))

	return RetryDo(ctx, p.retryConfig, func() (*ClassifyResponse, error) {
		respBody, err := p.doRequest(ctx, endpoint, body)
		if err != nil {
			return nil, err
		}
		defer respBody.Close()

		var gResp geminiResponse
		if err := json.NewDecoder(respBody).Decode(&gResp); err != nil {
			return nil, fmt.Errorf("gemini: decode response: %w", err)
		}

		if gResp.PromptFeedback.BlockReason != "" {
			return &ClassifyResponse{StopReason: "content_filter"}, nil
		}
		if len(gResp.Candidates) == 0 {
			return &ClassifyResponse{StopReason: "empty"}, nil
		}

		var text strings.Builder
		for _, part := range gResp.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
		return &ClassifyResponse{
			Completion: text.String(),
			StopReason: gResp.Candidates[0].FinishReason,
		}, nil
	})
}

func (p *GeminiProvider) doRequest(ctx context.Context, endpoint string, body []byte) (io.ReadCloser, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{
			Status:     resp.StatusCode,
			Body:       string(respBytes),
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return resp.Body, nil
}
