package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"transbot/internal/domain"
	"transbot/internal/langname"
)

// OpenAI implements domain.Translator on an OpenAI-compatible chat
// completions API (OpenAI, Gemini and Ollama all expose one).
type OpenAI struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

type OpenAIConfig struct {
	APIKey  string
	APIBase string
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &OpenAI{
		apiKey:  cfg.APIKey,
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		model:   cfg.Model,
		client:  SharedHTTPClient(cfg.Timeout),
		logger:  cfg.Logger,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.apiBase+"/models", nil)
	if err != nil {
		return err
	}
	o.authorize(req)
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("openai: invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai returned %d", resp.StatusCode)
	}
	return nil
}

func (o *OpenAI) authorize(req *http.Request) {
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
}

type oaiRequest struct {
	Model          string             `json:"model"`
	Messages       []oaiMessage       `json:"messages"`
	Temperature    *float64           `json:"temperature,omitempty"`
	ResponseFormat *oaiResponseFormat `json:"response_format,omitempty"`
	Stream         bool               `json:"stream"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponseFormat struct {
	Type string `json:"type"`
}

type oaiResponse struct {
	Choices []oaiChoice `json:"choices"`
	Usage   oaiUsage    `json:"usage"`
}

type oaiChoice struct {
	Message      oaiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

type oaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// translationReply is the JSON object the model is asked to produce.
type translationReply struct {
	Translation    string `json:"translation"`
	SourceLanguage string `json:"source_language"`
}

const translatePrompt = `You are a translation engine. Translate the user's message into %s (ISO 639-1 code %q).%s
Keep placeholders of the form <digits> exactly as they are. Do not add commentary.
Reply with a JSON object: {"translation": "...", "source_language": "<ISO 639-1 code of the original>"}.`

func systemPrompt(dest, src domain.LanguageCode) string {
	hint := ""
	if !src.IsAuto() {
		hint = fmt.Sprintf(" The message is written in %s.", langname.Name(src))
	}
	return fmt.Sprintf(translatePrompt, langname.Name(dest), string(dest), hint)
}

func (o *OpenAI) Translate(ctx context.Context, text string, dest, src domain.LanguageCode) (*domain.TranslationResult, error) {
	temp := 0.0
	body := oaiRequest{
		Model: o.model,
		Messages: []oaiMessage{
			{Role: "system", Content: systemPrompt(dest, src)},
			{Role: "user", Content: text},
		},
		Temperature:    &temp,
		ResponseFormat: &oaiResponseFormat{Type: "json_object"},
	}

	reply, err := o.complete(ctx, body)
	if err != nil {
		return nil, &domain.TranslationProviderError{Provider: o.Name(), Err: err}
	}

	detected := src
	if src.IsAuto() {
		detected = domain.LanguageCode(strings.ToLower(strings.TrimSpace(reply.SourceLanguage)))
	}
	return &domain.TranslationResult{
		Text:           reply.Translation,
		SourceLanguage: detected,
		DestLanguage:   dest,
	}, nil
}

func (o *OpenAI) complete(ctx context.Context, body oaiRequest) (*translationReply, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiBase+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	o.authorize(httpReq)

	// Failures end this call; the caller decides what the user sees.
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("openai %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var oaiResp oaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaiResp); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(oaiResp.Choices) == 0 {
		return nil, errors.New("openai: no choices in response")
	}

	o.logger.Debug("openai translation done",
		"model", body.Model,
		"prompt_tokens", oaiResp.Usage.PromptTokens,
		"completion_tokens", oaiResp.Usage.CompletionTokens,
	)

	var reply translationReply
	content := stripCodeFence(oaiResp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return nil, fmt.Errorf("openai: malformed reply: %w", err)
	}
	if reply.Translation == "" {
		return nil, errors.New("openai: empty translation")
	}
	return &reply, nil
}

// stripCodeFence removes a ```json fence some models wrap around JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
