package analyzer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/BerylCAtieno/finreport/internal/keywords"
	"github.com/BerylCAtieno/finreport/internal/models"
	"github.com/BerylCAtieno/finreport/internal/utils"

	"github.com/sashabaranov/go-openai"
)

// Instruction is sent as the system message with every structuring request.
const Instruction = "Extract financial line items and their numeric values as clean structured data (JSON)."

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type openRouterAnalyzer struct {
	client  *openai.Client
	model   string
	filter  *keywords.LineFilter
	timeout time.Duration
	logger  *utils.Logger
}

// refererTransport adds the attribution headers OpenRouter uses for app rankings.
type refererTransport struct {
	base http.RoundTripper
}

func (t refererTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("HTTP-Referer", "https://github.com/BerylCAtieno/finreport")
	req.Header.Set("X-Title", "finreport")
	return t.base.RoundTrip(req)
}

func NewOpenRouterAnalyzer(cfg OpenRouterConfig, filter *keywords.LineFilter, logger *utils.Logger) Structurer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: refererTransport{base: http.DefaultTransport},
	}

	return &openRouterAnalyzer{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		filter:  filter,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

func (a *openRouterAnalyzer) Name() string { return "llm" }

// Structure filters text down to keyword lines and sends them for structuring
// in a single request. The reply is returned verbatim. Text without keyword
// lines short-circuits to the sentinel with no request made.
func (a *openRouterAnalyzer) Structure(ctx context.Context, text string) (models.ExtractedData, error) {
	filtered, ok := a.filter.Filter(text)
	if !ok {
		data := models.TextData(filtered)
		data.NoContent = true
		return data, nil
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: Instruction},
			{Role: openai.ChatMessageRoleUser, Content: filtered},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			a.logger.Error("OpenRouter API error", "status", apiErr.HTTPStatusCode, "message", apiErr.Message)
		} else {
			a.logger.Error("OpenRouter request failed", "error", err)
		}
		return models.ExtractedData{}, &StructuringError{Model: a.model, Err: err}
	}

	if len(resp.Choices) == 0 {
		return models.ExtractedData{}, &StructuringError{Model: a.model, Err: errors.New("no choices in response")}
	}

	return models.TextData(resp.Choices[0].Message.Content), nil
}
