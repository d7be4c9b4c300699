// Package openai implements translate.Translator with the OpenAI Responses API.
package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/zulandar/polyglot/internal/translate"
)

// DefaultModel is used when ProviderConfig.Model is empty.
const DefaultModel = "gpt-4o-mini"

// ProviderConfig configures one OpenAI-backed translator.
type ProviderConfig struct {
	// APIKey is the credential used to authenticate requests.
	APIKey string
	// BaseURL optionally overrides the OpenAI endpoint.
	BaseURL string
	// Model selects the model; empty uses DefaultModel.
	Model string
	// MaxRetries optionally overrides the SDK retry count.
	//
	// Nil keeps the SDK default behavior.
	MaxRetries *int
}

// Provider translates text with a single non-streaming Responses call.
type Provider struct {
	responses responder
	model     string
}

type responder interface {
	respond(ctx context.Context, body responses.ResponseNewParams) (string, error)
}

type responseServiceAdapter struct {
	service *responses.ResponseService
}

func (a responseServiceAdapter) respond(ctx context.Context, body responses.ResponseNewParams) (string, error) {
	resp, err := a.service.New(ctx, body)
	if err != nil {
		return "", err
	}
	return resp.OutputText(), nil
}

// New builds an OpenAI translator.
func New(cfg ProviderConfig) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("new openai provider: api key is required")
	}

	options := make([]option.RequestOption, 0, 3)
	options = append(options, option.WithAPIKey(strings.TrimSpace(cfg.APIKey)))
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries != nil {
		options = append(options, option.WithMaxRetries(*cfg.MaxRetries))
	}

	client := openai.NewClient(options...)
	return newProvider(responseServiceAdapter{service: &client.Responses}, cfg.Model), nil
}

func newProvider(r responder, model string) *Provider {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Provider{responses: r, model: model}
}

// Translate implements translate.Translator.
func (p *Provider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	out, err := p.responses.respond(ctx, buildParams(p.model, text, sourceLang, targetLang))
	if err != nil {
		return "", fmt.Errorf("openai translate %s->%s: %w", sourceLang, targetLang, err)
	}
	out = translate.CleanOutput(out)
	if out == "" {
		return "", fmt.Errorf("openai translate %s->%s: empty response", sourceLang, targetLang)
	}
	return out, nil
}

func buildParams(model, text, sourceLang, targetLang string) responses.ResponseNewParams {
	return responses.ResponseNewParams{
		Model:        model,
		Instructions: openai.String(translate.Prompt(sourceLang, targetLang)),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Temperature: openai.Float(0),
	}
}
