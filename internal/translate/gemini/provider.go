// Package gemini implements translate.Translator with the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/zulandar/polyglot/internal/translate"
	"google.golang.org/genai"
)

// DefaultModel is used when ProviderConfig.Model is empty.
const DefaultModel = "gemini-2.0-flash"

// ProviderConfig configures one Gemini-backed translator.
type ProviderConfig struct {
	// APIKey is the Gemini API credential.
	APIKey string
	// BaseURL optionally overrides the API endpoint.
	BaseURL string
	// Model selects the model; empty uses DefaultModel.
	Model string
}

// Provider translates text with one GenerateContent call per message.
type Provider struct {
	models geminiModelsClient
	model  string
}

type geminiModelsClient interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// New builds a Gemini translator.
func New(cfg ProviderConfig) (*Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("new gemini provider: api key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("new gemini client: %w", err)
	}
	if client == nil || client.Models == nil {
		return nil, fmt.Errorf("new gemini client: models client is nil")
	}
	return newProvider(client.Models, cfg.Model), nil
}

func newProvider(models geminiModelsClient, model string) *Provider {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Provider{models: models, model: model}
}

// Translate implements translate.Translator.
func (p *Provider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	contents, config := buildRequest(text, sourceLang, targetLang)
	resp, err := p.models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini translate %s->%s: %w", sourceLang, targetLang, err)
	}
	if resp == nil {
		return "", fmt.Errorf("gemini translate %s->%s: nil response", sourceLang, targetLang)
	}
	out := translate.CleanOutput(resp.Text())
	if out == "" {
		return "", fmt.Errorf("gemini translate %s->%s: empty response", sourceLang, targetLang)
	}
	return out, nil
}

func buildRequest(text, sourceLang, targetLang string) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := []*genai.Content{{
		Role:  string(genai.RoleUser),
		Parts: []*genai.Part{{Text: text}},
	}}
	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: translate.Prompt(sourceLang, targetLang)}},
		},
		Temperature: &temperature,
	}
	return contents, config
}
