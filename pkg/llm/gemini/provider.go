package gemini

import (
	"context"

	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/pkg/llm"

	"google.golang.org/genai"
)

type GeminiProvider struct {
	client *genai.Client
	model  string
}

var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, apperror.Configuration("GOOGLE_GEMINI_API_KEY is required for the gemini provider", nil)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperror.Configuration("failed to create gemini client", err)
	}

	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	model, contents, config := p.request(history, options...)

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", apperror.Provider("gemini", err)
	}
	return resp.Text(), nil
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

func (p *GeminiProvider) ChatStream(ctx context.Context, history []llm.Message, onToken llm.TokenHandler, options ...llm.Option) error {
	model, contents, config := p.request(history, options...)

	for resp, err := range p.client.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return apperror.Provider("gemini", err)
		}
		text := resp.Text()
		if text == "" {
			continue
		}
		if err := onToken(text); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// request maps the provider-agnostic history onto Gemini contents. System
// messages become the system instruction; assistant turns use the model role.
func (p *GeminiProvider) request(history []llm.Message, options ...llm.Option) (string, []*genai.Content, *genai.GenerateContentConfig) {
	opts := llm.Apply(llm.Options{Model: p.model, Temperature: 0.7}, options...)

	config := &genai.GenerateContentConfig{}
	temp := float32(opts.Temperature)
	config.Temperature = &temp
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}

	var system string
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case llm.RoleAssistant, "model":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	return opts.Model, contents, config
}
