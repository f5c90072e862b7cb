package factory

import (
	"context"
	"fmt"

	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/pkg/llm"
	"github.com/ruuig/tienda-online-sub002/pkg/llm/gemini"
	"github.com/ruuig/tienda-online-sub002/pkg/llm/huggingface"
	"github.com/ruuig/tienda-online-sub002/pkg/llm/ollama"
)

type Config struct {
	Provider       string
	Model          string
	OllamaBaseURL  string
	HuggingFaceURL string
	HuggingFaceKey string
	GeminiAPIKey   string
}

func NewLLMProvider(ctx context.Context, cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "", "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(cfg.HuggingFaceKey, cfg.HuggingFaceURL, cfg.Model)
	case "gemini":
		return gemini.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.Model)
	default:
		return nil, apperror.Configuration(fmt.Sprintf("unsupported LLM provider: %s", cfg.Provider), nil)
	}
}
