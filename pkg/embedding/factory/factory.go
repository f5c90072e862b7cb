package factory

import (
	"context"
	"fmt"

	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/pkg/embedding"
	"github.com/ruuig/tienda-online-sub002/pkg/embedding/jina"
)

type Config struct {
	Provider      string
	Model         string
	OllamaBaseURL string
	GeminiAPIKey  string
	JinaAPIKey    string
}

func NewEmbeddingProvider(ctx context.Context, cfg Config) (embedding.EmbeddingProvider, error) {
	switch cfg.Provider {
	case "", "ollama":
		return embedding.NewOllamaProvider(cfg.OllamaBaseURL, cfg.Model), nil
	case "gemini":
		return embedding.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.Model)
	case "jina":
		return jina.NewJinaProvider(cfg.JinaAPIKey, cfg.Model)
	default:
		return nil, apperror.Configuration(fmt.Sprintf("unsupported embedding provider: %s", cfg.Provider), nil)
	}
}
