package factory

import (
	"context"
	"testing"

	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	t.Run("ollama default url", func(t *testing.T) {
		p, err := NewLLMProvider(context.Background(), Config{Provider: "ollama", Model: "llama3"})
		require.NoError(t, err)
		o, ok := p.(*ollama.OllamaProvider)
		require.True(t, ok)
		assert.Equal(t, "http://localhost:11434", o.BaseURL)
	})

	t.Run("missing keys are configuration errors", func(t *testing.T) {
		for _, provider := range []string{"gemini", "huggingface"} {
			_, err := NewLLMProvider(context.Background(), Config{Provider: provider})
			assert.True(t, apperror.IsKind(err, apperror.KindConfiguration), provider)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewLLMProvider(context.Background(), Config{Provider: "nope"})
		assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
	})
}
