package huggingface

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatStreamParsesServerSentEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Tenemos "}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"envíos"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p, err := NewHuggingFaceProvider("hf_key", srv.URL, "qwen2.5")
	require.NoError(t, err)

	var out string
	err = p.ChatStream(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "envíos"}}, func(tok string) error {
		out += tok
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Tenemos envíos", out)
}

func TestChatReturnsProviderErrorOnStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewHuggingFaceProvider("hf_key", srv.URL, "qwen2.5")
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "hola")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindProvider))
}

func TestNewHuggingFaceProviderRequiresKey(t *testing.T) {
	_, err := NewHuggingFaceProvider("", "", "qwen2.5")
	assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
}
