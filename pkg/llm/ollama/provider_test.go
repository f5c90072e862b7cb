package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamServer(t *testing.T, parts []string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if !req.Stream {
			_ = json.NewEncoder(w).Encode(ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: strings.Join(parts, "")},
				Done:    true,
			})
			return
		}

		for _, p := range parts {
			line, _ := json.Marshal(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: p}})
			fmt.Fprintf(w, "%s\n", line)
		}
		fmt.Fprintln(w, `{"done":true}`)
	}))
}

func TestChat(t *testing.T) {
	srv := newStreamServer(t, []string{"Hola", ", ", "mundo"})
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	out, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hola"}})
	require.NoError(t, err)
	assert.Equal(t, "Hola, mundo", out)
}

func TestChatStreamDeliversTokensInOrder(t *testing.T) {
	srv := newStreamServer(t, []string{"El ", "envío ", "es ", "gratis"})
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")

	var got []string
	err := p.ChatStream(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "envío"}}, func(tok string) error {
		got = append(got, tok)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"El ", "envío ", "es ", "gratis"}, got)
}

func TestChatStreamHandlerErrorStops(t *testing.T) {
	srv := newStreamServer(t, []string{"a", "b", "c"})
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	stop := errors.New("client gone")

	calls := 0
	err := p.ChatStream(context.Background(), nil, func(tok string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestChatStreamTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"parcial"}}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	err := p.ChatStream(context.Background(), nil, func(string) error { return nil })
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindProvider))
}
