package jina

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJinaProviderRequiresKey(t *testing.T) {
	_, err := NewJinaProvider("", "")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
}

func TestGenerateBatchKeepsInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "retrieval.passage", req.Task)

		// Out of order on purpose.
		_, _ = w.Write([]byte(`{"data":[
			{"object":"embedding","index":1,"embedding":[0,2]},
			{"object":"embedding","index":0,"embedding":[3,0]}
		]}`))
	}))
	defer srv.Close()

	p, err := NewJinaProvider("secret", "")
	require.NoError(t, err)
	p.WithBaseURL(srv.URL)

	vectors, err := p.GenerateBatch(context.Background(), []string{"a", "b"}, embedding.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
}
