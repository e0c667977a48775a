package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cv-match-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedStringsRestoresInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 响应故意乱序，客户端按index还原
		w.Write([]byte(`{"data": [
			{"index": 1, "embedding": [0.2]},
			{"index": 0, "embedding": [0.1]}
		]}`))
	}))
	defer srv.Close()

	e, err := NewDashScopeEmbedder("key", config.EmbeddingConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := e.EmbedStrings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []float64{0.1}, out[0])
	assert.Equal(t, []float64{0.2}, out[1])
}

func TestEmbedStringsAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message": "请求过于频繁", "type": "limit_error", "code": "Throttling"}`))
	}))
	defer srv.Close()

	e, err := NewDashScopeEmbedder("key", config.EmbeddingConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = e.EmbedStrings(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "请求过于频繁")
	assert.Contains(t, err.Error(), "429")
}

func TestEmbedStringsEmptyInput(t *testing.T) {
	e, err := NewDashScopeEmbedder("key", config.EmbeddingConfig{})
	require.NoError(t, err)

	out, err := e.EmbedStrings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
