package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/ai/openai"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/config"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		AppEnv:          "test",
		OpenAIAPIKey:    "test-key",
		OpenAIBaseURL:   baseURL,
		LLMModel:        "gpt-4o",
		EmbeddingsModel: "text-embedding-3-small",
		LLMTimeout:      5 * time.Second,
		EmbedTimeout:    5 * time.Second,
	}
}

func TestExtractJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o", body["model"])
		assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
		assert.InDelta(t, 0.1, body["temperature"], 1e-9)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	out, err := c.ExtractJSON(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, out)
}

func TestExtractJSON_MissingKey(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.OpenAIAPIKey = ""
	c := openai.New(cfg)
	_, err := c.ExtractJSON(context.Background(), "s", "u")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestExtractJSON_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	out, err := c.ExtractJSON(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestExtractJSON_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	_, err := c.ExtractJSON(context.Background(), "s", "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text-embedding-3-small", body["model"])
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2]},{"embedding":[0.3,0.4]}]}`))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.InDelta(t, 0.3, vecs[1][0], 1e-6)
}

func TestEmbed_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1]}]}`))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	_, err := c.Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestEmbed_NoInputs(t *testing.T) {
	c := openai.New(testConfig("http://unused"))
	vecs, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
