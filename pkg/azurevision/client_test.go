package azurevision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-sorter/pkg/types"
)

const sampleResponse = `{
  "tags": [{"name": "Tree", "confidence": 0.99}, {"name": "outdoor", "confidence": 0.95}],
  "objects": [{"object": "palm tree", "confidence": 0.7, "rectangle": {"x": 1, "y": 2, "w": 3, "h": 4}}],
  "description": {"tags": ["tree"], "captions": [{"text": "a tree in a field", "confidence": 0.5}]},
  "requestId": "abc"
}`

func TestAnalyzeURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, analyzePath, r.URL.Path)
		assert.Equal(t, VisualFeatures, r.URL.Query().Get("visualFeatures"))
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://example.com/a.jpg", body["url"])

		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", "secret", 0)
	require.NoError(t, err)

	got, err := c.Analyze(context.Background(), types.ImageSource{URL: "https://example.com/a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tree", "outdoor"}, got.Tags)
	assert.Equal(t, []string{"palm tree"}, got.Objects)
	assert.Equal(t, []string{"a tree in a field"}, got.Captions)
}

func TestAnalyzeStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte("jpeg-bytes"), data)
		_, _ = w.Write([]byte(`{"tags":[],"objects":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", 0)
	require.NoError(t, err)

	got, err := c.Analyze(context.Background(), types.ImageSource{Data: []byte("jpeg-bytes")})
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
	assert.Empty(t, got.Captions)
}

func TestAnalyzeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"InvalidImageUrl","message":"Image URL is badly formatted."}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", 0)
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), types.ImageSource{URL: "nope"})
	assert.ErrorContains(t, err, "InvalidImageUrl")
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient("", "key", 0)
	assert.Error(t, err)
	_, err = NewClient("https://x.cognitiveservices.azure.com", "", 0)
	assert.Error(t, err)
}
