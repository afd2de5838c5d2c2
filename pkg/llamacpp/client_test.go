package llamacpp

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-sorter/pkg/types"
)

func testImagePath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "x.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))))
	return path
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name    string
		content any
	}{
		{"string content", `{"tags":["Oak","tree"],"objects":[],"description":"An oak"}`},
		{"part content", []map[string]string{{"type": "text", "text": `{"tags":["Oak","tree"],"objects":[],"description":"An oak"}`}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/chat/completions", r.URL.Path)

				var req ChatCompletionRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				parts, _ := req.Messages[0].Content.([]interface{})
				if assert.Len(t, parts, 2) {
					imgPart := parts[1].(map[string]interface{})["image_url"].(map[string]interface{})
					assert.True(t, strings.HasPrefix(imgPart["url"].(string), "data:image/png;base64,"))
				}

				_ = json.NewEncoder(w).Encode(map[string]any{
					"id":      "1",
					"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": tt.content}}},
				})
			}))
			defer srv.Close()

			c, err := NewClient(srv.URL+"/", Options{Prepare: types.PrepareOptions{Format: "png"}})
			require.NoError(t, err)

			got, err := c.Analyze(context.Background(), types.ImageSource{Path: testImagePath(t)})
			require.NoError(t, err)
			assert.Equal(t, []string{"oak", "tree"}, got.Tags)
			assert.Equal(t, []string{"an oak"}, got.Captions)
		})
	}
}

func TestAnalyzeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, Options{})
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), types.ImageSource{Path: testImagePath(t)})
	assert.ErrorContains(t, err, "status 503")
}

func TestSimpleQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2048, req.MaxTokens)
		parts, _ := req.Messages[0].Content.([]interface{})
		if assert.Len(t, parts, 2) {
			assert.Equal(t, "Describe it.", parts[0].(map[string]interface{})["text"])
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "1",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "A grey square"}}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, Options{})
	require.NoError(t, err)

	got, err := c.SimpleQuery(context.Background(), "Describe it.", types.ImageSource{Path: testImagePath(t)})
	require.NoError(t, err)
	assert.Contains(t, got, "A grey square")
}
