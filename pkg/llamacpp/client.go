package llamacpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/menta2k/image-sorter/pkg/client"
	"github.com/menta2k/image-sorter/pkg/detection"
	"github.com/menta2k/image-sorter/pkg/processing"
	"github.com/menta2k/image-sorter/pkg/types"
)

// Options tunes how images are sent to the server
type Options struct {
	Model   string
	Timeout time.Duration
	Prepare types.PrepareOptions
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	processor  *processing.Processor
	opts       Options
}

var _ client.VisionClient = (*Client)(nil)

// OpenAI-compatible message format
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // Can be string or []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// OpenAI-compatible chat completion request
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stream      bool      `json:"stream"`
}

// OpenAI-compatible chat completion response
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

func NewClient(serverURL string, opts Options) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}

	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		processor: processing.NewProcessor(),
		opts:      opts,
	}, nil
}

// SimpleQuery sends prompt with the image and returns the model's free-text answer
func (c *Client) SimpleQuery(ctx context.Context, prompt string, src types.ImageSource) (string, error) {
	return c.complete(ctx, prompt, src, 2048)
}

func (c *Client) Analyze(ctx context.Context, src types.ImageSource) (*types.Analysis, error) {
	text, err := c.complete(ctx, detection.DefaultPrompt, src, 4096)
	if err != nil {
		return nil, err
	}
	return detection.ParseModelResponse(text)
}

func (c *Client) complete(ctx context.Context, prompt string, src types.ImageSource, maxTokens int) (string, error) {
	img, err := c.processor.Load(ctx, src)
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", src, err)
	}
	imgB64, err := c.processor.PrepareImageForModel(img, c.opts.Prepare)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", src, err)
	}

	req := ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []Message{
			{
				Role: "user",
				Content: []ContentPart{
					{Type: "text", Text: prompt},
					{
						Type: "image_url",
						ImageURL: &ImageURL{
							URL: "data:" + processing.MimeType(c.opts.Prepare.Format) + ";base64," + imgB64,
						},
					},
				},
			},
		},
		Temperature: 0.2,
		MaxTokens:   maxTokens,
		TopP:        0.8,
		Stream:      false,
	}

	respBody, err := c.sendRequest(ctx, "/v1/chat/completions", req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	// Extract text from the response (handle both string and array formats)
	switch content := resp.Choices[0].Message.Content.(type) {
	case string:
		if content != "" {
			return content, nil
		}
	case []interface{}:
		for _, item := range content {
			if partMap, ok := item.(map[string]interface{}); ok {
				if text, ok := partMap["text"].(string); ok && text != "" {
					return text, nil
				}
			}
		}
	}

	return "", fmt.Errorf("empty response from llama.cpp server")
}

func (c *Client) sendRequest(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
