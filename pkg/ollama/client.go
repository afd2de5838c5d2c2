package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/samber/lo"

	"github.com/menta2k/image-sorter/pkg/client"
	"github.com/menta2k/image-sorter/pkg/detection"
	"github.com/menta2k/image-sorter/pkg/processing"
	"github.com/menta2k/image-sorter/pkg/types"
)

// DefaultModel is used when no model is configured
const DefaultModel = "llava:latest"

// Options tunes how images are sent to the model
type Options struct {
	Model   string
	Timeout time.Duration
	Prepare types.PrepareOptions
}

// Client wraps the Ollama API client
type Client struct {
	client    *api.Client
	processor *processing.Processor
	opts      Options
}

var _ client.VisionClient = (*Client)(nil)

// NewClient creates a new Ollama client
func NewClient(ollamaURL string, opts Options) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs scheme and host", ollamaURL)
	}

	// Base URL only, a path like /api/chat is dropped
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}

	return &Client{
		client:    api.NewClient(baseURL, http.DefaultClient),
		processor: processing.NewProcessor(),
		opts:      opts,
	}, nil
}

// SimpleQuery performs a simple query with an image without expecting JSON
func (c *Client) SimpleQuery(ctx context.Context, prompt string, src types.ImageSource) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	img, err := c.encode(ctx, src)
	if err != nil {
		return "", err
	}
	return c.chat(ctx, prompt, img, nil)
}

// Analyze asks the model for tags, objects and a description of the image
func (c *Client) Analyze(ctx context.Context, src types.ImageSource) (*types.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	img, err := c.encode(ctx, src)
	if err != nil {
		return nil, err
	}

	// Set model-specific parameters for better performance
	options := map[string]any{"temperature": 0.2}
	modelLower := strings.ToLower(c.opts.Model)
	if strings.Contains(modelLower, "minicpm-v4") ||
		strings.Contains(modelLower, "minicpm-v-4") ||
		strings.Contains(modelLower, "minicpmv4") {
		options["top_p"] = 0.8
		options["num_ctx"] = 4096
	}

	content, err := c.chat(ctx, detection.DefaultPrompt, img, options)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}
	return detection.ParseModelResponse(content)
}

func (c *Client) chat(ctx context.Context, prompt string, img []byte, options map[string]any) (string, error) {
	req := &api.ChatRequest{
		Model: c.opts.Model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(img)},
			},
		},
		Stream:  lo.ToPtr(false),
		Options: options,
	}

	var responseContent string
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}
	return responseContent, nil
}

func (c *Client) encode(ctx context.Context, src types.ImageSource) ([]byte, error) {
	img, err := c.processor.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", src, err)
	}
	data, err := c.processor.Encode(img, c.opts.Prepare)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", src, err)
	}
	return data, nil
}
