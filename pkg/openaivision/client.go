package openaivision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/menta2k/image-sorter/pkg/client"
	"github.com/menta2k/image-sorter/pkg/detection"
	"github.com/menta2k/image-sorter/pkg/processing"
	"github.com/menta2k/image-sorter/pkg/types"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o-mini"

// Options configures the OpenAI-compatible vision client
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Prepare types.PrepareOptions
}

// Client implements VisionClient on top of any OpenAI-compatible chat API
type Client struct {
	client    *openai.Client
	processor *processing.Processor
	opts      Options
}

var _ client.VisionClient = (*Client)(nil)

// NewClient creates a new OpenAI-compatible vision client
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" && opts.BaseURL == "" {
		return nil, errors.New("openai: api key or base url must be provided")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &Client{
		client:    openai.NewClientWithConfig(cfg),
		processor: processing.NewProcessor(),
		opts:      opts,
	}, nil
}

// Analyze asks the model for tags, objects and a description of the image
func (c *Client) Analyze(ctx context.Context, src types.ImageSource) (*types.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	imageURL, err := c.imageURL(ctx, src)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: detection.DefaultPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}
	return detection.ParseModelResponse(resp.Choices[0].Message.Content)
}

// imageURL passes remote URLs through untouched and inlines everything else
// as a data URL.
func (c *Client) imageURL(ctx context.Context, src types.ImageSource) (string, error) {
	if src.URL != "" {
		return src.URL, nil
	}
	img, err := c.processor.Load(ctx, src)
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", src, err)
	}
	b64, err := c.processor.PrepareImageForModel(img, c.opts.Prepare)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", src, err)
	}
	return "data:" + processing.MimeType(c.opts.Prepare.Format) + ";base64," + b64, nil
}
