// Package azurevision talks to the Azure AI Vision (Computer Vision v3.2)
// analyze endpoint.
package azurevision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/menta2k/image-sorter/pkg/client"
	"github.com/menta2k/image-sorter/pkg/types"
)

const analyzePath = "/vision/v3.2/analyze"

// VisualFeatures requested on every call
const VisualFeatures = "Tags,Objects,Description"

// Client implements VisionClient for Azure Computer Vision
type Client struct {
	endpoint   string
	key        string
	httpClient *http.Client
}

var _ client.VisionClient = (*Client)(nil)

// NewClient creates an Azure Computer Vision client
func NewClient(endpoint, key string, timeout time.Duration) (*Client, error) {
	if endpoint == "" || key == "" {
		return nil, errors.New("azure computer vision endpoint and key must be provided")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		key:        key,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type analyzeResponse struct {
	Tags []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"tags"`
	Objects []struct {
		Object     string  `json:"object"`
		Confidence float64 `json:"confidence"`
		Parent     *struct {
			Object string `json:"object"`
		} `json:"parent,omitempty"`
	} `json:"objects"`
	Description *struct {
		Tags     []string `json:"tags"`
		Captions []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"captions"`
	} `json:"description"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze sends the image by URL or as an octet stream
func (c *Client) Analyze(ctx context.Context, src types.ImageSource) (*types.Analysis, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case src.URL != "":
		payload, err := json.Marshal(map[string]string{"url": src.URL})
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		body, contentType = bytes.NewReader(payload), "application/json"
	case src.Path != "":
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", src.Path, err)
		}
		body, contentType = bytes.NewReader(data), "application/octet-stream"
	case len(src.Data) > 0:
		body, contentType = bytes.NewReader(src.Data), "application/octet-stream"
	default:
		return nil, errors.New("empty image source")
	}

	url := fmt.Sprintf("%s%s?visualFeatures=%s&language=en", c.endpoint, analyzePath, VisualFeatures)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling azure vision API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Code != "" {
			return nil, fmt.Errorf("azure vision API error (status %d): %s: %s", resp.StatusCode, apiErr.Error.Code, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("azure vision API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return parseResponse(respBody)
}

func parseResponse(body []byte) (*types.Analysis, error) {
	var ar analyzeResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, fmt.Errorf("decoding analyze response: %w", err)
	}

	out := &types.Analysis{}
	for _, t := range ar.Tags {
		out.Tags = append(out.Tags, t.Name)
	}
	for _, o := range ar.Objects {
		out.Objects = append(out.Objects, o.Object)
	}
	if ar.Description != nil {
		for _, c := range ar.Description.Captions {
			out.Captions = append(out.Captions, c.Text)
		}
	}
	return out, nil
}
