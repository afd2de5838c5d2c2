package detection

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/menta2k/image-sorter/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt asks LLM-backed vision clients for the same three feature
// groups a cloud tagging service returns.
const DefaultPrompt = `You are an image tagger.

Return JSON only:
{
  "tags": ["tag1", "tag2", "tag3"],
  "objects": [{"label": "string", "confidence": 0.0}],
  "description": "short neutral sentence (≤ 20 words)"
}

HARD RULES
- Tags: up to 15 single words or short phrases, lowercase, no punctuation or duplicates.
- Tags cover scene, setting, dominant colors and every visible thing (e.g. "tree", "outdoor", "sky", "grass").
- Objects: every distinct physical object you can locate, one entry per kind, lowercase label.
- Description must be brief and factual. Do not guess real identities.
- If the image is empty or unreadable return {"tags":[],"objects":[],"description":""}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// ErrUnparseableResponse is returned when a model reply holds no JSON object
var ErrUnparseableResponse = errors.New("model response is not valid JSON")

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseModelResponse turns a raw model reply into an Analysis
func ParseModelResponse(raw string) (*types.Analysis, error) {
	raw = SanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil, ErrUnparseableResponse
	}

	var resp types.ModelResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}

	analysis := &types.Analysis{
		Tags:    resp.Tags,
		Objects: lo.Map(resp.Objects, func(o types.ModelObject, _ int) string { return o.Label }),
	}
	if d := strings.TrimSpace(resp.Description); d != "" {
		analysis.Captions = []string{d}
	}
	return Normalize(analysis), nil
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

// Normalize lower-cases and trims every string in the analysis, dropping
// empty entries and duplicates while keeping order.
func Normalize(a *types.Analysis) *types.Analysis {
	if a == nil {
		return &types.Analysis{}
	}
	return &types.Analysis{
		Tags:     normalizeList(a.Tags),
		Objects:  normalizeList(a.Objects),
		Captions: normalizeList(a.Captions),
	}
}

func normalizeList(in []string) []string {
	out := lo.FilterMap(in, func(s string, _ int) (string, bool) {
		s = strings.ToLower(strings.TrimSpace(s))
		return s, s != ""
	})
	return lo.Uniq(out)
}
