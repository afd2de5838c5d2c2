// Package classifier decides whether an image shows a keyword, based on the
// tags, object labels and captions a vision backend reports.
package classifier

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/menta2k/image-sorter/pkg/client"
	"github.com/menta2k/image-sorter/pkg/detection"
	"github.com/menta2k/image-sorter/pkg/types"
)

// DefaultKeyword is used when neither caller nor configuration name one
const DefaultKeyword = "tree"

// Classifier wraps a VisionClient with keyword matching
type Classifier struct {
	client         client.VisionClient
	defaultKeyword string
	log            zerolog.Logger
}

// Option configures a Classifier
type Option func(*Classifier)

// WithDefaultKeyword sets the keyword used when Classify gets an empty one
func WithDefaultKeyword(keyword string) Option {
	return func(c *Classifier) {
		if k := strings.TrimSpace(keyword); k != "" {
			c.defaultKeyword = k
		}
	}
}

// WithLogger sets the logger used for diagnostics
func WithLogger(log zerolog.Logger) Option {
	return func(c *Classifier) { c.log = log }
}

// New creates a Classifier on top of a vision client
func New(vc client.VisionClient, opts ...Option) *Classifier {
	c := &Classifier{
		client:         vc,
		defaultKeyword: DefaultKeyword,
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultKeyword returns the keyword used for empty requests
func (c *Classifier) DefaultKeyword() string {
	return c.defaultKeyword
}

// Classify reports whether keyword equals a tag or object label, or occurs in
// a caption. Backend failures are logged and reported as no match.
func (c *Classifier) Classify(ctx context.Context, src types.ImageSource, keyword string) types.ClassifyResult {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		keyword = strings.ToLower(c.defaultKeyword)
	}
	result := types.ClassifyResult{Keyword: keyword, Tags: []string{}}

	c.log.Info().Str("image", src.String()).Str("keyword", keyword).Msg("analyzing image")
	analysis, err := c.client.Analyze(ctx, src)
	if err != nil {
		c.log.Warn().Err(err).Str("image", src.String()).Msg("error analyzing image")
		return result
	}
	analysis = detection.Normalize(analysis)
	result.Tags = analysis.Tags

	result.MatchedIn = Match(analysis, keyword)
	result.Matched = result.MatchedIn != ""

	if result.Matched {
		c.log.Info().Str("keyword", keyword).Str("in", result.MatchedIn).Msgf("✓ found %q in image %s", keyword, result.MatchedIn)
	} else {
		c.log.Info().Str("keyword", keyword).Msgf("✗ did not find %q in image analysis", keyword)
	}
	return result
}

// Match returns where keyword was found in a normalized analysis, or "" when
// it was not. Tags and objects need an exact match, captions a substring.
func Match(a *types.Analysis, keyword string) string {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" || a == nil {
		return ""
	}
	switch {
	case lo.Contains(a.Tags, keyword):
		return types.MatchedInTags
	case lo.Contains(a.Objects, keyword):
		return types.MatchedInObjects
	case lo.ContainsBy(a.Captions, func(caption string) bool { return strings.Contains(caption, keyword) }):
		return types.MatchedInCaptions
	}
	return ""
}

// AnyKeywordInTags reports whether any keyword is a substring of any tag
func AnyKeywordInTags(keywords, tags []string) bool {
	return lo.SomeBy(tags, func(tag string) bool {
		tag = strings.ToLower(tag)
		return lo.SomeBy(keywords, func(kw string) bool {
			kw = strings.ToLower(strings.TrimSpace(kw))
			return kw != "" && strings.Contains(tag, kw)
		})
	})
}
