package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/menta2k/image-sorter/mocks"
	"github.com/menta2k/image-sorter/pkg/types"
)

var sampleSrc = types.ImageSource{URL: "https://example.com/park.jpg"}

func newClassifier(t *testing.T, analysis *types.Analysis, err error) (*Classifier, *mocks.MockVisionClient) {
	t.Helper()
	vc := new(mocks.MockVisionClient)
	vc.On("Analyze", mock.Anything, sampleSrc).Return(analysis, err)
	return New(vc), vc
}

func TestClassify_TagMatch(t *testing.T) {
	c, vc := newClassifier(t, &types.Analysis{Tags: []string{"Tree", "grass"}}, nil)

	res := c.Classify(context.Background(), sampleSrc, "tree")

	assert.True(t, res.Matched)
	assert.Equal(t, types.MatchedInTags, res.MatchedIn)
	assert.Equal(t, []string{"tree", "grass"}, res.Tags)
	vc.AssertExpectations(t)
}

func TestClassify_ObjectMatch(t *testing.T) {
	c, _ := newClassifier(t, &types.Analysis{
		Tags:    []string{"outdoor"},
		Objects: []string{"Laptop"},
	}, nil)

	res := c.Classify(context.Background(), sampleSrc, "LAPTOP")

	assert.True(t, res.Matched)
	assert.Equal(t, "laptop", res.Keyword)
	assert.Equal(t, types.MatchedInObjects, res.MatchedIn)
}

func TestClassify_CaptionSubstring(t *testing.T) {
	c, _ := newClassifier(t, &types.Analysis{
		Tags:     []string{"outdoor"},
		Captions: []string{"A row of trees along a road"},
	}, nil)

	res := c.Classify(context.Background(), sampleSrc, "tree")

	assert.True(t, res.Matched)
	assert.Equal(t, types.MatchedInCaptions, res.MatchedIn)
}

func TestClassify_TagsNeedExactMatch(t *testing.T) {
	c, _ := newClassifier(t, &types.Analysis{Tags: []string{"palm tree"}}, nil)

	res := c.Classify(context.Background(), sampleSrc, "tree")

	assert.False(t, res.Matched)
	assert.Empty(t, res.MatchedIn)
	assert.Equal(t, []string{"palm tree"}, res.Tags)
}

func TestClassify_DefaultKeyword(t *testing.T) {
	vc := new(mocks.MockVisionClient)
	vc.On("Analyze", mock.Anything, sampleSrc).Return(&types.Analysis{Tags: []string{"dog"}}, nil)

	res := New(vc, WithDefaultKeyword("dog")).Classify(context.Background(), sampleSrc, "  ")
	assert.Equal(t, "dog", res.Keyword)
	assert.True(t, res.Matched)

	res = New(vc).Classify(context.Background(), sampleSrc, "")
	assert.Equal(t, DefaultKeyword, res.Keyword)
	assert.False(t, res.Matched)
}

func TestClassify_BackendErrorIsNoMatch(t *testing.T) {
	c, _ := newClassifier(t, nil, errors.New("401 unauthorized"))

	res := c.Classify(context.Background(), sampleSrc, "tree")

	assert.False(t, res.Matched)
	assert.NotNil(t, res.Tags)
	assert.Empty(t, res.Tags)
}

func TestMatch(t *testing.T) {
	a := &types.Analysis{
		Tags:     []string{"plant"},
		Objects:  []string{"tree"},
		Captions: []string{"a tree in a park"},
	}
	assert.Equal(t, types.MatchedInObjects, Match(a, "tree"))
	assert.Equal(t, types.MatchedInTags, Match(a, "plant"))
	assert.Equal(t, types.MatchedInCaptions, Match(a, "park"))
	assert.Empty(t, Match(a, "car"))
	assert.Empty(t, Match(a, ""))
	assert.Empty(t, Match(nil, "tree"))
}

func TestAnyKeywordInTags(t *testing.T) {
	tags := []string{"outdoor", "Palm Tree", "sky"}

	assert.True(t, AnyKeywordInTags([]string{"tree"}, tags))
	assert.True(t, AnyKeywordInTags([]string{"car", "SKY"}, tags))
	assert.False(t, AnyKeywordInTags([]string{"car"}, tags))
	assert.False(t, AnyKeywordInTags([]string{""}, tags))
	assert.False(t, AnyKeywordInTags(nil, tags))
	assert.False(t, AnyKeywordInTags([]string{"tree"}, nil))
}
