package client

import (
	"context"

	"github.com/menta2k/image-sorter/pkg/types"
)

// VisionClient requests tags, detected objects and captions for one image.
type VisionClient interface {
	Analyze(ctx context.Context, src types.ImageSource) (*types.Analysis, error)
}
