// Package s3 implements storage.ObjectStore on an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/menta2k/image-sorter/pkg/storage"
	"github.com/menta2k/image-sorter/pkg/types"
)

// DefaultRegion is used when the configuration names none
const DefaultRegion = "us-east-1"

// Options configures the S3 store
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Client is an ObjectStore bound to one bucket
type Client struct {
	api    *minio.Client
	bucket string
}

var _ storage.ObjectStore = (*Client)(nil)

// New creates a client using static credentials
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, errors.New("s3 endpoint and bucket must be provided")
	}
	if opts.Region == "" {
		opts.Region = DefaultRegion
	}
	api, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}
	return &Client{api: api, bucket: opts.Bucket}, nil
}

// Upload stores a local file under key, replacing any existing object
func (c *Client) Upload(ctx context.Context, localPath, key string) error {
	if storage.IsVideo(localPath) {
		return storage.ErrVideoSkipped
	}
	if _, err := c.api.FPutObject(ctx, c.bucket, key, localPath, minio.PutObjectOptions{}); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// List returns every object in the bucket
func (c *Client) List(ctx context.Context) ([]types.BlobDescriptor, error) {
	var out []types.BlobDescriptor
	for obj := range c.api.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing bucket %s: %w", c.bucket, obj.Err)
		}
		out = append(out, types.BlobDescriptor{Name: obj.Key, Size: obj.Size})
	}
	return out, nil
}

// Download reads a whole object into memory
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", key, err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Delete removes an object
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.api.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Copy performs a server-side copy inside the bucket. S3 completes it before
// responding, so no polling is needed.
func (c *Client) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := c.api.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: c.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: c.bucket, Object: srcKey},
	)
	if err != nil {
		return fmt.Errorf("%w: %s -> %s: %v", storage.ErrCopyFailed, srcKey, dstKey, err)
	}
	return nil
}
