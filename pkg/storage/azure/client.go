// Package azure implements storage.ObjectStore on an Azure Blob Storage container.
package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/menta2k/image-sorter/pkg/storage"
	"github.com/menta2k/image-sorter/pkg/types"
)

const (
	// DefaultCopyPollInterval is how often a pending server-side copy is checked
	DefaultCopyPollInterval = time.Second
	// DefaultCopyTimeout bounds the wait for a pending copy before ErrCopyIncomplete
	DefaultCopyTimeout = 2 * time.Minute
)

// Options configures the Azure blob store
type Options struct {
	ConnectionString string
	Container        string
	CopyPollInterval time.Duration
	CopyTimeout      time.Duration
}

// Client is an ObjectStore bound to one container
type Client struct {
	api          *azblob.Client
	container    string
	pollInterval time.Duration
	copyTimeout  time.Duration
}

var _ storage.ObjectStore = (*Client)(nil)

// propertiesGetter is the part of blob.Client the copy wait needs
type propertiesGetter interface {
	GetProperties(ctx context.Context, o *blob.GetPropertiesOptions) (blob.GetPropertiesResponse, error)
}

// New creates a client from a storage account connection string
func New(opts Options) (*Client, error) {
	if opts.ConnectionString == "" {
		return nil, errors.New("blob connection string must be provided")
	}
	if opts.Container == "" {
		return nil, errors.New("blob container must be provided")
	}
	api, err := azblob.NewClientFromConnectionString(opts.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("creating blob client: %w", err)
	}
	if opts.CopyPollInterval <= 0 {
		opts.CopyPollInterval = DefaultCopyPollInterval
	}
	if opts.CopyTimeout <= 0 {
		opts.CopyTimeout = DefaultCopyTimeout
	}
	return &Client{
		api:          api,
		container:    opts.Container,
		pollInterval: opts.CopyPollInterval,
		copyTimeout:  opts.CopyTimeout,
	}, nil
}

// Upload stores a local file under key, replacing any existing blob
func (c *Client) Upload(ctx context.Context, localPath, key string) error {
	if storage.IsVideo(localPath) {
		return storage.ErrVideoSkipped
	}
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := c.api.UploadFile(ctx, c.container, key, f, nil); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// List returns every blob in the container
func (c *Client) List(ctx context.Context) ([]types.BlobDescriptor, error) {
	var out []types.BlobDescriptor
	pager := c.api.NewListBlobsFlatPager(c.container, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing container %s: %w", c.container, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			d := types.BlobDescriptor{Name: *item.Name}
			if item.Properties != nil && item.Properties.ContentLength != nil {
				d.Size = *item.Properties.ContentLength
			}
			out = append(out, d)
		}
	}
	return out, nil
}

// Download reads a whole blob into memory
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.api.DownloadStream(ctx, c.container, key, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Delete removes a blob
func (c *Client) Delete(ctx context.Context, key string) error {
	if _, err := c.api.DeleteBlob(ctx, c.container, key, nil); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Copy starts a server-side copy and waits until the destination reports success
func (c *Client) Copy(ctx context.Context, srcKey, dstKey string) error {
	cc := c.api.ServiceClient().NewContainerClient(c.container)
	src := cc.NewBlobClient(srcKey)
	dst := cc.NewBlobClient(dstKey)

	resp, err := dst.StartCopyFromURL(ctx, src.URL(), nil)
	if err != nil {
		return fmt.Errorf("starting copy %s -> %s: %w", srcKey, dstKey, err)
	}
	if resp.CopyStatus != nil && *resp.CopyStatus == blob.CopyStatusTypeSuccess {
		return nil
	}
	return waitForCopy(ctx, dst, c.pollInterval, c.copyTimeout)
}

// waitForCopy polls the destination until its copy status leaves "pending"
func waitForCopy(ctx context.Context, dst propertiesGetter, interval, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		props, err := dst.GetProperties(ctx, nil)
		if err != nil {
			if ctx.Err() != nil {
				return storage.ErrCopyIncomplete
			}
			return fmt.Errorf("reading copy status: %w", err)
		}

		status := blob.CopyStatusTypePending
		if props.CopyStatus != nil {
			status = *props.CopyStatus
		}
		switch status {
		case blob.CopyStatusTypeSuccess:
			return nil
		case blob.CopyStatusTypeAborted, blob.CopyStatusTypeFailed:
			desc := ""
			if props.CopyStatusDescription != nil {
				desc = *props.CopyStatusDescription
			}
			return fmt.Errorf("%w: %s %s", storage.ErrCopyFailed, status, desc)
		}

		select {
		case <-ctx.Done():
			return storage.ErrCopyIncomplete
		case <-ticker.C:
		}
	}
}
