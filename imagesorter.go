// Package imagesorter sorts images by what a vision service sees in them.
//
// A vision backend (Azure Computer Vision, Ollama, llama.cpp or any
// OpenAI-compatible API) tags an image; the classifier checks those tags,
// object labels and captions for a keyword; the pipeline uses the verdict to
// move objects in Azure Blob Storage or an S3 bucket into a target folder.
//
// Basic usage:
//
//	cfg, err := config.Load("")
//	if err != nil {
//		log.Fatal(err)
//	}
//	vc, err := imagesorter.NewVisionClient(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	cls := imagesorter.NewClassifier(cfg, vc, logger.Log)
//	res := cls.Classify(ctx, types.ImageSource{URL: "https://example.com/park.jpg"}, "tree")
//	fmt.Println(res.Matched, res.Tags)
//
// The package consists of these components:
//
// 1. Vision clients (pkg/azurevision, pkg/ollama, pkg/llamacpp, pkg/openaivision)
// 2. Classifier (pkg/classifier): keyword matching over an analysis
// 3. Storage (pkg/storage/azure, pkg/storage/s3): object store adapters
// 4. Pipeline (pkg/pipeline): upload, clean, analyze-and-move, download
package imagesorter

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/menta2k/image-sorter/internal/config"
	"github.com/menta2k/image-sorter/pkg/azurevision"
	"github.com/menta2k/image-sorter/pkg/classifier"
	"github.com/menta2k/image-sorter/pkg/client"
	"github.com/menta2k/image-sorter/pkg/llamacpp"
	"github.com/menta2k/image-sorter/pkg/ollama"
	"github.com/menta2k/image-sorter/pkg/openaivision"
	"github.com/menta2k/image-sorter/pkg/pipeline"
	"github.com/menta2k/image-sorter/pkg/storage"
	"github.com/menta2k/image-sorter/pkg/storage/azure"
	"github.com/menta2k/image-sorter/pkg/storage/s3"
	"github.com/menta2k/image-sorter/pkg/types"
)

// Version of the image sorter
const Version = "1.0.0"

// NewVisionClient builds the vision backend selected by cfg.Vision.Backend
func NewVisionClient(cfg *config.Config) (client.VisionClient, error) {
	if err := cfg.ValidateVision(); err != nil {
		return nil, err
	}
	v := cfg.Vision
	prepare := types.PrepareOptions{Format: v.SendFormat, MaxSize: v.SendSize, Quality: v.SendQuality}

	var (
		vc  client.VisionClient
		err error
	)
	switch v.Backend {
	case config.BackendAzure:
		vc, err = azurevision.NewClient(v.AzureEndpoint, v.AzureKey, v.Timeout)
	case config.BackendOllama:
		vc, err = ollama.NewClient(v.OllamaURL, ollama.Options{Model: v.Model, Timeout: v.Timeout, Prepare: prepare})
	case config.BackendLlamaCpp:
		vc, err = llamacpp.NewClient(v.LlamaCppURL, llamacpp.Options{Model: v.Model, Timeout: v.Timeout, Prepare: prepare})
	case config.BackendOpenAI:
		vc, err = openaivision.NewClient(openaivision.Options{
			APIKey:  v.OpenAIKey,
			BaseURL: v.OpenAIBaseURL,
			Model:   v.Model,
			Timeout: v.Timeout,
			Prepare: prepare,
		})
	default:
		return nil, fmt.Errorf("%w: vision backend %q", config.ErrUnknownBackend, v.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s vision client: %w", v.Backend, err)
	}
	return vc, nil
}

// NewObjectStore builds the object store selected by cfg.Storage.Backend
func NewObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}
	s := cfg.Storage

	var (
		store storage.ObjectStore
		err   error
	)
	switch s.Backend {
	case config.StorageAzure:
		store, err = azure.New(azure.Options{
			ConnectionString: s.ConnectionString,
			Container:        s.Container,
			CopyPollInterval: s.CopyPollInterval,
			CopyTimeout:      s.CopyTimeout,
		})
	case config.StorageS3:
		store, err = s3.New(s3.Options{
			Endpoint:  s.S3.Endpoint,
			AccessKey: s.S3.AccessKey,
			SecretKey: s.S3.SecretKey,
			Bucket:    s.S3.Bucket,
			Region:    s.S3.Region,
			UseSSL:    s.S3.UseSSL,
		})
	default:
		return nil, fmt.Errorf("%w: storage backend %q", config.ErrUnknownBackend, s.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s object store: %w", s.Backend, err)
	}
	return store, nil
}

// NewClassifier wraps vc with the configured default keyword
func NewClassifier(cfg *config.Config, vc client.VisionClient, log zerolog.Logger) *classifier.Classifier {
	return classifier.New(vc,
		classifier.WithDefaultKeyword(cfg.Vision.Keyword),
		classifier.WithLogger(log),
	)
}

// NewPipeline wires a pipeline from configuration. With move set, matched
// objects are deleted after being copied into the target folder.
func NewPipeline(cfg *config.Config, store storage.ObjectStore, cls pipeline.Classifier, move bool, log zerolog.Logger) *pipeline.Pipeline {
	return pipeline.New(store, cls, pipeline.Options{
		TargetFolder: cfg.Pipeline.TargetFolder,
		TempDir:      cfg.Pipeline.TempDir,
		Move:         move,
		Logger:       log,
	})
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
