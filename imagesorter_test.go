package imagesorter

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-sorter/internal/config"
	"github.com/menta2k/image-sorter/mocks"
	"github.com/menta2k/image-sorter/pkg/azurevision"
	"github.com/menta2k/image-sorter/pkg/llamacpp"
	"github.com/menta2k/image-sorter/pkg/ollama"
	"github.com/menta2k/image-sorter/pkg/openaivision"
	"github.com/menta2k/image-sorter/pkg/storage/azure"
	"github.com/menta2k/image-sorter/pkg/storage/s3"
)

const devConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;" +
	"AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;" +
	"BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func visionConfig(backend string) *config.Config {
	return &config.Config{Vision: config.VisionConfig{
		Backend:       backend,
		AzureKey:      "key",
		AzureEndpoint: "https://example.cognitiveservices.azure.com",
		OllamaURL:     "http://localhost:11434",
		LlamaCppURL:   "http://localhost:8080",
		OpenAIKey:     "sk-test",
		Timeout:       time.Minute,
		SendFormat:    "jpg",
		SendSize:      1536,
		SendQuality:   85,
		Keyword:       "tree",
	}}
}

func TestNewVisionClient(t *testing.T) {
	tests := []struct {
		backend string
		want    any
	}{
		{config.BackendAzure, &azurevision.Client{}},
		{config.BackendOllama, &ollama.Client{}},
		{config.BackendLlamaCpp, &llamacpp.Client{}},
		{config.BackendOpenAI, &openaivision.Client{}},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			vc, err := NewVisionClient(visionConfig(tt.backend))
			require.NoError(t, err)
			assert.IsType(t, tt.want, vc)
		})
	}
}

func TestNewVisionClientErrors(t *testing.T) {
	cfg := visionConfig(config.BackendAzure)
	cfg.Vision.AzureKey = ""
	vc, err := NewVisionClient(cfg)
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
	assert.Nil(t, vc)

	_, err = NewVisionClient(visionConfig("bard"))
	assert.ErrorIs(t, err, config.ErrUnknownBackend)
}

func TestNewObjectStore(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Backend:          config.StorageAzure,
		ConnectionString: devConnString,
		Container:        "images",
	}}
	store, err := NewObjectStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &azure.Client{}, store)

	cfg.Storage = config.StorageConfig{Backend: config.StorageS3, S3: config.S3Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "images",
	}}
	store, err = NewObjectStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &s3.Client{}, store)

	cfg.Storage.Backend = "ftp"
	_, err = NewObjectStore(cfg)
	assert.ErrorIs(t, err, config.ErrUnknownBackend)

	cfg.Storage = config.StorageConfig{Backend: config.StorageAzure}
	_, err = NewObjectStore(cfg)
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}

func TestNewClassifierAndPipeline(t *testing.T) {
	cfg := visionConfig(config.BackendAzure)
	cfg.Vision.Keyword = "cat"
	cfg.Pipeline.TargetFolder = "cats"

	cls := NewClassifier(cfg, new(mocks.MockVisionClient), zerolog.Nop())
	assert.Equal(t, "cat", cls.DefaultKeyword())

	p := NewPipeline(cfg, new(mocks.MockObjectStore), cls, false, zerolog.Nop())
	assert.Equal(t, "cats/", p.TargetFolder())
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
