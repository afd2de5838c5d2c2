package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	imagesorter "github.com/menta2k/image-sorter"
	"github.com/menta2k/image-sorter/internal/config"
	"github.com/menta2k/image-sorter/internal/logger"
	"github.com/menta2k/image-sorter/internal/utils"
	"github.com/menta2k/image-sorter/pkg/classifier"
	"github.com/menta2k/image-sorter/pkg/client"
	"github.com/menta2k/image-sorter/pkg/detection"
	"github.com/menta2k/image-sorter/pkg/processing"
	"github.com/menta2k/image-sorter/pkg/types"
)

// sampleImageURL is a public image that shows a laptop
const sampleImageURL = "https://raw.githubusercontent.com/Azure-Samples/cognitive-services-sample-data-files/master/ComputerVision/Images/objects.jpg"

// app holds what the subcommands share
type app struct {
	cfg *config.Config
	vc  client.VisionClient
	cls *classifier.Classifier
}

// describer is implemented by backends that answer free-text prompts
type describer interface {
	SimpleQuery(ctx context.Context, prompt string, src types.ImageSource) (string, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	cliApp := &cli.App{
		Name:    "image-analyzer",
		Usage:   "Check whether an image shows a keyword using a vision backend",
		Version: imagesorter.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Optional config file (yaml, json or toml)",
				EnvVars: []string{"IMAGE_SORTER_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before: a.setup,
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "Analyze an image URL or local file for a keyword",
				ArgsUsage: "<url|path> [keyword]",
				Action:    a.analyze,
			},
			{
				Name:      "download",
				Usage:     "Download an image over HTTP into a directory",
				ArgsUsage: "<url> <dir> <filename>",
				Action:    a.download,
			},
			{
				Name:   "selftest",
				Usage:  "Analyze a public sample image for \"laptop\"",
				Action: a.selftest,
			},
		},
		Action: a.selftest,
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("image-analyzer failed")
		os.Exit(1)
	}
}

// setup loads configuration and fails fast when the vision backend has no credentials
func (a *app) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if c.IsSet("log-level") {
		logger.SetLevel(c.String("log-level"))
	}
	log := logger.Log

	vc, err := imagesorter.NewVisionClient(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("vision backend: %v", err), 1)
	}
	a.cfg = cfg
	a.vc = vc
	a.cls = imagesorter.NewClassifier(cfg, vc, log)
	return nil
}

func (a *app) analyze(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.ShowCommandHelp(c, c.Command.Name)
	}
	src := sourceFor(c.Args().Get(0))
	res := a.cls.Classify(c.Context, src, c.Args().Get(1))
	printResult(src, res)
	return nil
}

func (a *app) download(c *cli.Context) error {
	if c.NArg() < 3 {
		return cli.ShowCommandHelp(c, c.Command.Name)
	}
	url, dir, name := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)

	if err := downloadImage(c.Context, processing.NewProcessor(), url, dir, name); err != nil {
		fmt.Printf("Failed to download image: %v\n", err)
		return nil
	}
	fmt.Printf("Image downloaded to %s\n", filepath.Join(dir, utils.SanitizeFilename(name)))
	return nil
}

func (a *app) selftest(c *cli.Context) error {
	fmt.Printf("Testing %s vision backend...\n", a.cfg.Vision.Backend)
	src := types.ImageSource{URL: sampleImageURL}
	res := a.cls.Classify(c.Context, src, "laptop")
	printResult(src, res)

	if text, ok, err := describe(c.Context, a.vc, src); ok {
		if err != nil {
			fmt.Printf("Free-text query failed: %v\n", err)
		} else {
			fmt.Printf("Model says: %s\n", strings.TrimSpace(text))
		}
	}

	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  image-analyzer analyze <url|path> [keyword]")
	fmt.Println("  image-analyzer download <url> <dir> <filename>")
	return nil
}

// describe asks vc what it sees in src when the backend takes free-text
// prompts. ok is false for backends that only return structured analysis.
func describe(ctx context.Context, vc client.VisionClient, src types.ImageSource) (text string, ok bool, err error) {
	d, ok := vc.(describer)
	if !ok {
		return "", false, nil
	}
	text, err = d.SimpleQuery(ctx, detection.SimpleTestPrompt, src)
	return text, true, err
}

// downloadImage creates dir, then fetches url and writes it to dir/name
func downloadImage(ctx context.Context, p *processing.Processor, url, dir, name string) error {
	if err := utils.EnsureDir(dir); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	data, _, err := p.FetchURL(ctx, url)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, utils.SanitizeFilename(name)), data, 0644)
}

func sourceFor(arg string) types.ImageSource {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return types.ImageSource{URL: arg}
	}
	return types.ImageSource{Path: arg}
}

func printResult(src types.ImageSource, res types.ClassifyResult) {
	if res.Matched {
		fmt.Printf("✓ %q found in %s (%s)\n", res.Keyword, src, res.MatchedIn)
	} else {
		fmt.Printf("✗ %q not found in %s\n", res.Keyword, src)
	}
	if len(res.Tags) > 0 {
		fmt.Printf("Tags: %s\n", strings.Join(res.Tags, ", "))
	}
}
