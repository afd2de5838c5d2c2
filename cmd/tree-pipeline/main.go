package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	imagesorter "github.com/menta2k/image-sorter"
	"github.com/menta2k/image-sorter/internal/config"
	"github.com/menta2k/image-sorter/internal/logger"
	"github.com/menta2k/image-sorter/pkg/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:      "tree-pipeline",
		Usage:     "Upload images, sort the ones showing a keyword into the target folder, download the result",
		UsageText: "tree-pipeline [--upload DIR] [--clean] [--analyze] [--download DIR] [--keywords WORD[,WORD...]] [--move]",
		Version:   imagesorter.Version,
		Flags:     flags(),
		Action:    run,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("tree-pipeline failed")
		os.Exit(1)
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "upload",
			Usage: "Upload images from this local directory",
		},
		&cli.BoolFlag{
			Name:  "clean",
			Usage: "Delete every object outside the target folder",
		},
		&cli.BoolFlag{
			Name:  "analyze",
			Usage: "Analyze objects and copy the matching ones into the target folder",
		},
		&cli.StringFlag{
			Name:  "download",
			Usage: "Download the target folder into this local directory",
		},
		&cli.StringSliceFlag{
			Name:  "keywords",
			Usage: "Keywords to look for (repeat the flag or separate words with commas)",
		},
		&cli.BoolFlag{
			Name:  "move",
			Usage: "Delete matched objects after copying them, never replacing an existing copy",
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Optional config file (yaml, json or toml)",
			EnvVars: []string{"IMAGE_SORTER_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
		},
	}
}

func run(c *cli.Context) error {
	if c.Args().Present() {
		return cli.Exit(fmt.Sprintf("unexpected arguments %q: repeat --keywords or separate keywords with commas", c.Args().Slice()), 2)
	}

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

	steps := pipeline.Steps{
		UploadDir:   c.String("upload"),
		Clean:       c.Bool("clean"),
		Analyze:     c.Bool("analyze"),
		DownloadDir: c.String("download"),
		Keywords:    keywords(c, cfg.Vision.Keyword),
	}
	if steps.Empty() {
		return cli.ShowAppHelp(c)
	}

	store, err := imagesorter.NewObjectStore(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("object store: %v", err), 1)
	}

	cls := imagesorter.NewClassifier(cfg, vc, log)
	p := imagesorter.NewPipeline(cfg, store, cls, c.Bool("move"), log)

	log.Info().
		Str("vision", cfg.Vision.Backend).
		Str("storage", cfg.Storage.Backend).
		Str("target", p.TargetFolder()).
		Bool("move", c.Bool("move")).
		Strs("keywords", steps.Keywords).
		Msg("starting pipeline")

	for _, r := range p.Run(c.Context, steps) {
		fmt.Println(r)
	}
	return nil
}

// keywords returns the --keywords values, or fallback when none were given
func keywords(c *cli.Context, fallback string) []string {
	kws := c.StringSlice("keywords")
	if len(kws) == 0 && fallback != "" {
		kws = []string{fallback}
	}
	return kws
}
