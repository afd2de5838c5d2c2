// Package pipeline moves images between a local folder and an object store,
// sorting remote objects into a target folder when a vision backend finds one
// of the requested keywords in them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/menta2k/image-sorter/internal/utils"
	"github.com/menta2k/image-sorter/pkg/classifier"
	"github.com/menta2k/image-sorter/pkg/storage"
	"github.com/menta2k/image-sorter/pkg/types"
)

// Classifier decides whether an image shows a keyword
type Classifier interface {
	Classify(ctx context.Context, src types.ImageSource, keyword string) types.ClassifyResult
}

// Options configures a Pipeline
type Options struct {
	// TargetFolder is the prefix accepted images are copied under
	TargetFolder string
	// TempDir holds downloaded objects while they are classified; empty means the OS default
	TempDir string
	// Move deletes the source object once its copy is in the target folder.
	// A move never replaces an object that already exists there.
	Move   bool
	Logger zerolog.Logger
}

// Steps selects what Run does. Steps always execute in the order
// upload, clean, analyze, download.
type Steps struct {
	UploadDir   string
	Clean       bool
	Analyze     bool
	DownloadDir string
	Keywords    []string
}

// Empty reports whether no step was requested
func (s Steps) Empty() bool {
	return s.UploadDir == "" && !s.Clean && !s.Analyze && s.DownloadDir == ""
}

// Step names used in reports and logs
const (
	StepUpload   = "upload"
	StepClean    = "clean"
	StepAnalyze  = "analyze"
	StepDownload = "download"
)

// Report summarizes one step
type Report struct {
	Step      string
	Processed int
	Done      int
	Skipped   int
	Failed    int
	Bytes     int64
	Duration  time.Duration
}

// Pipeline runs the sorting steps against an object store
type Pipeline struct {
	store  storage.ObjectStore
	cls    Classifier
	target string
	tmpDir string
	move   bool
	log    zerolog.Logger
}

// New creates a Pipeline
func New(store storage.ObjectStore, cls Classifier, opts Options) *Pipeline {
	return &Pipeline{
		store:  store,
		cls:    cls,
		target: storage.NormalizeFolder(opts.TargetFolder),
		tmpDir: opts.TempDir,
		move:   opts.Move,
		log:    opts.Logger,
	}
}

// TargetFolder returns the prefix accepted images are copied under
func (p *Pipeline) TargetFolder() string {
	return p.target
}

// Run executes the requested steps in order and returns one report per step
// that ran. Item failures never abort a step; a cancelled context stops the run.
func (p *Pipeline) Run(ctx context.Context, steps Steps) []Report {
	runLog := p.log.With().Str("run_id", uuid.NewString()).Logger()
	ctx = runLog.WithContext(ctx)

	var reports []Report
	add := func(r Report) {
		reports = append(reports, r)
		logReport(&runLog, r)
	}

	if steps.UploadDir != "" && ctx.Err() == nil {
		add(p.Upload(ctx, steps.UploadDir))
	}
	if steps.Clean && ctx.Err() == nil {
		add(p.Clean(ctx))
	}
	if steps.Analyze && ctx.Err() == nil {
		add(p.AnalyzeAndMove(ctx, steps.Keywords))
	}
	if steps.DownloadDir != "" && ctx.Err() == nil {
		add(p.Download(ctx, steps.DownloadDir))
	}
	if err := ctx.Err(); err != nil {
		runLog.Warn().Err(err).Msg("run interrupted")
	}
	return reports
}

// Upload stores every non-video regular file directly inside dir under its
// base name, overwriting existing objects.
func (p *Pipeline) Upload(ctx context.Context, dir string) (r Report) {
	log := p.logger(ctx)
	r = Report{Step: StepUpload}
	start := time.Now()
	defer func() { r.Duration = time.Since(start) }()

	files, err := utils.ListRegularFiles(dir)
	if err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("cannot list upload directory")
		r.Failed++
		return r
	}

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		r.Processed++
		name := filepath.Base(path)
		if storage.IsVideo(name) {
			log.Info().Str("file", name).Msg("skipping video file")
			r.Skipped++
			continue
		}

		err := p.store.Upload(ctx, path, name)
		switch {
		case errors.Is(err, storage.ErrVideoSkipped):
			r.Skipped++
		case err != nil:
			log.Error().Err(err).Str("file", name).Msg("upload failed")
			r.Failed++
		default:
			if info, statErr := os.Stat(path); statErr == nil {
				r.Bytes += info.Size()
			}
			log.Info().Str("blob", name).Msg("uploaded")
			r.Done++
		}
	}
	return r
}

// Clean deletes every object outside the target folder
func (p *Pipeline) Clean(ctx context.Context) (r Report) {
	log := p.logger(ctx)
	r = Report{Step: StepClean}
	start := time.Now()
	defer func() { r.Duration = time.Since(start) }()

	blobs, err := p.store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("cannot list objects")
		r.Failed++
		return r
	}

	for _, b := range blobs {
		if ctx.Err() != nil {
			break
		}
		if storage.InFolder(b.Name, p.target) {
			continue
		}
		r.Processed++
		if err := p.store.Delete(ctx, b.Name); err != nil {
			log.Error().Err(err).Str("blob", b.Name).Msg("delete failed")
			r.Failed++
			continue
		}
		log.Info().Str("blob", b.Name).Msg("deleted")
		r.Bytes += b.Size
		r.Done++
	}
	log.Info().Str("kept", p.target).Msg("container cleaned")
	return r
}

// AnalyzeAndMove classifies every image outside the target folder and copies
// the ones showing any of keywords into it, deleting the source when the
// pipeline moves. An empty keyword list uses the classifier's default keyword.
// Copies land under the object's base name, so in move mode a destination that
// already exists is left alone and the source is kept.
func (p *Pipeline) AnalyzeAndMove(ctx context.Context, keywords []string) (r Report) {
	log := p.logger(ctx)
	r = Report{Step: StepAnalyze}
	start := time.Now()
	defer func() { r.Duration = time.Since(start) }()

	keywords = cleanKeywords(keywords)
	if len(keywords) == 0 {
		keywords = []string{""}
	}

	blobs, err := p.store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("cannot list objects")
		r.Failed++
		return r
	}

	existing := make(map[string]struct{}, len(blobs))
	for _, b := range blobs {
		existing[b.Name] = struct{}{}
	}

	for _, b := range blobs {
		if ctx.Err() != nil {
			break
		}
		if storage.InFolder(b.Name, p.target) {
			continue
		}
		r.Processed++
		if storage.IsVideo(b.Name) {
			log.Info().Str("blob", b.Name).Msg("skipping video file")
			r.Skipped++
			continue
		}

		copied, err := p.analyzeOne(ctx, log, b, keywords, existing)
		switch {
		case errors.Is(err, storage.ErrDestinationExists):
			log.Warn().Err(err).Str("blob", b.Name).Msg("not moving, source kept")
			r.Failed++
		case err != nil:
			log.Error().Err(err).Str("blob", b.Name).Msg("analysis failed")
			r.Failed++
		case copied:
			r.Bytes += b.Size
			r.Done++
		default:
			r.Skipped++
		}
	}
	return r
}

// analyzeOne reports whether b was copied into the target folder. existing
// holds every key known to be in the store and is updated with new copies.
func (p *Pipeline) analyzeOne(ctx context.Context, log *zerolog.Logger, b types.BlobDescriptor, keywords []string, existing map[string]struct{}) (bool, error) {
	data, err := p.store.Download(ctx, b.Name)
	if err != nil {
		return false, err
	}

	tmpPath, err := p.writeTemp(b.Name, data)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", tmpPath).Msg("cannot remove temp file")
		}
	}()

	matched := false
	for _, kw := range keywords {
		res := p.cls.Classify(ctx, types.ImageSource{Path: tmpPath}, kw)
		if res.Matched || classifier.AnyKeywordInTags(keywords, res.Tags) {
			log.Info().Str("blob", b.Name).Str("keyword", res.Keyword).Strs("tags", res.Tags).Msg("keyword found")
			matched = true
			break
		}
	}
	if !matched {
		log.Info().Str("blob", b.Name).Strs("keywords", keywords).Msg("no keyword found, leaving in place")
		return false, nil
	}

	dst := storage.FolderKey(p.target, b.Name)
	_, taken := existing[dst]
	if taken && p.move {
		return false, fmt.Errorf("%w: %s", storage.ErrDestinationExists, dst)
	}
	if taken {
		log.Warn().Str("blob", b.Name).Str("to", dst).Msg("overwriting existing copy")
	}
	if err := p.store.Copy(ctx, b.Name, dst); err != nil {
		return false, fmt.Errorf("copying to %s: %w", dst, err)
	}
	existing[dst] = struct{}{}

	if !p.move {
		log.Info().Str("blob", b.Name).Str("to", dst).Msg("copied")
		return true, nil
	}
	if err := p.store.Delete(ctx, b.Name); err != nil {
		return false, fmt.Errorf("removing source after copy to %s: %w", dst, err)
	}
	delete(existing, b.Name)
	log.Info().Str("blob", b.Name).Str("to", dst).Msg("moved")
	return true, nil
}

// writeTemp stores data in a temp file whose name ends with the object's base name
func (p *Pipeline) writeTemp(name string, data []byte) (string, error) {
	f, err := os.CreateTemp(p.tmpDir, "temp_*_"+storage.BaseName(name))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return f.Name(), nil
}

// Download writes every object in the target folder into dir under its base name
func (p *Pipeline) Download(ctx context.Context, dir string) (r Report) {
	log := p.logger(ctx)
	r = Report{Step: StepDownload}
	start := time.Now()
	defer func() { r.Duration = time.Since(start) }()

	if err := utils.EnsureDir(dir); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("cannot create download directory")
		r.Failed++
		return r
	}

	blobs, err := p.store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("cannot list objects")
		r.Failed++
		return r
	}

	for _, b := range blobs {
		if ctx.Err() != nil {
			break
		}
		if !storage.InFolder(b.Name, p.target) || strings.HasSuffix(b.Name, "/") {
			continue
		}
		r.Processed++

		data, err := p.store.Download(ctx, b.Name)
		if err != nil {
			log.Error().Err(err).Str("blob", b.Name).Msg("download failed")
			r.Failed++
			continue
		}
		local := filepath.Join(dir, storage.BaseName(b.Name))
		if err := os.WriteFile(local, data, 0644); err != nil {
			log.Error().Err(err).Str("file", local).Msg("write failed")
			r.Failed++
			continue
		}
		log.Info().Str("blob", b.Name).Str("file", local).Msg("downloaded")
		r.Bytes += int64(len(data))
		r.Done++
	}
	return r
}

// logger prefers the run-scoped logger carried by ctx
func (p *Pipeline) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &p.log
}

func cleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
