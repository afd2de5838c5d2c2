package pipeline

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/menta2k/image-sorter/internal/utils"
)

// String renders a one-line summary
func (r Report) String() string {
	return fmt.Sprintf("%s: %d processed, %d done, %d skipped, %d failed, %s in %s",
		r.Step, r.Processed, r.Done, r.Skipped, r.Failed,
		utils.FormatFileSize(r.Bytes), r.Duration.Round(time.Millisecond))
}

// HasFailures reports whether any item in the step failed
func (r Report) HasFailures() bool {
	return r.Failed > 0
}

func logReport(log *zerolog.Logger, r Report) {
	ev := log.Info()
	if r.HasFailures() {
		ev = log.Warn()
	}
	ev.Str("step", r.Step).
		Int("processed", r.Processed).
		Int("done", r.Done).
		Int("skipped", r.Skipped).
		Int("failed", r.Failed).
		Str("size", utils.FormatFileSize(r.Bytes)).
		Dur("took", r.Duration).
		Msgf("%s step finished, %s items handled", r.Step, humanize.Comma(int64(r.Done)))
}
