package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/tablero/internal/ingest"
	"github.com/schollz/progressbar/v3"
)

// SyncProgress draws one progress bar per source as its sheets are
// processed. Observe matches ingest.ProgressFunc.
type SyncProgress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
}

// NewSyncProgress creates a progress renderer writing to w.
func NewSyncProgress(w io.Writer) *SyncProgress {
	return &SyncProgress{writer: w}
}

// Observe handles one pipeline event.
func (p *SyncProgress) Observe(ev ingest.ProgressEvent) {
	if ev.Sheet == nil {
		p.startSource(ev)
		return
	}
	if p.bar == nil {
		return
	}
	p.bar.Describe(fmt.Sprintf("[cyan][bold]%s[reset] %s", ev.Source, ev.Sheet.Sheet))
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

func (p *SyncProgress) startSource(ev ingest.ProgressEvent) {
	p.bar = nil
	switch {
	case ev.Err != nil:
		p.println(FormatError(fmt.Sprintf("%s: %v", ev.Source, ev.Err)))
		return
	case ev.SheetCount == 0:
		p.println(FormatWarning(ev.Source + ": no sheets to process"))
		return
	}

	p.bar = progressbar.NewOptions(ev.SheetCount,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][bold]%s[reset]", ev.Source)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			p.println("")
		}),
	)
}

func (p *SyncProgress) println(s string) {
	if _, err := fmt.Fprintln(p.writer, s); err != nil {
		slog.Warn("Failed to write progress", "error", err)
	}
}
