// Package ui renders transfer progress on the console for command line
// usage.
package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"drivebot/internal/progress"
	"drivebot/pkg/utils"
)

// ProgressUI renders progress snapshots as a console bar. A new bar is
// started whenever the incoming snapshot names a different file, so a
// directory upload shows one bar per file.
type ProgressUI struct {
	bar     *progressbar.ProgressBar
	current string
}

// NewProgressUI creates a new progress UI
func NewProgressUI() *ProgressUI {
	return &ProgressUI{}
}

// Update consumes one progress snapshot. It has the progress.Func shape
// and is passed directly as the transfer progress callback.
func (p *ProgressUI) Update(s progress.Snapshot) {
	if p.bar == nil || p.current != s.Name {
		p.Finish()
		p.start(s)
	}

	_ = p.bar.Set64(s.Transferred)
	p.bar.Describe(fmt.Sprintf("%s %s (%.1f%% - %s/s)",
		s.Operation, s.Name, s.Percentage, utils.FormatBytes(int64(s.Speed))))

	if s.Done {
		_ = p.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

func (p *ProgressUI) start(s progress.Snapshot) {
	p.current = s.Name
	p.bar = progressbar.NewOptions64(s.Total,
		progressbar.OptionSetDescription(fmt.Sprintf("%s %s", s.Operation, s.Name)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
}

// Finish closes the current bar, if any
func (p *ProgressUI) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
	p.current = ""
}
