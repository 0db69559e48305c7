package worker

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress tracks and displays tile fetch progress.
type Progress struct {
	startTime time.Time
	bar       *progressbar.ProgressBar
	total     int
	completed int
	failed    int
	mu        sync.RWMutex
}

// NewProgress creates a progress tracker drawing to stderr when enabled.
func NewProgress(total int, enabled bool) *Progress {
	return newProgress(total, enabled, os.Stderr)
}

func newProgress(total int, enabled bool, out io.Writer) *Progress {
	theme := progressbar.Theme{
		Saucer:        "=",
		SaucerHead:    ">",
		SaucerPadding: " ",
		BarStart:      "[",
		BarEnd:        "]",
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetVisibility(enabled),
		progressbar.OptionSetTheme(theme),
		progressbar.OptionSetDescription("fetching tiles"),
		progressbar.OptionSetItsString("tiles"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	return &Progress{
		startTime: time.Now(),
		bar:       bar,
		total:     total,
	}
}

// Update records the completion of a task.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed = completed
	p.total = total
	p.failed = failed
	p.mu.Unlock()

	if failed > 0 {
		p.bar.Describe(fmt.Sprintf("fetching tiles (%d failed)", failed))
	}
	_ = p.bar.Set(completed)
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// Done completes the bar.
func (p *Progress) Done() {
	_ = p.bar.Finish()
}

// Summary returns a summary string of the completed work.
func (p *Progress) Summary() string {
	p.mu.RLock()
	completed := p.completed
	total := p.total
	failed := p.failed
	startTime := p.startTime
	p.mu.RUnlock()

	elapsed := time.Since(startTime)
	successful := completed - failed

	var rate float64
	if elapsed.Seconds() > 0 {
		rate = float64(completed) / elapsed.Seconds()
	}

	return fmt.Sprintf("Fetched %d/%d tiles (%d failed) in %s (%.1f tiles/sec)",
		successful, total, failed, formatDuration(elapsed), rate)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, mins)
}
