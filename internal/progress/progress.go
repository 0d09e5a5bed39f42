// Package progress draws a file-count progress bar on stderr.
package progress

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar. The zero value and a nil *Tracker are
// disabled trackers whose methods do nothing.
type Tracker struct {
	bar *progressbar.ProgressBar
}

// New creates a tracker counting up to total, drawn on w.
func New(w io.Writer, label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar}
}

// Disabled returns a tracker that draws nothing.
func Disabled() *Tracker {
	return &Tracker{}
}

// Tick advances the bar by one file. Safe for concurrent use.
func (t *Tracker) Tick() {
	if t == nil || t.bar == nil {
		return
	}
	_ = t.bar.Add(1)
}

// Count reports how many ticks have been recorded.
func (t *Tracker) Count() int {
	if t == nil || t.bar == nil {
		return 0
	}
	return int(t.bar.State().CurrentNum)
}

// Finish completes and clears the bar.
func (t *Tracker) Finish() {
	if t == nil || t.bar == nil {
		return
	}
	_ = t.bar.Finish()
	_ = t.bar.Clear()
}
