package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter receives progress counts from a long-running step.
type Reporter interface {
	Start(total int)
	Increment()
	Finish()
}

// New returns a Bar when w is an interactive terminal and a Lines reporter
// otherwise.
func New(w io.Writer, description string) Reporter {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return &Bar{w: w, description: description}
	}
	return &Lines{w: w, description: description, every: 10}
}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(int)  {}
func (Nop) Increment() {}
func (Nop) Finish()    {}

// Bar renders a terminal progress bar.
type Bar struct {
	w           io.Writer
	description string
	bar         *progressbar.ProgressBar
}

func (b *Bar) Start(total int) {
	if total <= 0 {
		return
	}
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.w),
		progressbar.OptionSetDescription(b.description),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (b *Bar) Increment() {
	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

func (b *Bar) Finish() {
	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

// Lines prints a count line every few steps, suitable for logs and CI.
type Lines struct {
	w           io.Writer
	description string
	every       int
	total       int
	current     int
}

// NewLines returns a Lines reporter that prints every n steps and at the end.
func NewLines(w io.Writer, description string, n int) *Lines {
	return &Lines{w: w, description: description, every: max(n, 1)}
}

func (l *Lines) Start(total int) {
	l.total = total
	l.current = 0
}

func (l *Lines) Increment() {
	l.current++
	if l.current%l.every == 0 || l.current == l.total {
		fmt.Fprintf(l.w, "  %d/%d %s\n", l.current, l.total, l.description)
	}
}

func (l *Lines) Finish() {}
