package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Bar is safe for concurrent use.
type Bar struct {
	*progressbar.ProgressBar
}

// NewBar draws on stderr so command output on stdout stays parseable.
func NewBar(max int64, description string) *Bar {
	return New(os.Stderr, max, description)
}

func New(out io.Writer, max int64, description string) *Bar {
	bar := progressbar.NewOptions64(max,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(out)
		}),
	)

	return &Bar{ProgressBar: bar}
}

// Discard returns a bar that renders nothing.
func Discard(max int64) *Bar {
	return New(io.Discard, max, "")
}

func (b *Bar) Increment() {
	b.Add(1)
}

// Describe replaces the label shown next to the bar, e.g. the item in work.
func (b *Bar) Describe(description string) {
	b.ProgressBar.Describe(description)
}

func (b *Bar) Finish() {
	if b.ProgressBar == nil {
		return
	}
	b.ProgressBar.Finish()
}
