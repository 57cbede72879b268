package fetcher

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressBar receives downloaded bytes.
type ProgressBar interface {
	io.Writer
	Finish() error
}

// ProgressFactory creates a bar for a transfer of total bytes (-1 when unknown).
type ProgressFactory func(total int64, description string) ProgressBar

// NewProgressBars returns a factory rendering byte progress bars to w.
// Known sizes show a percentage, unknown sizes a spinner; both show throughput.
func NewProgressBars(w io.Writer) ProgressFactory {
	return func(total int64, description string) ProgressBar {
		opts := []progressbar.Option{
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(24),
			progressbar.OptionThrottle(100 * time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				_, _ = io.WriteString(w, "\n")
			}),
		}

		if total < 0 {
			opts = append(opts,
				progressbar.OptionSpinnerType(14),
				progressbar.OptionSetRenderBlankState(true),
			)
		} else {
			opts = append(opts, progressbar.OptionSetPredictTime(true))
		}

		return progressbar.NewOptions64(total, opts...)
	}
}

// discardProgress is used when no factory is configured.
type discardProgress struct{}

func (discardProgress) Write(p []byte) (int, error) { return len(p), nil }

func (discardProgress) Finish() error { return nil }

func noProgress(int64, string) ProgressBar {
	return discardProgress{}
}
