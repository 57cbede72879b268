package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/agkit/internal/logger"
)

const (
	// DefaultStallTimeout is the inactivity window after which a transfer is abandoned.
	DefaultStallTimeout = 20 * time.Second

	// DefaultMaxRedirects caps the redirect chain of a single attempt.
	DefaultMaxRedirects = 10

	// maxDrainBytes bounds how much of an unwanted body is read to reuse the connection.
	maxDrainBytes = 64 << 10
)

// Fetcher downloads archives over HTTP(S).
type Fetcher struct {
	client       *http.Client
	policy       RetryPolicy
	stallTimeout time.Duration
	maxRedirects int
	userAgent    string
	progress     ProgressFactory
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the underlying client. Its redirect policy is overridden.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithRetryPolicy sets how often a failed download is repeated.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(f *Fetcher) {
		f.policy = p
	}
}

// WithStallTimeout sets the inactivity window.
func WithStallTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.stallTimeout = d
		}
	}
}

// WithMaxRedirects sets the redirect cap.
func WithMaxRedirects(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.maxRedirects = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithProgress sets the progress bar factory.
func WithProgress(p ProgressFactory) Option {
	return func(f *Fetcher) {
		if p != nil {
			f.progress = p
		}
	}
}

// New creates a Fetcher. Without options it uses DefaultRetryPolicy,
// DefaultStallTimeout, DefaultMaxRedirects and no progress output.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:       http.DefaultClient,
		policy:       DefaultRetryPolicy(),
		stallTimeout: DefaultStallTimeout,
		maxRedirects: DefaultMaxRedirects,
		progress:     noProgress,
	}

	for _, opt := range opts {
		opt(f)
	}

	// Redirects are followed by hand so every hop restarts the transfer
	// under the same inactivity timer and redirect cap.
	client := *f.client
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	f.client = &client

	return f
}

// Fetch downloads rawURL to destPath, retrying the whole transfer on failure.
// Only the last attempt's error is returned and destPath never holds a partial file on error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, destPath string) error {
	ctx = logger.WithKV(ctx, "url", rawURL)

	return f.policy.run(ctx,
		func(attempt int) error {
			logger.DebugKV(ctx, "Starting download attempt", "attempt", attempt, "max_attempts", f.policy.MaxAttempts)

			return f.attempt(ctx, rawURL, destPath)
		},
		func(err error, wait time.Duration) {
			logger.WarnKV(ctx, "Download attempt failed, retrying", "error", err, "retry_in", wait)
		},
	)
}

// attempt performs one complete transfer including redirects.
func (f *Fetcher) attempt(ctx context.Context, rawURL, destPath string) (err error) {
	attemptCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	s := newSession(rawURL, f.stallTimeout, func() {
		cancel(errStalled)
	})
	defer s.stop()

	defer func() {
		if err == nil {
			return
		}

		if errors.Is(context.Cause(attemptCtx), errStalled) {
			err = &StalledTransferError{
				URL:      s.url,
				Received: s.bytesReceived(),
				Idle:     f.stallTimeout,
			}
		}

		removePartial(ctx, destPath)
	}()

	resp, err := f.follow(attemptCtx, rawURL, s)
	if err != nil {
		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	s.restart(resp.ContentLength)

	return f.save(attemptCtx, resp, destPath, s)
}

// follow issues GET requests until a non-redirect response arrives.
func (f *Fetcher) follow(ctx context.Context, rawURL string, s *session) (*http.Response, error) {
	current := rawURL

	for hops := 0; ; hops++ {
		resp, err := f.get(ctx, current)
		if err != nil {
			return nil, &NetworkError{URL: current, Err: err}
		}

		s.touch(0)

		switch {
		case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
			return resp, nil
		case isRedirect(resp.StatusCode):
			location, locErr := resp.Location()
			drain(resp)

			if locErr != nil {
				return nil, &HTTPStatusError{URL: current, StatusCode: resp.StatusCode, Status: resp.Status, Err: ErrMissingLocation}
			}

			if hops >= f.maxRedirects {
				return nil, &HTTPStatusError{
					URL:        current,
					StatusCode: resp.StatusCode,
					Status:     resp.Status,
					Err:        fmt.Errorf("%w: more than %d", ErrTooManyRedirects, f.maxRedirects),
				}
			}

			logger.DebugKV(ctx, "Following redirect", "from", current, "to", location.String(), "status", resp.StatusCode)
			current = location.String()
		default:
			drain(resp)

			return nil, &HTTPStatusError{URL: current, StatusCode: resp.StatusCode, Status: resp.Status}
		}
	}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	return f.client.Do(req)
}

// save streams the response body into destPath.
func (f *Fetcher) save(ctx context.Context, resp *http.Response, destPath string, s *session) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return &NetworkError{URL: s.url, Err: fmt.Errorf("create download directory: %w", err)}
	}

	out, err := os.Create(filepath.Clean(destPath))
	if err != nil {
		return &NetworkError{URL: s.url, Err: fmt.Errorf("create archive file: %w", err)}
	}

	base := filepath.Base(destPath)
	bar := f.progress(resp.ContentLength, strings.TrimSuffix(base, filepath.Ext(base)))

	written, copyErr := io.Copy(io.MultiWriter(out, bar), &activityReader{r: resp.Body, s: s})
	closeErr := out.Close()

	if copyErr != nil {
		return &NetworkError{URL: s.url, Err: copyErr}
	}

	if closeErr != nil {
		return &NetworkError{URL: s.url, Err: fmt.Errorf("close archive file: %w", closeErr)}
	}

	_ = bar.Finish()

	logger.InfoKV(ctx, "Archive downloaded",
		"path", destPath,
		"bytes", written,
		"bytes_per_second", int64(s.throughput()),
	)

	return nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// drain discards a bounded amount of an unused body and closes it.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	_ = resp.Body.Close()
}

// removePartial deletes whatever a failed attempt wrote.
func removePartial(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove partial download", "path", path, "error", err)
	}
}
