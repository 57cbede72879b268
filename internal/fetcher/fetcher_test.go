package fetcher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var payload = bytes.Repeat([]byte("agkit"), 4096)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, Delay: 10 * time.Millisecond}
}

// TestFetchFollowsRedirects verifies that redirect chains end at the archive.
func TestFetchFollowsRedirects(t *testing.T) {
	t.Parallel()

	var userAgent atomic.Value

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/archive.zip", http.StatusFound)
	})
	mux.HandleFunc("/archive.zip", func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write(payload)
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "core.zip")
	f := New(WithRetryPolicy(fastPolicy(1)), WithUserAgent("agkit-test"))

	require.NoError(t, f.Fetch(context.Background(), ts.URL+"/start", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, payload, got)
	require.Equal(t, "agkit-test", userAgent.Load())
}

// TestFetchRetriesUntilSuccess checks that transient failures are retried.
func TestFetchRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "core.zip")
	f := New(WithRetryPolicy(fastPolicy(3)))

	require.NoError(t, f.Fetch(context.Background(), ts.URL, dest))
	require.EqualValues(t, 3, hits.Load())
	require.FileExists(t, dest)
}

// TestFetchGivesUp ensures the last error is reported and no partial file remains.
func TestFetchGivesUp(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.NotFound(w, nil)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "core.zip")
	f := New(WithRetryPolicy(fastPolicy(3)))

	err := f.Fetch(context.Background(), ts.URL, dest)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	require.EqualValues(t, 3, hits.Load())
	require.NoFileExists(t, dest)
}

// TestFetchDetectsStallMidBody aborts a transfer that stops sending data.
func TestFetchDetectsStallMidBody(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100000")
		_, _ = w.Write(payload[:1024])
		w.(http.Flusher).Flush()

		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)

	dest := filepath.Join(t.TempDir(), "core.zip")
	f := New(WithRetryPolicy(fastPolicy(1)), WithStallTimeout(100*time.Millisecond))

	start := time.Now()
	err := f.Fetch(context.Background(), ts.URL, dest)

	require.True(t, IsStalled(err), "got %v", err)
	require.Less(t, time.Since(start), 5*time.Second)

	var stalled *StalledTransferError
	require.ErrorAs(t, err, &stalled)
	require.EqualValues(t, 1024, stalled.Received)
	require.NoFileExists(t, dest)
}

// TestFetchDetectsStallBeforeHeaders treats a silent server as stalled.
func TestFetchDetectsStallBeforeHeaders(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	ts := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)

	f := New(WithRetryPolicy(fastPolicy(1)), WithStallTimeout(100*time.Millisecond))

	err := f.Fetch(context.Background(), ts.URL, filepath.Join(t.TempDir(), "core.zip"))
	require.True(t, IsStalled(err), "got %v", err)
}

// TestFetchRetriesAfterStall recovers when the next attempt delivers the archive.
func TestFetchRetriesAfterStall(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	release := make(chan struct{})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-release:
			}

			return
		}

		_, _ = w.Write(payload)
	}))
	defer ts.Close()
	defer close(release)

	dest := filepath.Join(t.TempDir(), "core.zip")
	f := New(WithRetryPolicy(fastPolicy(3)), WithStallTimeout(100*time.Millisecond))

	require.NoError(t, f.Fetch(context.Background(), ts.URL, dest))
	require.EqualValues(t, 2, hits.Load())
}

// TestFetchRedirectCap stops endless redirect loops.
func TestFetchRedirectCap(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer ts.Close()

	f := New(WithRetryPolicy(fastPolicy(1)), WithMaxRedirects(3))

	err := f.Fetch(context.Background(), ts.URL+"/loop", filepath.Join(t.TempDir(), "core.zip"))
	require.ErrorIs(t, err, ErrTooManyRedirects)
	require.EqualValues(t, 4, hits.Load())
}

// TestFetchRedirectWithoutLocation reports a malformed redirect.
func TestFetchRedirectWithoutLocation(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	defer ts.Close()

	f := New(WithRetryPolicy(fastPolicy(1)))

	err := f.Fetch(context.Background(), ts.URL, filepath.Join(t.TempDir(), "core.zip"))
	require.ErrorIs(t, err, ErrMissingLocation)
}

// TestFetchNetworkError wraps connection failures.
func TestFetchNetworkError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	f := New(WithRetryPolicy(fastPolicy(2)))

	err := f.Fetch(context.Background(), url, filepath.Join(t.TempDir(), "core.zip"))

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.False(t, IsStalled(err))
}

// TestFetchCancelledContext does not keep retrying once the caller gave up.
func TestFetchCancelledContext(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(WithRetryPolicy(RetryPolicy{MaxAttempts: 3, Delay: time.Hour}))

	err := f.Fetch(ctx, ts.URL, filepath.Join(t.TempDir(), "core.zip"))
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

// TestFetchReportsProgress passes the content length to the progress factory.
func TestFetchReportsProgress(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	var (
		gotTotal       int64
		gotDescription string
		bar            recordingBar
	)

	f := New(
		WithRetryPolicy(fastPolicy(1)),
		WithProgress(func(total int64, description string) ProgressBar {
			gotTotal, gotDescription = total, description

			return &bar
		}),
	)

	require.NoError(t, f.Fetch(context.Background(), ts.URL, filepath.Join(t.TempDir(), "core.zip")))
	require.EqualValues(t, len(payload), gotTotal)
	require.Equal(t, "core", gotDescription)
	require.Equal(t, len(payload), bar.written)
	require.True(t, bar.finished)
}

type recordingBar struct {
	written  int
	finished bool
}

func (b *recordingBar) Write(p []byte) (int, error) {
	b.written += len(p)

	return len(p), nil
}

func (b *recordingBar) Finish() error {
	b.finished = true

	return nil
}
