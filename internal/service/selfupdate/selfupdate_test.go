package selfupdate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oshokin/agkit/internal/config"
	"github.com/oshokin/agkit/internal/shell"
	"github.com/oshokin/agkit/internal/shell/mocks"
)

type fakePrompter struct {
	answer bool
	err    error
	asked  int
}

func (p *fakePrompter) Confirm(context.Context, string, string) (bool, error) {
	p.asked++

	return p.answer, p.err
}

func metadataServer(t *testing.T, body string) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)

	return ts
}

func settings(url string) config.UpdateCheck {
	return config.UpdateCheck{
		Enabled:        true,
		URL:            url,
		Timeout:        time.Second,
		UpgradeCommand: []string{"go", "install", "github.com/oshokin/agkit/cmd/agkit@latest"},
	}
}

// TestLatest reads the published version.
func TestLatest(t *testing.T) {
	t.Parallel()

	ts := metadataServer(t, `{"name":"agkit","version":"2.0.1"}`)

	got, err := New(settings(ts.URL), "1.0.0").Latest(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2.0.1", got)

	_, err = New(settings(metadataServer(t, `{}`).URL), "1.0.0").Latest(context.Background())
	require.ErrorIs(t, err, errNoVersion)
}

// TestRunUpgradesWhenConfirmed runs the upgrade command after a yes.
func TestRunUpgradesWhenConfirmed(t *testing.T) {
	t.Parallel()

	ts := metadataServer(t, `{"version":"2.0.0"}`)

	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().
		Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd shell.Command) error {
			require.Equal(t, "go install github.com/oshokin/agkit/cmd/agkit@latest", cmd.String())

			return nil
		})

	prompter := &fakePrompter{answer: true}
	outcome := New(settings(ts.URL), "1.4.0", WithRunner(runner), WithPrompter(prompter)).Run(context.Background())

	require.Equal(t, OutcomeUpgraded, outcome)
	require.Equal(t, 1, prompter.asked)
}

// TestRunOutcomes covers every path that does not upgrade.
func TestRunOutcomes(t *testing.T) {
	t.Parallel()

	newer := metadataServer(t, `{"version":"v9.0.0"}`).URL
	same := metadataServer(t, `{"version":"1.4.0"}`).URL
	garbage := metadataServer(t, `not json`).URL
	badVersion := metadataServer(t, `{"version":"latest"}`).URL

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(failing.Close)

	disabled := settings(newer)
	disabled.Enabled = false

	cases := map[string]struct {
		settings config.UpdateCheck
		prompter Prompter
		want     Outcome
	}{
		"disabled":        {settings: disabled, want: OutcomeSkipped},
		"server error":    {settings: settings(failing.URL), want: OutcomeSkipped},
		"invalid json":    {settings: settings(garbage), want: OutcomeSkipped},
		"invalid version": {settings: settings(badVersion), want: OutcomeSkipped},
		"up to date":      {settings: settings(same), want: OutcomeUpToDate},
		"no terminal":     {settings: settings(newer), want: OutcomeNotified},
		"declined":        {settings: settings(newer), prompter: &fakePrompter{}, want: OutcomeDeclined},
		"prompt error":    {settings: settings(newer), prompter: &fakePrompter{err: errors.New("no tty")}, want: OutcomeDeclined},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			runner := mocks.NewMockRunner(ctrl)

			opts := []Option{WithRunner(runner)}
			if tc.prompter != nil {
				opts = append(opts, WithPrompter(tc.prompter))
			}

			require.Equal(t, tc.want, New(tc.settings, "1.4.0", opts...).Run(context.Background()))
		})
	}
}

// TestRunUpgradeFailure keeps going when the upgrade command fails.
func TestRunUpgradeFailure(t *testing.T) {
	t.Parallel()

	ts := metadataServer(t, `{"version":"2.0.0"}`)

	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(errors.New("exit status 1"))

	outcome := New(settings(ts.URL), "1.4.0", WithRunner(runner), WithPrompter(&fakePrompter{answer: true})).
		Run(context.Background())
	require.Equal(t, OutcomeUpgradeFailed, outcome)
}

// TestRunTimeout gives up on a slow metadata server.
func TestRunTimeout(t *testing.T) {
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

	s := settings(ts.URL)
	s.Timeout = 50 * time.Millisecond

	start := time.Now()
	require.Equal(t, OutcomeSkipped, New(s, "1.4.0").Run(context.Background()))
	require.Less(t, time.Since(start), 5*time.Second)
}

// TestOutcomeString names every outcome.
func TestOutcomeString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "declined", OutcomeDeclined.String())
	require.Equal(t, "upgrade failed", OutcomeUpgradeFailed.String())
	require.Equal(t, "unknown", Outcome(99).String())
}
