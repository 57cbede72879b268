package version

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Equal(t, "agkit/"+Short(), UserAgent())
}

// TestIsNewer covers prefix handling and ordering rules.
func TestIsNewer(t *testing.T) {
	t.Parallel()

	cases := []struct {
		current, candidate string
		want               bool
	}{
		{"1.4.0", "1.4.1", true},
		{"v1.4.0", "1.10.0", true},
		{"1.4.0", "1.4.0", false},
		{"2.0.0", "1.9.9", false},
		{"1.4.0", "1.5.0-rc.1", true},
		{"1.5.0", "1.5.0-rc.1", false},
	}

	for _, tc := range cases {
		got, err := IsNewer(tc.current, tc.candidate)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "%s -> %s", tc.current, tc.candidate)
	}

	_, err := IsNewer("1.0.0", "latest")
	require.ErrorIs(t, err, ErrInvalidVersion)

	_, err = IsNewer("", "1.0.0")
	require.ErrorIs(t, err, ErrInvalidVersion)
}

// TestVersionCommand runs the attached subcommand and captures its output.
func TestVersionCommand(t *testing.T) {
	t.Parallel()

	root := &cobra.Command{Use: "agkit"}
	AttachCobraVersionCommand(root)

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), Full())
}
