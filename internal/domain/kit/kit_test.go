package kit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCanTransition walks the happy path and a few forbidden moves.
func TestCanTransition(t *testing.T) {
	t.Parallel()

	path := []Stage{
		StageIdle, StagePreparing, StageFetching, StageExtracting, StageMerging,
		StageFetching, StageExtracting, StageMerging, StageOverlaying, StageFinalizing, StageDone,
	}
	for i := 1; i < len(path); i++ {
		require.True(t, CanTransition(path[i-1], path[i]), "%s -> %s", path[i-1], path[i])
	}

	require.True(t, CanTransition(StagePreparing, StageMerging))
	require.True(t, CanTransition(StageFetching, StageOverlaying))
	require.True(t, CanTransition(StageExtracting, StageFetching))
	require.True(t, CanTransition(StageExtracting, StageFailed))
	require.False(t, CanTransition(StageFetching, StageMerging))
	require.False(t, CanTransition(StageDone, StageFailed))
	require.False(t, CanTransition(StageFailed, StagePreparing))
	require.False(t, CanTransition(StageIdle, StageDone))
}

// TestStageString covers names and out-of-range values.
func TestStageString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "merging", StageMerging.String())
	require.Equal(t, "unknown", Stage(42).String())
	require.True(t, StageFailed.IsTerminal())
	require.False(t, StageOverlaying.IsTerminal())
}

// TestRemoteSourceHelpers checks cloning, destinations and mapping normalisation.
func TestRemoteSourceHelpers(t *testing.T) {
	t.Parallel()

	src := &RemoteSource{
		Name: "core",
		URL:  "https://example.com/core.zip",
		Mappings: []Mapping{
			{From: ".agent/skills", To: SubtreeSkills},
			{From: "./extra/../skills/", To: SubtreeSkills},
			{From: ".agent/rules", To: SubtreeRules},
		},
	}

	cloned := src.Clone()
	cloned.Mappings[0].To = SubtreeAgents
	require.Equal(t, SubtreeSkills, src.Mappings[0].To)

	require.Equal(t, []string{SubtreeSkills, SubtreeRules}, src.Destinations())
	require.Equal(t, "skills", src.Mappings[1].CleanFrom())
	require.Equal(t, "x", Mapping{From: "../x"}.CleanFrom())

	require.True(t, IsSubtree("shared"))
	require.False(t, IsSubtree(".shared"))
	require.Equal(t, "Local Workspace", ModeLocal.Label())
	require.Equal(t, "Global System", ModeGlobal.Label())
}
