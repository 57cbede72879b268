package kit

// Stage is a step of a provisioning run.
type Stage int

// Run stages in pipeline order. Failed absorbs any non-terminal stage.
const (
	StageIdle Stage = iota
	StagePreparing
	StageFetching
	StageExtracting
	StageMerging
	StageOverlaying
	StageFinalizing
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageIdle:       "idle",
	StagePreparing:  "preparing",
	StageFetching:   "fetching",
	StageExtracting: "extracting",
	StageMerging:    "merging",
	StageOverlaying: "overlaying",
	StageFinalizing: "finalizing",
	StageDone:       "done",
	StageFailed:     "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}

	return stageNames[s]
}

// IsTerminal reports whether no further transition is possible.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// CanTransition reports whether a run may move from one stage to another.
func CanTransition(from, to Stage) bool {
	if from.IsTerminal() {
		return false
	}

	if to == StageFailed {
		return true
	}

	switch from {
	case StageIdle:
		return to == StagePreparing
	case StagePreparing:
		// Link skips downloads, an empty source list goes straight to the overlay.
		return to == StageFetching || to == StageMerging || to == StageOverlaying
	case StageFetching:
		// A skipped optional source moves on like a merged one.
		return to == StageExtracting || to == StageFetching || to == StageOverlaying
	case StageExtracting:
		return to == StageMerging || to == StageFetching || to == StageOverlaying
	case StageMerging:
		// Next source, or the overlay once all sources are merged.
		return to == StageFetching || to == StageOverlaying
	case StageOverlaying:
		return to == StageFinalizing
	case StageFinalizing:
		return to == StageDone
	default:
		return false
	}
}
