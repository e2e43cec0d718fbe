// Package domain holds the sales pipeline stage machine and stage templates.
package domain

// Pipeline stages in funnel order. closed_won and closed_lost are terminal.
const (
	StageLeadCapture   = "lead_capture"
	StageQualification = "qualification"
	StageDiscovery     = "discovery"
	StagePresentation  = "presentation"
	StageProposal      = "proposal"
	StageNegotiation   = "negotiation"
	StageClosing       = "closing"
	StageClosedWon     = "closed_won"
	StageClosedLost    = "closed_lost"
)

// stageOrder lists the working stages in the order deals move through them.
var stageOrder = []string{
	StageLeadCapture,
	StageQualification,
	StageDiscovery,
	StagePresentation,
	StageProposal,
	StageNegotiation,
	StageClosing,
}

var stageIndex = buildStageIndex()

func buildStageIndex() map[string]int {
	index := make(map[string]int, len(stageOrder))
	for i, stage := range stageOrder {
		index[stage] = i
	}
	return index
}

func IsKnownStage(stage string) bool {
	if stage == StageClosedWon || stage == StageClosedLost {
		return true
	}
	_, ok := stageIndex[stage]
	return ok
}

func IsTerminal(stage string) bool {
	return stage == StageClosedWon || stage == StageClosedLost
}

// CanTransition reports whether a deal may move from one stage to the next.
// Working stages advance one step at a time and never backward. A deal can be
// lost from any working stage, but can only be won out of closing.
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	fromIdx, fromOK := stageIndex[from]
	if !fromOK {
		// Terminal and unknown stages allow no further movement.
		return false
	}

	switch to {
	case StageClosedLost:
		return true
	case StageClosedWon:
		return from == StageClosing
	}

	toIdx, toOK := stageIndex[to]
	if !toOK {
		return false
	}
	return toIdx == fromIdx+1
}

// NextStage returns the stage that follows a working stage, or empty for
// closing and terminal stages.
func NextStage(from string) string {
	idx, ok := stageIndex[from]
	if !ok || idx == len(stageOrder)-1 {
		return ""
	}
	return stageOrder[idx+1]
}
