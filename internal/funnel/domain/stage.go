// Package domain holds the funnel stage vocabulary shared by the funnel
// store, the journey orchestrator and the analytics engine.
package domain

// Funnel stages in fixed analysis order.
const (
	StageLeadCaptured = "lead_captured"
	StageContacted    = "contacted"
	StageQualified    = "qualified"
	StageProposalSent = "proposal_sent"
	StageClosedWon    = "closed_won"
)

// StageOrder is the canonical order every funnel analysis walks. Counts per
// stage are monotonically non-increasing along this slice.
var StageOrder = []string{
	StageLeadCaptured,
	StageContacted,
	StageQualified,
	StageProposalSent,
	StageClosedWon,
}

var stagePosition = buildStagePosition()

func buildStagePosition() map[string]int {
	m := make(map[string]int, len(StageOrder))
	for i, stage := range StageOrder {
		m[stage] = i
	}
	return m
}

// IsKnownStage reports whether the stage participates in funnel analysis.
func IsKnownStage(stage string) bool {
	_, ok := stagePosition[stage]
	return ok
}

// StageIndex returns the analysis position of a stage, -1 when unknown.
func StageIndex(stage string) int {
	if idx, ok := stagePosition[stage]; ok {
		return idx
	}
	return -1
}
