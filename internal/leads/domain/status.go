// Package domain holds lead lifecycle rules shared by services and handlers.
package domain

// Lead lifecycle statuses. Funnel statuses are ordered; the rest are side
// exits or terminal outcomes.
const (
	StatusNew          = "new"
	StatusContacted    = "contacted"
	StatusQualified    = "qualified"
	StatusProposalSent = "proposal_sent"
	StatusNegotiating  = "negotiating"
	StatusWon          = "won"
	StatusLost         = "lost"
	StatusNurturing    = "nurturing"
	StatusUnqualified  = "unqualified"
	StatusConverted    = "converted"
)

// funnelOrder positions the monotonic funnel statuses. Transitions between
// funnel statuses may only move forward.
var funnelOrder = map[string]int{
	StatusNew:          0,
	StatusContacted:    1,
	StatusQualified:    2,
	StatusProposalSent: 3,
	StatusNegotiating:  4,
	StatusWon:          5,
}

// sideExits may be entered from any non-terminal status.
var sideExits = map[string]struct{}{
	StatusLost:        {},
	StatusNurturing:   {},
	StatusUnqualified: {},
}

var terminal = map[string]struct{}{
	StatusWon:         {},
	StatusLost:        {},
	StatusUnqualified: {},
	StatusConverted:   {},
}

// IsKnownStatus reports whether the status is part of the lead lifecycle.
func IsKnownStatus(status string) bool {
	if _, ok := funnelOrder[status]; ok {
		return true
	}
	if _, ok := sideExits[status]; ok {
		return true
	}
	return status == StatusConverted
}

// IsTerminal reports whether a lead in this status accepts no further
// status changes.
func IsTerminal(status string) bool {
	_, ok := terminal[status]
	return ok
}

// CanTransition reports whether a lead may move from one status to another.
// Funnel statuses move forward only; lost, nurturing and unqualified are
// reachable from any non-terminal status; nurturing leads may re-enter the
// funnel at any point; converted is reachable from any non-terminal status.
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	if IsTerminal(from) {
		return false
	}
	if !IsKnownStatus(to) {
		return false
	}

	if _, ok := sideExits[to]; ok {
		return true
	}
	if to == StatusConverted {
		return true
	}

	toIdx, toOK := funnelOrder[to]
	if !toOK {
		return false
	}

	if from == StatusNurturing {
		return true
	}

	fromIdx, fromOK := funnelOrder[from]
	if !fromOK {
		return false
	}
	return toIdx > fromIdx
}
