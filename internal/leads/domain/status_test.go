package domain

import "testing"

func TestCanTransition_ForwardOnly(t *testing.T) {
	if !CanTransition(StatusNew, StatusContacted) {
		t.Fatalf("expected new -> contacted to be allowed")
	}
	if !CanTransition(StatusNew, StatusQualified) {
		t.Fatalf("expected skipping forward to be allowed")
	}
	if CanTransition(StatusQualified, StatusContacted) {
		t.Fatalf("expected backward move to be rejected")
	}
	if CanTransition(StatusNew, StatusNew) {
		t.Fatalf("expected self-transition to be rejected")
	}
}

func TestCanTransition_SideExits(t *testing.T) {
	for _, from := range []string{StatusNew, StatusContacted, StatusNegotiating} {
		for _, to := range []string{StatusLost, StatusNurturing, StatusUnqualified} {
			if !CanTransition(from, to) {
				t.Fatalf("expected %s -> %s side exit to be allowed", from, to)
			}
		}
	}
}

func TestCanTransition_TerminalStatusesAreFinal(t *testing.T) {
	for _, from := range []string{StatusWon, StatusLost, StatusUnqualified, StatusConverted} {
		if CanTransition(from, StatusContacted) {
			t.Fatalf("expected no exit from terminal status %s", from)
		}
	}
}

func TestCanTransition_NurturingReentersFunnel(t *testing.T) {
	if !CanTransition(StatusNurturing, StatusContacted) {
		t.Fatalf("expected nurturing lead to re-enter the funnel")
	}
	if !CanTransition(StatusNurturing, StatusProposalSent) {
		t.Fatalf("expected nurturing lead to re-enter at any funnel point")
	}
}

func TestIsKnownStatus(t *testing.T) {
	if !IsKnownStatus(StatusConverted) {
		t.Fatalf("expected converted to be known")
	}
	if IsKnownStatus("archived") {
		t.Fatalf("expected unknown status to be rejected")
	}
}
