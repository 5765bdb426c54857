package model

// ProblemStatus is a problem's lifecycle state.
type ProblemStatus string

const (
	ProblemOpen       ProblemStatus = "open"
	ProblemInProgress ProblemStatus = "in-progress"
	ProblemResolved   ProblemStatus = "resolved"
	ProblemClosed     ProblemStatus = "closed"
)

// ParseProblemStatus validates a problem status string.
func ParseProblemStatus(s string) (ProblemStatus, bool) {
	switch st := ProblemStatus(s); st {
	case ProblemOpen, ProblemInProgress, ProblemResolved, ProblemClosed:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further transition is allowed.
func (s ProblemStatus) Terminal() bool {
	return s == ProblemResolved || s == ProblemClosed
}

// CanTransition reports whether a problem may move from one status to another.
// Status only moves forward: open → in-progress → {resolved | closed}; an
// open problem may also be closed directly.
func (s ProblemStatus) CanTransition(to ProblemStatus) bool {
	switch s {
	case ProblemOpen:
		return to == ProblemInProgress || to == ProblemClosed
	case ProblemInProgress:
		return to == ProblemResolved || to == ProblemClosed
	default:
		return false
	}
}

// ProposalStatus is a proposal's lifecycle state.
type ProposalStatus string

const (
	ProposalOpen      ProposalStatus = "open"
	ProposalReviewing ProposalStatus = "reviewing"
	ProposalMerged    ProposalStatus = "merged"
)

// ParseProposalStatus validates a proposal status string.
func ParseProposalStatus(s string) (ProposalStatus, bool) {
	switch st := ProposalStatus(s); st {
	case ProposalOpen, ProposalReviewing, ProposalMerged:
		return st, true
	}
	return "", false
}

// CanTransition reports whether a proposal may move between statuses.
// Reviewing may repeat; merged is terminal.
func (s ProposalStatus) CanTransition(to ProposalStatus) bool {
	switch s {
	case ProposalOpen:
		return to == ProposalReviewing
	case ProposalReviewing:
		return to == ProposalReviewing || to == ProposalMerged
	default:
		return false
	}
}
