package claims

import (
	"fmt"
	"strings"
)

// ConflictType names the rule that flagged a pair of claims.
type ConflictType string

const (
	DirectContradiction ConflictType = "direct_contradiction"
	Refutation          ConflictType = "refutation"
)

// Conflict is a pair of claims that cannot both hold.
type Conflict struct {
	Type        ConflictType `json:"type"`
	A           Claim        `json:"a"`
	B           Claim        `json:"b"`
	Description string       `json:"description"`
}

// Report is the outcome of a detection run.
type Report struct {
	Conflicts   []Conflict `json:"conflicts"`
	TotalClaims int        `json:"totalClaims"`
}

// Detect compares every pair of claims. Quadratic in the number of claims;
// callers pass bounded branch slices, not whole histories.
func Detect(claims []Claim) Report {
	rep := Report{Conflicts: []Conflict{}, TotalClaims: len(claims)}
	keys := make([]string, len(claims))
	for i, c := range claims {
		keys[i] = Normalize(c.Content)
	}
	for i := 0; i < len(claims); i++ {
		for j := i + 1; j < len(claims); j++ {
			if c, ok := compare(claims[i], claims[j], keys[i], keys[j]); ok {
				rep.Conflicts = append(rep.Conflicts, c)
			}
		}
	}
	return rep
}

// DetectSources extracts claims from sources and detects conflicts among them.
func DetectSources(sources []Source) Report {
	return Detect(ExtractAll(sources))
}

func compare(a, b Claim, ka, kb string) (Conflict, bool) {
	if ka == "" || kb == "" {
		return Conflict{}, false
	}
	if a.Kind != KindRefute && b.Kind != KindRefute && ka == kb && a.Negated != b.Negated {
		return Conflict{
			Type:        DirectContradiction,
			A:           a,
			B:           b,
			Description: fmt.Sprintf("%q contradicts %q", a.Content, b.Content),
		}, true
	}
	claim, refute, kc, kr := a, b, ka, kb
	if a.Kind == KindRefute {
		claim, refute, kc, kr = b, a, kb, ka
	}
	if claim.Kind == KindClaim && refute.Kind == KindRefute && (strings.Contains(kc, kr) || strings.Contains(kr, kc)) {
		return Conflict{
			Type:        Refutation,
			A:           claim,
			B:           refute,
			Description: fmt.Sprintf("%s refutes %q", describe(refute.Source), claim.Content),
		}, true
	}
	return Conflict{}, false
}

func describe(p Provenance) string {
	who := p.AgentName
	if who == "" {
		who = p.AgentID
	}
	if who == "" {
		who = "a refutation"
	}
	if p.BranchID != "" {
		return fmt.Sprintf("%s (branch %s)", who, p.BranchID)
	}
	return who
}
