package claims

import (
	"reflect"
	"testing"
)

func TestExtractPrefixes(t *testing.T) {
	text := "intro line without claim\nCLAIM: the cache is warm [S2]\npremise: reads dominate\nREFUTE: writes are rare [S3-S5]\n"
	got := Extract(text)
	if len(got) != 3 {
		t.Fatalf("expected 3 claims, got %d: %+v", len(got), got)
	}
	if got[0].Kind != KindClaim || got[0].Content != "the cache is warm" || !reflect.DeepEqual(got[0].Refs, []int{2}) {
		t.Fatalf("unexpected claim: %+v", got[0])
	}
	if got[1].Kind != KindPremise || got[1].Line != 3 {
		t.Fatalf("unexpected premise: %+v", got[1])
	}
	if got[2].Kind != KindRefute || !reflect.DeepEqual(got[2].Refs, []int{3, 4, 5}) {
		t.Fatalf("unexpected refute: %+v", got[2])
	}
}

func TestExtractDerivation(t *testing.T) {
	got := Extract("A, B ⊢ C\nX |- ¬Y")
	if len(got) != 2 {
		t.Fatalf("expected 2 derivations, got %+v", got)
	}
	if got[0].Kind != KindDerivation || got[0].Content != "C" || !reflect.DeepEqual(got[0].Premises, []string{"A", "B"}) {
		t.Fatalf("unexpected derivation: %+v", got[0])
	}
	if !got[1].Negated || got[1].Content != "¬Y" {
		t.Fatalf("expected negated conclusion, got %+v", got[1])
	}
}

func TestNegationParity(t *testing.T) {
	cases := map[string]bool{
		"X":        false,
		"¬X":       true,
		"¬¬X":      false,
		"¬(X)":     true,
		"( ¬ X )":  true,
		"A and ¬B": false,
	}
	for in, want := range cases {
		if _, got := polarity(in); got != want {
			t.Errorf("polarity(%q) = %v, want %v", in, got, want)
		}
	}
	if Normalize("¬( The  Sky   is Blue )") != "the sky is blue" {
		t.Fatalf("unexpected normalization: %q", Normalize("¬( The  Sky   is Blue )"))
	}
}

func TestDetectDirectContradiction(t *testing.T) {
	rep := DetectSources([]Source{{Text: "CLAIM: X"}, {Text: "CLAIM: ¬X"}})
	if rep.TotalClaims != 2 || len(rep.Conflicts) != 1 {
		t.Fatalf("expected one conflict over two claims, got %+v", rep)
	}
	if rep.Conflicts[0].Type != DirectContradiction {
		t.Fatalf("expected direct_contradiction, got %s", rep.Conflicts[0].Type)
	}
}

func TestDetectCarriesProvenance(t *testing.T) {
	rep := DetectSources([]Source{
		{Text: "CLAIM: Latency is bounded", Provenance: Provenance{AgentID: "a1", BranchID: "main-x", ThoughtNumber: 3}},
		{Text: "CLAIM: ¬(latency  is BOUNDED)", Provenance: Provenance{AgentID: "b2", BranchID: "alt", ThoughtNumber: 5}},
	})
	if len(rep.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %+v", rep)
	}
	c := rep.Conflicts[0]
	if c.A.Source.AgentID != "a1" || c.B.Source.BranchID != "alt" || c.B.Source.ThoughtNumber != 5 {
		t.Fatalf("provenance lost: %+v", c)
	}
}

func TestDetectRefutation(t *testing.T) {
	rep := DetectSources([]Source{
		{Text: "CLAIM: the index speeds up every query"},
		{Text: "REFUTE: index speeds up every query", Provenance: Provenance{AgentName: "critic"}},
	})
	if len(rep.Conflicts) != 1 || rep.Conflicts[0].Type != Refutation {
		t.Fatalf("expected one refutation, got %+v", rep)
	}
	if rep.Conflicts[0].A.Kind != KindClaim || rep.Conflicts[0].B.Kind != KindRefute {
		t.Fatal("refutation should be ordered claim, refute")
	}
}

func TestDetectNoConflicts(t *testing.T) {
	rep := DetectSources([]Source{{Text: "CLAIM: water is wet\nCLAIM: fire is hot\nPREMISE: ice is cold"}})
	if len(rep.Conflicts) != 0 || rep.TotalClaims != 3 {
		t.Fatalf("expected no conflicts, got %+v", rep)
	}
	empty := Detect(nil)
	if empty.TotalClaims != 0 || len(empty.Conflicts) != 0 {
		t.Fatalf("expected empty report, got %+v", empty)
	}
}
