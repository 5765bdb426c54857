// Package claims extracts structured claims from thought text using a fixed
// lexical grammar and detects contradictions between them.
//
// Grammar (one construct per line):
//
//	CLAIM: <text>
//	PREMISE: <text>
//	REFUTE: <text>
//	P1, P2 ⊢ C          (also "|-")
//
// Any line may carry step references [S3] or [S3-S5]; a leading ¬ negates.
package claims

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies an extracted claim.
type Kind string

const (
	KindClaim      Kind = "claim"
	KindPremise    Kind = "premise"
	KindRefute     Kind = "refute"
	KindDerivation Kind = "derivation"
)

// Negation is the negation operator recognised at the start of a claim.
const Negation = "¬"

// maxRefSpan bounds the expansion of one [Sn-Sm] range.
const maxRefSpan = 256

// Provenance locates a claim in the thought DAG.
type Provenance struct {
	AgentID       string `json:"agentId,omitempty"`
	AgentName     string `json:"agentName,omitempty"`
	BranchID      string `json:"branchId,omitempty"`
	ThoughtNumber int    `json:"thoughtNumber,omitempty"`
}

// Claim is one extracted statement.
type Claim struct {
	Kind     Kind       `json:"kind"`
	Content  string     `json:"content"`
	Negated  bool       `json:"negated"`
	Premises []string   `json:"premises,omitempty"`
	Refs     []int      `json:"refs,omitempty"`
	Line     int        `json:"line"`
	Source   Provenance `json:"source"`
}

// Source is a piece of text with its provenance.
type Source struct {
	Text string
	Provenance
}

var (
	prefixPattern = regexp.MustCompile(`(?i)^(CLAIM|PREMISE|REFUTE)\s*:\s*(.*)$`)
	refPattern    = regexp.MustCompile(`\[S(\d+)(?:\s*-\s*S?(\d+))?\]`)
	turnstiles    = []string{"⊢", "|-"}
)

// Extract parses every claim in text.
func Extract(text string) []Claim {
	var out []Claim
	for n, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		refs := parseRefs(line)
		body := strings.TrimSpace(refPattern.ReplaceAllString(line, ""))

		kind := Kind("")
		if m := prefixPattern.FindStringSubmatch(body); m != nil {
			kind = Kind(strings.ToLower(m[1]))
			body = strings.TrimSpace(m[2])
		}
		if lhs, rhs, ok := splitTurnstile(body); ok && kind != KindRefute {
			c := newClaim(KindDerivation, rhs, n+1, refs)
			for _, p := range strings.Split(lhs, ",") {
				if p = strings.TrimSpace(p); p != "" {
					c.Premises = append(c.Premises, p)
				}
			}
			if c.Content != "" {
				out = append(out, c)
			}
			continue
		}
		if kind == "" || body == "" {
			continue
		}
		out = append(out, newClaim(kind, body, n+1, refs))
	}
	return out
}

// ExtractAll parses every source and stamps each claim with its provenance.
func ExtractAll(sources []Source) []Claim {
	var out []Claim
	for _, s := range sources {
		for _, c := range Extract(s.Text) {
			c.Source = s.Provenance
			out = append(out, c)
		}
	}
	return out
}

func newClaim(kind Kind, content string, line int, refs []int) Claim {
	content = strings.TrimSpace(content)
	_, negated := polarity(content)
	return Claim{Kind: kind, Content: content, Negated: negated, Line: line, Refs: refs}
}

func splitTurnstile(s string) (string, string, bool) {
	for _, ts := range turnstiles {
		if i := strings.Index(s, ts); i >= 0 {
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len(ts):]), true
		}
	}
	return "", "", false
}

func parseRefs(line string) []int {
	var refs []int
	for _, m := range refPattern.FindAllStringSubmatch(line, -1) {
		from, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		to := from
		if m[2] != "" {
			if v, err := strconv.Atoi(m[2]); err == nil {
				to = v
			}
		}
		if to < from {
			from, to = to, from
		}
		to = min(to, from+maxRefSpan)
		for i := from; i <= to; i++ {
			refs = append(refs, i)
		}
	}
	return refs
}

// polarity strips leading negations (and the brackets around them) and
// reports the remaining text and whether an odd number of negations was seen.
func polarity(s string) (string, bool) {
	negated := false
	for {
		t := strings.TrimLeft(s, " \t(")
		if !strings.HasPrefix(t, Negation) {
			return s, negated
		}
		negated = !negated
		s = strings.TrimPrefix(t, Negation)
	}
}

// Normalize reduces a claim to the form used for comparison: leading
// negations and all parentheses removed, lower-cased, whitespace collapsed.
func Normalize(s string) string {
	core, _ := polarity(s)
	core = strings.NewReplacer("(", " ", ")", " ").Replace(core)
	return strings.Join(strings.Fields(strings.ToLower(core)), " ")
}
