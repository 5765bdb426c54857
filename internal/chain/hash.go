// Package chain maintains the tamper-evident thought chain of a session:
// per-thought SHA-256 hashes chained to a resolved parent, verification, and
// the branch/revision index over the thought DAG.
package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/KafClaw/thoughthub/internal/model"
)

// Genesis is the parent hash of the first thought of a session.
const Genesis = "genesis"

// ComputeHash hashes a thought's content, position and attribution together
// with its parent hash.
func ComputeHash(t model.Thought, parentHash string) string {
	payload := strings.Join([]string{
		t.Thought,
		strconv.Itoa(t.ThoughtNumber),
		parentHash,
		t.AgentID,
		strconv.FormatInt(t.Timestamp, 10),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// ParentHash resolves the hash the thought at position idx chains to:
// the preceding thought on the same branch; for a branch's first thought
// the main-chain thought it forks from; otherwise Genesis.
func ParentHash(thoughts []model.Thought, idx int) string {
	t := thoughts[idx]
	for i := idx - 1; i >= 0; i-- {
		if thoughts[i].BranchID == t.BranchID {
			return thoughts[i].ContentHash
		}
	}
	if t.BranchID != "" && t.BranchFromThought > 0 {
		for i := idx - 1; i >= 0; i-- {
			if thoughts[i].OnMain() && thoughts[i].ThoughtNumber == t.BranchFromThought {
				return thoughts[i].ContentHash
			}
		}
	}
	return Genesis
}

// Seal computes and sets the content hash of t as if appended after existing.
func Seal(existing []model.Thought, t model.Thought) model.Thought {
	all := append(existing[:len(existing):len(existing)], t)
	t.ContentHash = ComputeHash(t, ParentHash(all, len(all)-1))
	return t
}

// Mismatch describes a thought whose stored hash disagrees with its
// recomputed hash.
type Mismatch struct {
	Index         int    `json:"index"`
	ThoughtNumber int    `json:"thoughtNumber"`
	BranchID      string `json:"branchId,omitempty"`
	Expected      string `json:"expected"`
	Stored        string `json:"stored"`
}

// Report is the result of verifying a session.
type Report struct {
	Valid      bool       `json:"valid"`
	Checked    int        `json:"checked"`
	Skipped    int        `json:"skipped"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// Verify recomputes every stored hash. Thoughts without a stored hash
// predate hashing and are skipped, not flagged.
func Verify(thoughts []model.Thought) Report {
	rep := Report{Valid: true}
	for i, t := range thoughts {
		if t.ContentHash == "" {
			rep.Skipped++
			continue
		}
		rep.Checked++
		want := ComputeHash(t, ParentHash(thoughts, i))
		if want != t.ContentHash {
			rep.Valid = false
			rep.Mismatches = append(rep.Mismatches, Mismatch{
				Index:         i,
				ThoughtNumber: t.ThoughtNumber,
				BranchID:      t.BranchID,
				Expected:      want,
				Stored:        t.ContentHash,
			})
		}
	}
	return rep
}
