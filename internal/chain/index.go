package chain

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/KafClaw/thoughthub/internal/model"
)

var (
	// ErrUnknownRevision is returned when a revision targets a thought that
	// does not exist on the same branch.
	ErrUnknownRevision = errors.New("revised thought not found")
	// ErrForkPoint is returned when a branch forks past the end of the main chain.
	ErrForkPoint = errors.New("branch fork point beyond main chain")
	// ErrEmptyThought is returned for a thought without content.
	ErrEmptyThought = errors.New("thought content is required")
)

type revKey struct {
	branch string
	number int
}

// BranchInfo summarizes one branch of a session.
type BranchInfo struct {
	ID        string   `json:"id"`
	ForkPoint int      `json:"forkPoint"`
	Length    int      `json:"length"`
	Agents    []string `json:"agents"`
}

// Index is a read-only view over a session's thoughts that resolves the
// main chain, branches and revisions.
type Index struct {
	thoughts  []model.Thought
	main      []int
	branches  map[string][]int
	order     []string
	revisions map[revKey][]int
}

// NewIndex indexes thoughts in commit order.
func NewIndex(thoughts []model.Thought) *Index {
	ix := &Index{
		thoughts:  thoughts,
		branches:  make(map[string][]int),
		revisions: make(map[revKey][]int),
	}
	for i, t := range thoughts {
		if t.OnMain() {
			ix.main = append(ix.main, i)
		} else {
			if _, ok := ix.branches[t.BranchID]; !ok {
				ix.order = append(ix.order, t.BranchID)
			}
			ix.branches[t.BranchID] = append(ix.branches[t.BranchID], i)
		}
		if t.IsRevision && t.RevisesThought > 0 {
			k := revKey{branch: t.BranchID, number: t.RevisesThought}
			ix.revisions[k] = append(ix.revisions[k], i)
		}
	}
	return ix
}

// Len returns the total number of thoughts in the session.
func (ix *Index) Len() int { return len(ix.thoughts) }

// Thoughts returns all thoughts in commit order.
func (ix *Index) Thoughts() []model.Thought { return ix.thoughts }

// MainLength returns the number of thoughts on the main chain.
func (ix *Index) MainLength() int { return len(ix.main) }

// NextMainNumber returns the thought number the next main-chain thought gets.
func (ix *Index) NextMainNumber() int {
	next := 1
	for _, i := range ix.main {
		next = max(next, ix.thoughts[i].ThoughtNumber+1)
	}
	return next
}

// Main returns the main-chain thoughts in commit order.
func (ix *Index) Main() []model.Thought { return ix.pick(ix.main) }

// Branch returns the thoughts of one branch in commit order.
func (ix *Index) Branch(id string) ([]model.Thought, bool) {
	pos, ok := ix.branches[id]
	if !ok {
		return nil, false
	}
	return ix.pick(pos), true
}

// Branches summarizes every branch in order of first appearance.
func (ix *Index) Branches() []BranchInfo {
	out := make([]BranchInfo, 0, len(ix.order))
	for _, id := range ix.order {
		pos := ix.branches[id]
		info := BranchInfo{ID: id, ForkPoint: ix.thoughts[pos[0]].BranchFromThought, Length: len(pos)}
		for _, i := range pos {
			if a := ix.thoughts[i].AgentID; a != "" && !slices.Contains(info.Agents, a) {
				info.Agents = append(info.Agents, a)
			}
		}
		out = append(out, info)
	}
	return out
}

// Revisions returns the thoughts that revise thought n on a branch ("" for main).
func (ix *Index) Revisions(branchID string, n int) []model.Thought {
	return ix.pick(ix.revisions[revKey{branch: branchID, number: n}])
}

// Effective returns the latest revision of thought n on a branch, or the
// thought itself when it was never revised.
func (ix *Index) Effective(branchID string, n int) (model.Thought, bool) {
	if revs := ix.revisions[revKey{branch: branchID, number: n}]; len(revs) > 0 {
		return ix.thoughts[revs[len(revs)-1]], true
	}
	return ix.find(branchID, n)
}

func (ix *Index) find(branchID string, n int) (model.Thought, bool) {
	pos := ix.main
	if branchID != "" {
		pos = ix.branches[branchID]
	}
	for _, i := range pos {
		if ix.thoughts[i].ThoughtNumber == n {
			return ix.thoughts[i], true
		}
	}
	return model.Thought{}, false
}

func (ix *Index) pick(pos []int) []model.Thought {
	out := make([]model.Thought, 0, len(pos))
	for _, i := range pos {
		out = append(out, ix.thoughts[i])
	}
	return out
}

// Next prepares draft for appending: it assigns the thought number, fixes
// the fork point of a new branch, validates revision targets and seals the
// content hash. forkPoint is used only when the draft opens a new branch.
func (ix *Index) Next(draft model.Thought, forkPoint int) (model.Thought, error) {
	t := draft
	t.Thought = strings.TrimSpace(t.Thought)
	if t.Thought == "" {
		return model.Thought{}, ErrEmptyThought
	}
	if t.OnMain() {
		t.BranchFromThought = 0
		t.ThoughtNumber = ix.NextMainNumber()
	} else {
		pos, exists := ix.branches[t.BranchID]
		if exists {
			t.BranchFromThought = ix.thoughts[pos[0]].BranchFromThought
		} else {
			if forkPoint < 0 || forkPoint > ix.MainLength() {
				return model.Thought{}, fmt.Errorf("%w: %d > %d", ErrForkPoint, forkPoint, ix.MainLength())
			}
			t.BranchFromThought = forkPoint
		}
		t.ThoughtNumber = t.BranchFromThought + len(pos) + 1
	}
	if t.IsRevision {
		if _, ok := ix.find(t.BranchID, t.RevisesThought); !ok {
			return model.Thought{}, fmt.Errorf("%w: %d", ErrUnknownRevision, t.RevisesThought)
		}
	} else {
		t.RevisesThought = 0
	}
	t.TotalThoughts = max(t.TotalThoughts, t.ThoughtNumber)
	return Seal(ix.thoughts, t), nil
}
