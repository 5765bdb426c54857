package hub

import (
	"errors"
	"fmt"

	"github.com/KafClaw/thoughthub/internal/chain"
	"github.com/KafClaw/thoughthub/internal/claims"
	"github.com/KafClaw/thoughthub/internal/model"
)

func (h *Hub) mainIndex(ws *model.Workspace) (*chain.Index, error) {
	thoughts, err := h.store.LoadThoughts(ws.MainSessionID)
	if err != nil {
		return nil, fmt.Errorf("load thoughts: %w", err)
	}
	return chain.NewIndex(thoughts), nil
}

// appendThought numbers, seals and stores draft on the workspace session.
// Callers hold the workspace lock.
func (h *Hub) appendThought(ws *model.Workspace, draft model.Thought, forkPoint int) (model.Thought, error) {
	ix, err := h.mainIndex(ws)
	if err != nil {
		return model.Thought{}, err
	}
	t, err := ix.Next(draft, forkPoint)
	if err != nil {
		if errors.Is(err, chain.ErrUnknownRevision) || errors.Is(err, chain.ErrForkPoint) || errors.Is(err, chain.ErrEmptyThought) {
			return model.Thought{}, validation("%v", err)
		}
		return model.Thought{}, err
	}
	if err := h.store.AppendThought(ws.MainSessionID, t); err != nil {
		return model.Thought{}, fmt.Errorf("append thought: %w", err)
	}
	return t, nil
}

func (h *Hub) opAddThought(c *call) (any, error) {
	text, err := c.args.Required("thought")
	if err != nil {
		return nil, err
	}
	total, _, err := c.args.Int("totalThoughts")
	if err != nil {
		return nil, err
	}
	revises, _, err := c.args.Int("revisesThought")
	if err != nil {
		return nil, err
	}
	fork, forkSet, err := c.args.Int("branchFromThought")
	if err != nil {
		return nil, err
	}
	branchID := c.args.String("branchId")
	if branchID != "" && !forkSet {
		// A claimed problem's branch forks where the claim snapshotted it.
		if cw := c.member.CurrentWork; cw != nil && cw.BranchID == branchID {
			if p, err := h.getProblem(c.ws.ID, cw.ProblemID); err == nil && p.BranchFromThought != nil {
				fork = *p.BranchFromThought
			}
		}
	}

	draft := model.Thought{
		Thought:           text,
		TotalThoughts:     total,
		NextThoughtNeeded: c.args.Bool("nextThoughtNeeded", true),
		Timestamp:         h.clock().UnixMilli(),
		IsRevision:        c.args.Bool("isRevision", false),
		RevisesThought:    revises,
		BranchID:          branchID,
		AgentID:           c.agentID,
		AgentName:         c.agent.Name,
	}
	t, err := h.appendThought(c.ws, draft, fork)
	if err != nil {
		return nil, err
	}
	c.event(c.ws.ID, model.EventThoughtAdded, map[string]any{
		"thoughtNumber": t.ThoughtNumber,
		"branchId":      t.BranchID,
		"contentHash":   t.ContentHash,
	})
	return t, nil
}

// VerifyChain recomputes every content hash of a workspace's thoughts.
func (h *Hub) VerifyChain(wsID string) (chain.Report, error) {
	ws, err := h.loadWorkspace(wsID)
	if err != nil {
		return chain.Report{}, err
	}
	thoughts, err := h.store.LoadThoughts(ws.MainSessionID)
	if err != nil {
		return chain.Report{}, fmt.Errorf("load thoughts: %w", err)
	}
	return chain.Verify(thoughts), nil
}

func (h *Hub) opVerifyChain(c *call) (any, error) {
	return h.VerifyChain(c.ws.ID)
}

// DetectConflicts extracts claims from the main chain and from one branch,
// or every branch when branchID is empty, and reports pairwise conflicts.
func (h *Hub) DetectConflicts(wsID, branchID string) (claims.Report, error) {
	ws, err := h.loadWorkspace(wsID)
	if err != nil {
		return claims.Report{}, err
	}
	ix, err := h.mainIndex(ws)
	if err != nil {
		return claims.Report{}, err
	}
	thoughts := ix.Main()
	if branchID != "" {
		branch, ok := ix.Branch(branchID)
		if !ok {
			return claims.Report{}, notFound("Branch", branchID)
		}
		thoughts = append(thoughts, branch...)
	} else {
		for _, b := range ix.Branches() {
			branch, _ := ix.Branch(b.ID)
			thoughts = append(thoughts, branch...)
		}
	}

	sources := make([]claims.Source, 0, len(thoughts))
	for _, t := range thoughts {
		sources = append(sources, claims.Source{
			Text: t.Thought,
			Provenance: claims.Provenance{
				AgentID:       t.AgentID,
				AgentName:     t.AgentName,
				BranchID:      t.BranchID,
				ThoughtNumber: t.ThoughtNumber,
			},
		})
	}
	return claims.DetectSources(sources), nil
}

func (h *Hub) opDetectConflicts(c *call) (any, error) {
	return h.DetectConflicts(c.ws.ID, c.args.String("branchId"))
}
