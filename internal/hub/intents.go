package hub

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/KafClaw/thoughthub/internal/model"
)

const opMerge = "merge_proposal"

// runIntent persists in, applies it and removes it. If applying fails the
// intent stays on disk and RecoverIntents finishes it on the next start.
func (h *Hub) runIntent(ws *model.Workspace, in *model.Intent) (*MergeResult, error) {
	if err := h.store.SaveIntent(in); err != nil {
		return nil, fmt.Errorf("save intent: %w", err)
	}
	res, err := h.applyMerge(ws, in)
	if err != nil {
		return nil, err
	}
	if err := h.store.DeleteIntent(in.WorkspaceID, in.ID); err != nil {
		slog.Warn("Failed to delete completed intent", "intent", in.ID, "error", err)
	}
	return res, nil
}

// applyMerge performs the writes of a merge. Each step checks whether it
// already happened, so replaying a half-applied intent is safe.
func (h *Hub) applyMerge(ws *model.Workspace, in *model.Intent) (*MergeResult, error) {
	p, err := h.getProposal(in.WorkspaceID, in.ProposalID)
	if err != nil {
		return nil, err
	}

	ix, err := h.mainIndex(ws)
	if err != nil {
		return nil, err
	}
	var thought model.Thought
	found := false
	for _, t := range ix.Main() {
		if t.ThoughtNumber == in.ThoughtNumber && t.AgentID == in.AgentID && t.Timestamp == in.Timestamp {
			thought, found = t, true
			break
		}
	}
	if !found {
		thought, err = h.appendThought(ws, model.Thought{
			Thought:           in.Message,
			NextThoughtNeeded: true,
			Timestamp:         in.Timestamp,
			AgentID:           in.AgentID,
			AgentName:         in.AgentName,
		}, 0)
		if err != nil {
			return nil, err
		}
		if thought.ThoughtNumber != in.ThoughtNumber {
			slog.Warn("Merge thought renumbered", "proposal", p.ID, "planned", in.ThoughtNumber, "actual", thought.ThoughtNumber)
		}
	}

	if p.Status != model.ProposalMerged {
		n := thought.ThoughtNumber
		at := time.UnixMilli(in.Timestamp).UTC()
		p.Status = model.ProposalMerged
		p.MergeThoughtNumber = &n
		p.MergedBy = in.AgentID
		p.MergedAt = &at
		if err := h.store.SaveProposal(p); err != nil {
			return nil, fmt.Errorf("save proposal: %w", err)
		}
	}
	res := &MergeResult{Proposal: p, Thought: thought}

	if in.ProblemID == "" {
		return res, nil
	}
	problem, err := h.getProblem(in.WorkspaceID, in.ProblemID)
	if err != nil {
		return nil, err
	}
	if !problem.Status.Terminal() {
		problem.Status = model.ProblemResolved
		problem.Resolution = in.Message
		problem.UpdatedAt = h.clock()
		if err := h.store.SaveProblem(problem); err != nil {
			return nil, fmt.Errorf("save problem: %w", err)
		}
	}
	if releaseWork(ws, problem.ID) {
		if err := h.store.SaveWorkspace(ws); err != nil {
			return nil, fmt.Errorf("save workspace: %w", err)
		}
	}
	res.Problem = problem
	return res, nil
}

// RecoverIntents finishes every intent left behind by an interrupted
// process and returns how many were completed.
func (h *Hub) RecoverIntents() (int, error) {
	intents, err := h.store.ListIntents()
	if err != nil {
		return 0, fmt.Errorf("list intents: %w", err)
	}
	done := 0
	for _, in := range intents {
		if in.Op != opMerge {
			slog.Warn("Skipping intent with unknown operation", "intent", in.ID, "op", in.Op)
			continue
		}
		if err := h.recoverOne(in); err != nil {
			return done, fmt.Errorf("recover intent %s: %w", in.ID, err)
		}
		done++
		slog.Info("Recovered interrupted merge", "workspace", in.WorkspaceID, "proposal", in.ProposalID)
	}
	return done, nil
}

func (h *Hub) recoverOne(in *model.Intent) error {
	unlock := h.locks.lock(in.WorkspaceID)
	defer unlock()

	ws, err := h.loadWorkspace(in.WorkspaceID)
	if err != nil {
		return err
	}
	if _, err := h.applyMerge(ws, in); err != nil {
		return err
	}
	return h.store.DeleteIntent(in.WorkspaceID, in.ID)
}
