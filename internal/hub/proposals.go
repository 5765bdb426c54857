package hub

import (
	"fmt"

	"github.com/KafClaw/thoughthub/internal/model"
)

func (h *Hub) getProposal(wsID, id string) (*model.Proposal, error) {
	p, err := h.store.GetProposal(wsID, id)
	return lookup(p, err, "Proposal", id)
}

func (h *Hub) opCreateProposal(c *call) (any, error) {
	title, err := c.args.Required("title")
	if err != nil {
		return nil, err
	}
	branch := c.args.String("sourceBranch")
	problemID := c.args.String("problemId")
	if problemID != "" {
		problem, err := h.getProblem(c.ws.ID, problemID)
		if err != nil {
			return nil, err
		}
		if branch == "" {
			branch = problem.BranchID
		}
	}
	p := &model.Proposal{
		ID:           h.newID(),
		WorkspaceID:  c.ws.ID,
		Title:        title,
		Description:  c.args.String("description"),
		CreatedBy:    c.agentID,
		SourceBranch: branch,
		ProblemID:    problemID,
		Status:       model.ProposalOpen,
		Reviews:      []model.Review{},
		CreatedAt:    h.clock(),
	}
	if err := h.store.SaveProposal(p); err != nil {
		return nil, fmt.Errorf("save proposal: %w", err)
	}
	c.event(c.ws.ID, model.EventProposalCreated, map[string]any{
		"proposalId":   p.ID,
		"title":        p.Title,
		"sourceBranch": p.SourceBranch,
		"problemId":    p.ProblemID,
	})
	return p, nil
}

func (h *Hub) opReviewProposal(c *call) (any, error) {
	id, err := c.args.Required("proposalId")
	if err != nil {
		return nil, err
	}
	raw, err := c.args.Required("verdict")
	if err != nil {
		return nil, err
	}
	verdict, ok := model.ParseVerdict(raw)
	if !ok {
		return nil, validation("Unknown verdict: %s", raw)
	}
	p, err := h.getProposal(c.ws.ID, id)
	if err != nil {
		return nil, err
	}
	if p.Status == model.ProposalMerged {
		return nil, invalid("Proposal %s is already merged", id)
	}
	if p.CreatedBy == c.agentID {
		return nil, invalid("Cannot review your own proposal")
	}
	p.Reviews = append(p.Reviews, model.Review{
		AgentID:   c.agentID,
		Verdict:   verdict,
		Comment:   c.args.String("comment"),
		Timestamp: h.clock(),
	})
	p.Status = model.ProposalReviewing
	if err := h.store.SaveProposal(p); err != nil {
		return nil, fmt.Errorf("save proposal: %w", err)
	}
	c.event(c.ws.ID, model.EventProposalReviewed, map[string]any{"proposalId": p.ID, "verdict": verdict})
	return p, nil
}

// MergeResult describes a completed merge.
type MergeResult struct {
	Proposal *model.Proposal `json:"proposal"`
	Thought  model.Thought   `json:"thought"`
	Problem  *model.Problem  `json:"problem,omitempty"`
}

func (h *Hub) opMergeProposal(c *call) (any, error) {
	id, err := c.args.Required("proposalId")
	if err != nil {
		return nil, err
	}
	p, err := h.getProposal(c.ws.ID, id)
	if err != nil {
		return nil, err
	}
	if p.Status == model.ProposalMerged {
		return nil, invalid("Proposal %s is already merged", id)
	}
	if !p.Approved() {
		return nil, invalid("Proposal %s needs at least one approving review before merge", id)
	}
	message := c.args.String("message")
	if message == "" {
		message = "Merged proposal: " + p.Title
	}

	ix, err := h.mainIndex(c.ws)
	if err != nil {
		return nil, err
	}
	in := &model.Intent{
		ID:            h.newID(),
		Op:            opMerge,
		WorkspaceID:   c.ws.ID,
		ProposalID:    p.ID,
		ProblemID:     p.ProblemID,
		AgentID:       c.agentID,
		AgentName:     c.agent.Name,
		Message:       message,
		ThoughtNumber: ix.NextMainNumber(),
		Timestamp:     h.clock().UnixMilli(),
		CreatedAt:     h.clock(),
	}
	res, err := h.runIntent(c.ws, in)
	if err != nil {
		return nil, err
	}

	c.event(c.ws.ID, model.EventProposalMerged, map[string]any{
		"proposalId":    p.ID,
		"thoughtNumber": res.Thought.ThoughtNumber,
		"problemId":     p.ProblemID,
	})
	if res.Problem != nil {
		c.event(c.ws.ID, model.EventProblemUpdated, map[string]any{"problemId": res.Problem.ID, "status": res.Problem.Status})
	}
	return res, nil
}

func (h *Hub) opListProposals(c *call) (any, error) {
	var want model.ProposalStatus
	if s := c.args.String("status"); s != "" {
		var ok bool
		if want, ok = model.ParseProposalStatus(s); !ok {
			return nil, validation("Unknown proposal status: %s", s)
		}
	}
	all, err := h.store.ListProposals(c.ws.ID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	out := make([]*model.Proposal, 0, len(all))
	for _, p := range all {
		if want == "" || p.Status == want {
			out = append(out, p)
		}
	}
	return out, nil
}
