package hub

import (
	"fmt"

	"github.com/KafClaw/thoughthub/internal/model"
)

func (h *Hub) getProblem(wsID, id string) (*model.Problem, error) {
	p, err := h.store.GetProblem(wsID, id)
	return lookup(p, err, "Problem", id)
}

func memberName(ws *model.Workspace, agentID string) string {
	if m := ws.Member(agentID); m != nil && m.AgentName != "" {
		return fmt.Sprintf("%s (%s)", m.AgentName, agentID)
	}
	return agentID
}

func (h *Hub) createProblem(c *call, parentID string) (*model.Problem, error) {
	title, err := c.args.Required("title")
	if err != nil {
		return nil, err
	}
	if parentID != "" {
		if _, err := h.getProblem(c.ws.ID, parentID); err != nil {
			return nil, err
		}
	}
	now := h.clock()
	p := &model.Problem{
		ID:          h.newID(),
		WorkspaceID: c.ws.ID,
		Title:       title,
		Description: c.args.String("description"),
		CreatedBy:   c.agentID,
		Status:      model.ProblemOpen,
		ParentID:    parentID,
		Comments:    []model.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	intro := "Problem created: " + title
	if parentID != "" {
		intro = fmt.Sprintf("Sub-problem of %s created: %s", parentID, title)
	}
	ch := &model.Channel{
		ID:          p.ID,
		WorkspaceID: c.ws.ID,
		ProblemID:   p.ID,
		Messages: []model.ChannelMessage{{
			ID:        h.newID(),
			AgentID:   model.SystemAgentID,
			Content:   intro,
			Timestamp: now,
		}},
	}
	// The channel is written first so a saved problem always has one.
	if err := h.store.SaveChannel(ch); err != nil {
		return nil, fmt.Errorf("save channel: %w", err)
	}
	if err := h.store.SaveProblem(p); err != nil {
		return nil, fmt.Errorf("save problem: %w", err)
	}
	data := map[string]any{"problemId": p.ID, "title": p.Title}
	if parentID != "" {
		data["parentId"] = parentID
	}
	c.event(c.ws.ID, model.EventProblemCreated, data)
	return p, nil
}

func (h *Hub) opCreateProblem(c *call) (any, error) {
	return h.createProblem(c, "")
}

func (h *Hub) opCreateSubProblem(c *call) (any, error) {
	parentID, err := c.args.Required("parentId")
	if err != nil {
		return nil, err
	}
	return h.createProblem(c, parentID)
}

func (h *Hub) opClaimProblem(c *call) (any, error) {
	id, err := c.args.Required("problemId")
	if err != nil {
		return nil, err
	}
	p, err := h.getProblem(c.ws.ID, id)
	if err != nil {
		return nil, err
	}
	if p.Status.Terminal() {
		return nil, invalid("Problem %s is %s and cannot be claimed", id, p.Status)
	}
	if p.AssignedTo != "" {
		return nil, invalid("Problem %s is already claimed by %s", id, memberName(c.ws, p.AssignedTo))
	}
	ix, err := h.mainIndex(c.ws)
	if err != nil {
		return nil, err
	}
	now := h.clock()
	fork := ix.MainLength()
	p.AssignedTo = c.agentID
	p.Status = model.ProblemInProgress
	p.BranchID = "problem-" + p.ID
	p.BranchFromThought = &fork
	p.UpdatedAt = now
	if err := h.store.SaveProblem(p); err != nil {
		return nil, fmt.Errorf("save problem: %w", err)
	}

	c.member.CurrentWork = &model.CurrentWork{ProblemID: p.ID, BranchID: p.BranchID, Since: now}
	if err := h.store.SaveWorkspace(c.ws); err != nil {
		return nil, fmt.Errorf("save workspace: %w", err)
	}
	c.event(c.ws.ID, model.EventProblemClaimed, map[string]any{
		"problemId":         p.ID,
		"branchId":          p.BranchID,
		"branchFromThought": fork,
	})
	return p, nil
}

// releaseWork clears currentWork of whoever is working on problemID.
func releaseWork(ws *model.Workspace, problemID string) bool {
	changed := false
	for i := range ws.Agents {
		if cw := ws.Agents[i].CurrentWork; cw != nil && cw.ProblemID == problemID {
			ws.Agents[i].CurrentWork = nil
			changed = true
		}
	}
	return changed
}

func (h *Hub) opUpdateProblem(c *call) (any, error) {
	id, err := c.args.Required("problemId")
	if err != nil {
		return nil, err
	}
	status, resolution, comment := c.args.String("status"), c.args.String("resolution"), c.args.String("comment")
	if status == "" && resolution == "" && comment == "" {
		return nil, validation("Provide at least one of status, resolution or comment")
	}
	var to model.ProblemStatus
	if status != "" {
		var ok bool
		if to, ok = model.ParseProblemStatus(status); !ok {
			return nil, validation("Unknown problem status: %s", status)
		}
	}

	p, err := h.getProblem(c.ws.ID, id)
	if err != nil {
		return nil, err
	}
	if to != "" && to != p.Status && !p.Status.CanTransition(to) {
		return nil, invalid("Cannot move problem %s from %s to %s", id, p.Status, to)
	}

	now := h.clock()
	if comment != "" {
		p.Comments = append(p.Comments, model.Comment{AgentID: c.agentID, Content: comment, Timestamp: now})
	}
	if resolution != "" {
		p.Resolution = resolution
	}
	if to != "" {
		p.Status = to
	}
	p.UpdatedAt = now
	if err := h.store.SaveProblem(p); err != nil {
		return nil, fmt.Errorf("save problem: %w", err)
	}
	if p.Status.Terminal() && releaseWork(c.ws, p.ID) {
		if err := h.store.SaveWorkspace(c.ws); err != nil {
			return nil, fmt.Errorf("save workspace: %w", err)
		}
	}

	data := map[string]any{"problemId": p.ID, "status": p.Status}
	if comment != "" {
		data["comment"] = comment
	}
	c.event(c.ws.ID, model.EventProblemUpdated, data)
	return p, nil
}

func (h *Hub) opListProblems(c *call) (any, error) {
	var want model.ProblemStatus
	if s := c.args.String("status"); s != "" {
		var ok bool
		if want, ok = model.ParseProblemStatus(s); !ok {
			return nil, validation("Unknown problem status: %s", s)
		}
	}
	all, err := h.store.ListProblems(c.ws.ID)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	out := make([]*model.Problem, 0, len(all))
	for _, p := range all {
		if want == "" || p.Status == want {
			out = append(out, p)
		}
	}
	return out, nil
}
