package hub

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KafClaw/thoughthub/internal/chain"
	"github.com/KafClaw/thoughthub/internal/model"
	"github.com/KafClaw/thoughthub/internal/store"
)

func (h *Hub) loadWorkspace(id string) (*model.Workspace, error) {
	ws, err := h.store.GetWorkspace(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Workspace", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load workspace: %w", err)
	}
	return ws, nil
}

// WorkspaceSummary is the listing form of a workspace.
type WorkspaceSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	Members     int       `json:"members"`
	Online      int       `json:"online"`
}

func summarize(ws *model.Workspace) WorkspaceSummary {
	s := WorkspaceSummary{
		ID:          ws.ID,
		Name:        ws.Name,
		Description: ws.Description,
		CreatedBy:   ws.CreatedBy,
		CreatedAt:   ws.CreatedAt,
		Members:     len(ws.Agents),
	}
	for _, a := range ws.Agents {
		if a.Status == model.PresenceOnline {
			s.Online++
		}
	}
	return s
}

func (h *Hub) opCreateWorkspace(c *call) (any, error) {
	name, err := c.args.Required("name")
	if err != nil {
		return nil, err
	}
	now := h.clock()
	ws := &model.Workspace{
		ID:            h.newID(),
		Name:          name,
		Description:   c.args.String("description"),
		CreatedBy:     c.agentID,
		MainSessionID: h.newID(),
		CreatedAt:     now,
		Agents: []model.WorkspaceAgent{{
			AgentID:    c.agentID,
			AgentName:  c.agent.Name,
			Role:       model.RoleCoordinator,
			Status:     model.PresenceOnline,
			JoinedAt:   now,
			LastSeenAt: now,
		}},
	}
	if err := h.store.SaveWorkspace(ws); err != nil {
		return nil, fmt.Errorf("save workspace: %w", err)
	}
	c.event(ws.ID, model.EventAgentJoined, map[string]any{"agentName": c.agent.Name, "role": model.RoleCoordinator})
	return ws, nil
}

// join adds the caller to a workspace, or flips a returning member online.
func (h *Hub) join(c *call, wsID string) (*model.Workspace, error) {
	unlock := h.locks.lock(wsID)
	defer unlock()

	ws, err := h.loadWorkspace(wsID)
	if err != nil {
		return nil, err
	}
	now := h.clock()
	returning := false
	if m := ws.Member(c.agentID); m != nil {
		returning = true
		m.Status = model.PresenceOnline
		m.LastSeenAt = now
		m.AgentName = c.agent.Name
	} else {
		ws.Agents = append(ws.Agents, model.WorkspaceAgent{
			AgentID:    c.agentID,
			AgentName:  c.agent.Name,
			Role:       model.RoleContributor,
			Status:     model.PresenceOnline,
			JoinedAt:   now,
			LastSeenAt: now,
		})
	}
	if err := h.store.SaveWorkspace(ws); err != nil {
		return nil, fmt.Errorf("save workspace: %w", err)
	}
	c.event(ws.ID, model.EventAgentJoined, map[string]any{
		"agentName": c.agent.Name,
		"role":      ws.Member(c.agentID).Role,
		"returning": returning,
	})
	return ws, nil
}

func (h *Hub) opJoinWorkspace(c *call) (any, error) {
	wsID, err := c.args.Required("workspaceId")
	if err != nil {
		return nil, err
	}
	return h.join(c, wsID)
}

func (h *Hub) opListWorkspaces(c *call) (any, error) {
	all, err := h.store.ListWorkspaces()
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	out := make([]WorkspaceSummary, 0, len(all))
	for _, ws := range all {
		out = append(out, summarize(ws))
	}
	return out, nil
}

// WorkspaceStatus is the full state overview of one workspace.
type WorkspaceStatus struct {
	Workspace       WorkspaceSummary       `json:"workspace"`
	Agents          []model.WorkspaceAgent `json:"agents"`
	Problems        map[string]int         `json:"problems"`
	Proposals       map[string]int         `json:"proposals"`
	Consensus       int                    `json:"consensus"`
	MainChainLength int                    `json:"mainChainLength"`
	Branches        []chain.BranchInfo     `json:"branches"`
}

// Status builds the status overview of a workspace.
func (h *Hub) Status(wsID string) (*WorkspaceStatus, error) {
	ws, err := h.loadWorkspace(wsID)
	if err != nil {
		return nil, err
	}
	return h.status(ws)
}

func (h *Hub) status(ws *model.Workspace) (*WorkspaceStatus, error) {
	problems, err := h.store.ListProblems(ws.ID)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	proposals, err := h.store.ListProposals(ws.ID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	markers, err := h.store.ListConsensus(ws.ID)
	if err != nil {
		return nil, fmt.Errorf("list consensus: %w", err)
	}
	ix, err := h.mainIndex(ws)
	if err != nil {
		return nil, err
	}
	st := &WorkspaceStatus{
		Workspace:       summarize(ws),
		Agents:          ws.Agents,
		Problems:        map[string]int{},
		Proposals:       map[string]int{},
		Consensus:       len(markers),
		MainChainLength: ix.MainLength(),
		Branches:        ix.Branches(),
	}
	for _, p := range problems {
		st.Problems[string(p.Status)]++
	}
	for _, p := range proposals {
		st.Proposals[string(p.Status)]++
	}
	return st, nil
}

func (h *Hub) opWorkspaceStatus(c *call) (any, error) {
	return h.status(c.ws)
}

// findWorkspace resolves a workspace by ID or, failing that, by name.
func (h *Hub) findWorkspace(id, name string) (*model.Workspace, error) {
	if id != "" {
		return h.loadWorkspace(id)
	}
	all, err := h.store.ListWorkspaces()
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	for _, ws := range all {
		if strings.EqualFold(ws.Name, name) {
			return ws, nil
		}
	}
	return nil, notFound("Workspace", name)
}

func (h *Hub) opQuickJoin(c *call) (any, error) {
	id, name := c.args.String("workspaceId"), c.args.String("name")
	if id == "" && name == "" {
		return nil, validation("Missing required argument: workspaceId or name")
	}
	target, err := h.findWorkspace(id, name)
	if err != nil {
		return nil, err
	}
	prevSeen := time.Time{}
	if m := target.Member(c.agentID); m != nil {
		prevSeen = m.LastSeenAt
	}
	ws, err := h.join(c, target.ID)
	if err != nil {
		return nil, err
	}
	return h.digest(ws, c.agentID, prevSeen)
}
