package hub

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KafClaw/thoughthub/internal/config"
	"github.com/KafClaw/thoughthub/internal/model"
)

// Register issues a fresh agent ID. Repeated names yield distinct IDs.
func (h *Hub) Register(name string, clientInfo map[string]any, profile string, manager bool) (*model.AgentIdentity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation("Missing required argument: name")
	}
	return h.addIdentity(h.newID(), name, clientInfo, profile, manager)
}

func (h *Hub) addIdentity(id, name string, clientInfo map[string]any, profile string, manager bool) (*model.AgentIdentity, error) {
	h.rosterMu.Lock()
	defer h.rosterMu.Unlock()

	agents, err := h.store.LoadAgents()
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	for _, a := range agents {
		if a.AgentID == id {
			return nil, validation("Agent ID already registered: %s", id)
		}
	}
	agent := model.AgentIdentity{
		AgentID:      id,
		Name:         name,
		Role:         string(model.RoleContributor),
		Profile:      profile,
		Manager:      manager,
		ClientInfo:   clientInfo,
		RegisteredAt: h.clock(),
	}
	if err := h.store.SaveAgents(append(agents, agent)); err != nil {
		return nil, fmt.Errorf("save agents: %w", err)
	}
	return &agent, nil
}

// Identity returns the registered agent or a NotRegistered error.
func (h *Hub) Identity(agentID string) (*model.AgentIdentity, error) {
	if agentID == "" {
		return nil, newError(KindNotRegistered, "Not registered. Call register first.")
	}
	agents, err := h.store.LoadAgents()
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	for i := range agents {
		if agents[i].AgentID == agentID {
			return &agents[i], nil
		}
	}
	return nil, newError(KindNotRegistered, "Unknown agent %s. Call register first.", agentID)
}

// FindByName returns the earliest registered agent with name.
func (h *Hub) FindByName(name string) (*model.AgentIdentity, bool, error) {
	agents, err := h.store.LoadAgents()
	if err != nil {
		return nil, false, fmt.Errorf("load agents: %w", err)
	}
	for i := range agents {
		if agents[i].Name == name {
			return &agents[i], true, nil
		}
	}
	return nil, false, nil
}

// ResolveIdentity maps a fixed identity configuration onto a registered
// agent. With an explicit AgentID the paired AgentName is required and the
// ID is registered on first sight. With only AgentName the first agent of
// that name is reused, or a new one is created. With neither it returns
// nil and callers must register explicitly.
func (h *Hub) ResolveIdentity(cfg config.IdentityConfig) (*model.AgentIdentity, error) {
	id := strings.TrimSpace(cfg.AgentID)
	name := strings.TrimSpace(cfg.AgentName)
	switch {
	case id != "":
		if name == "" {
			return nil, validation("An explicit agent ID requires an agent name")
		}
		agent, err := h.Identity(id)
		if err == nil {
			return agent, nil
		}
		if !errors.Is(err, ErrNotRegistered) {
			return nil, err
		}
		return h.addIdentity(id, name, nil, cfg.Profile, false)
	case name != "":
		agent, ok, err := h.FindByName(name)
		if err != nil || ok {
			return agent, err
		}
		return h.Register(name, nil, cfg.Profile, false)
	}
	return nil, nil
}

func (h *Hub) opRegister(c *call) (any, error) {
	name, err := c.args.Required("name")
	if err != nil {
		return nil, err
	}
	return h.Register(name, c.args.Map("clientInfo"), c.args.String("profile"), c.args.Bool("manager", false))
}

type whoamiResult struct {
	*model.AgentIdentity
	Workspaces []string `json:"workspaces"`
}

func (h *Hub) opWhoami(c *call) (any, error) {
	all, err := h.store.ListWorkspaces()
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, ws := range all {
		if ws.Member(c.agentID) != nil {
			ids = append(ids, ws.ID)
		}
	}
	return whoamiResult{AgentIdentity: c.agent, Workspaces: ids}, nil
}
