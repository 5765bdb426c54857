package hub

import (
	"fmt"

	"github.com/KafClaw/thoughthub/internal/model"
)

func (h *Hub) opMarkConsensus(c *call) (any, error) {
	name, err := c.args.Required("name")
	if err != nil {
		return nil, err
	}
	ref, err := c.args.RequiredInt("thoughtRef")
	if err != nil {
		return nil, err
	}
	if ref < 1 {
		return nil, validation("thoughtRef must be a positive thought number")
	}
	m := &model.ConsensusMarker{
		ID:          h.newID(),
		WorkspaceID: c.ws.ID,
		Name:        name,
		Description: c.args.String("description"),
		ThoughtRef:  ref,
		BranchID:    c.args.String("branchId"),
		CreatedBy:   c.agentID,
		CreatedAt:   h.clock(),
		AgreedBy:    []string{c.agentID},
	}
	if err := h.store.SaveConsensus(m); err != nil {
		return nil, fmt.Errorf("save consensus: %w", err)
	}
	c.event(c.ws.ID, model.EventConsensusMarked, map[string]any{"consensusId": m.ID, "name": m.Name, "thoughtRef": ref})
	return m, nil
}

// EndorseResult reports an endorsement. Added is false for a repeat.
type EndorseResult struct {
	Marker *model.ConsensusMarker `json:"marker"`
	Added  bool                   `json:"added"`
}

func (h *Hub) opEndorseConsensus(c *call) (any, error) {
	id, err := c.args.Required("consensusId")
	if err != nil {
		return nil, err
	}
	m, err := h.store.GetConsensus(c.ws.ID, id)
	if m, err = lookup(m, err, "Consensus marker", id); err != nil {
		return nil, err
	}
	if !m.Agree(c.agentID) {
		return EndorseResult{Marker: m}, nil
	}
	if err := h.store.SaveConsensus(m); err != nil {
		return nil, fmt.Errorf("save consensus: %w", err)
	}
	c.event(c.ws.ID, model.EventConsensusEndorsed, map[string]any{"consensusId": m.ID, "agreedBy": len(m.AgreedBy)})
	return EndorseResult{Marker: m, Added: true}, nil
}

func (h *Hub) opListConsensus(c *call) (any, error) {
	markers, err := h.store.ListConsensus(c.ws.ID)
	if err != nil {
		return nil, fmt.Errorf("list consensus: %w", err)
	}
	if markers == nil {
		markers = []*model.ConsensusMarker{}
	}
	return markers, nil
}
