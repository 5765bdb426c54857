package hub

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/KafClaw/thoughthub/internal/model"
)

// touch marks a member online and refreshes lastSeenAt. The workspace is
// rewritten only when the state changed or lastSeenAt has aged past the
// refresh interval.
func (h *Hub) touch(ws *model.Workspace, m *model.WorkspaceAgent) error {
	now := h.clock()
	if m.Status == model.PresenceOnline && now.Sub(m.LastSeenAt) < h.refresh {
		return nil
	}
	m.Status = model.PresenceOnline
	m.LastSeenAt = now
	if err := h.store.SaveWorkspace(ws); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	return nil
}

// SweepPresence flips members not seen within idle to offline and returns
// how many changed.
func (h *Hub) SweepPresence(idle time.Duration) (int, error) {
	all, err := h.store.ListWorkspaces()
	if err != nil {
		return 0, fmt.Errorf("list workspaces: %w", err)
	}
	cutoff := h.clock().Add(-idle)
	total := 0
	for _, summary := range all {
		n, err := h.sweepWorkspace(summary.ID, cutoff)
		if err != nil {
			return total, err
		}
		total += n
	}
	if total > 0 {
		slog.Info("Presence sweep", "offline", total)
	}
	return total, nil
}

func (h *Hub) sweepWorkspace(wsID string, cutoff time.Time) (int, error) {
	unlock := h.locks.lock(wsID)
	defer unlock()

	ws, err := h.loadWorkspace(wsID)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range ws.Agents {
		a := &ws.Agents[i]
		if a.Status == model.PresenceOnline && a.LastSeenAt.Before(cutoff) {
			a.Status = model.PresenceOffline
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	if err := h.store.SaveWorkspace(ws); err != nil {
		return 0, fmt.Errorf("save workspace: %w", err)
	}
	return n, nil
}
