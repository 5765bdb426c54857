package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/KafClaw/thoughthub/internal/config"
	"github.com/KafClaw/thoughthub/internal/hub"
	"github.com/KafClaw/thoughthub/internal/store"
	"github.com/KafClaw/thoughthub/internal/waiter"
)

// app bundles the loaded config with an open store and hub.
type app struct {
	cfg   *config.Config
	store store.Store
	hub   *hub.Hub
	lock  *store.DirLock
}

// openApp loads config and opens the store. Writers take the data
// directory lock first; read-only commands skip it.
func openApp(writer bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	var lock *store.DirLock
	if writer {
		if lock, err = store.LockDir(cfg.Paths.DataDir); err != nil {
			return nil, err
		}
	}
	st, err := store.Open(cfg)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("open store: %w", err)
	}
	h := hub.New(hub.Options{
		Store:  st,
		Waiter: waiter.NewManager(cfg.Hub.Coalesce(), cfg.Hub.WaitDefault(), cfg.Hub.WaitMax()),
	})
	return &app{cfg: cfg, store: st, hub: h, lock: lock}, nil
}

func (a *app) Close() error {
	a.hub.Shutdown()
	err := a.store.Close()
	if uerr := a.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

// defaultAgent resolves the configured process identity, or "" when none.
func (a *app) defaultAgent() (string, error) {
	ident, err := a.hub.ResolveIdentity(a.cfg.Identity)
	if err != nil {
		return "", fmt.Errorf("resolve identity: %w", err)
	}
	if ident == nil {
		return "", nil
	}
	return ident.AgentID, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
