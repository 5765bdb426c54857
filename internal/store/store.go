// Package store persists hub entities. Every entity is a whole document
// rewritten per mutation; thoughts are an append-only list per session.
package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KafClaw/thoughthub/internal/config"
	"github.com/KafClaw/thoughthub/internal/model"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// ErrLocked is returned by LockDir while another process writes the data
// directory. Per-workspace serialization is in-process only, so a data
// directory has at most one writer process.
var ErrLocked = errors.New("data directory is in use by another thoughthub process")

// LockFile is the writer lock file inside a data directory.
const LockFile = "hub.lock"

// Store is the storage port used by the hub. Implementations need not be
// transactional across documents; callers serialize per workspace.
type Store interface {
	LoadAgents() ([]model.AgentIdentity, error)
	SaveAgents(agents []model.AgentIdentity) error

	GetWorkspace(id string) (*model.Workspace, error)
	SaveWorkspace(ws *model.Workspace) error
	ListWorkspaces() ([]*model.Workspace, error)

	GetProblem(workspaceID, id string) (*model.Problem, error)
	SaveProblem(p *model.Problem) error
	ListProblems(workspaceID string) ([]*model.Problem, error)

	GetProposal(workspaceID, id string) (*model.Proposal, error)
	SaveProposal(p *model.Proposal) error
	ListProposals(workspaceID string) ([]*model.Proposal, error)

	GetConsensus(workspaceID, id string) (*model.ConsensusMarker, error)
	SaveConsensus(c *model.ConsensusMarker) error
	ListConsensus(workspaceID string) ([]*model.ConsensusMarker, error)

	GetChannel(workspaceID, problemID string) (*model.Channel, error)
	SaveChannel(ch *model.Channel) error

	LoadThoughts(sessionID string) ([]model.Thought, error)
	AppendThought(sessionID string, t model.Thought) error

	SaveIntent(in *model.Intent) error
	DeleteIntent(workspaceID, id string) error
	ListIntents() ([]*model.Intent, error)

	Close() error
}

// Open returns the store selected by cfg.Storage.Backend.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case "", config.BackendFile:
		return NewFileStore(cfg.Paths.DataDir)
	case config.BackendSQLite:
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.Paths.DataDir, "hub.db")
		}
		if err := config.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		return NewSQLiteStore(path, cfg.Storage.Driver)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// safeName maps an ID onto a single path element.
func safeName(id string) string {
	s := strings.ReplaceAll(id, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "..", "_")
	return filepath.Base(s)
}

func byCreated[T any](items []*T, created func(*T) time.Time, id func(*T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return id(items[i]) < id(items[j])
	})
}

func sortWorkspaces(ws []*model.Workspace) {
	byCreated(ws, func(w *model.Workspace) time.Time { return w.CreatedAt }, func(w *model.Workspace) string { return w.ID })
}

func sortProblems(ps []*model.Problem) {
	byCreated(ps, func(p *model.Problem) time.Time { return p.CreatedAt }, func(p *model.Problem) string { return p.ID })
}

func sortProposals(ps []*model.Proposal) {
	byCreated(ps, func(p *model.Proposal) time.Time { return p.CreatedAt }, func(p *model.Proposal) string { return p.ID })
}

func sortConsensus(cs []*model.ConsensusMarker) {
	byCreated(cs, func(c *model.ConsensusMarker) time.Time { return c.CreatedAt }, func(c *model.ConsensusMarker) string { return c.ID })
}

func sortIntents(in []*model.Intent) {
	byCreated(in, func(i *model.Intent) time.Time { return i.CreatedAt }, func(i *model.Intent) string { return i.ID })
}
