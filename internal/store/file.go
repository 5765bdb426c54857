package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/KafClaw/thoughthub/internal/model"
)

// FileStore keeps every entity as a JSON file under a data directory:
//
//	hub/agents.json
//	hub/workspaces/{ws}/workspace.json
//	hub/workspaces/{ws}/{problems,proposals,consensus,channels,intents}/{id}.json
//	sessions/{sessionId}.json
type FileStore struct {
	root string
	mu   sync.RWMutex
}

// NewFileStore creates the directory skeleton under root.
func NewFileStore(root string) (*FileStore, error) {
	for _, dir := range []string{filepath.Join(root, "hub", "workspaces"), filepath.Join(root, "sessions")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return &FileStore{root: root}, nil
}

// Root returns the data directory.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) agentsPath() string {
	return filepath.Join(s.root, "hub", "agents.json")
}

func (s *FileStore) workspaceDir(id string) string {
	return filepath.Join(s.root, "hub", "workspaces", safeName(id))
}

func (s *FileStore) docPath(workspaceID, kind, id string) string {
	return filepath.Join(s.workspaceDir(workspaceID), kind, safeName(id)+".json")
}

func (s *FileStore) sessionPath(id string) string {
	return filepath.Join(s.root, "sessions", safeName(id)+".json")
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON replaces path atomically via a temp file and rename.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func listJSON[T any](dir string) ([]*T, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []*T
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		v := new(T)
		if err := readJSON(filepath.Join(dir, e.Name()), v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *FileStore) LoadAgents() ([]model.AgentIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var agents []model.AgentIdentity
	if err := readJSON(s.agentsPath(), &agents); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return agents, nil
}

func (s *FileStore) SaveAgents(agents []model.AgentIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if agents == nil {
		agents = []model.AgentIdentity{}
	}
	return writeJSON(s.agentsPath(), agents)
}

func (s *FileStore) GetWorkspace(id string) (*model.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws := new(model.Workspace)
	if err := readJSON(filepath.Join(s.workspaceDir(id), "workspace.json"), ws); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *FileStore) SaveWorkspace(ws *model.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(s.workspaceDir(ws.ID), "workspace.json"), ws)
}

func (s *FileStore) ListWorkspaces() ([]*model.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(filepath.Join(s.root, "hub", "workspaces"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []*model.Workspace
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ws := new(model.Workspace)
		err := readJSON(filepath.Join(s.root, "hub", "workspaces", e.Name(), "workspace.json"), ws)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	sortWorkspaces(out)
	return out, nil
}

func getDoc[T any](s *FileStore, workspaceID, kind, id string) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := new(T)
	if err := readJSON(s.docPath(workspaceID, kind, id), v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *FileStore) putDoc(workspaceID, kind, id string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.docPath(workspaceID, kind, id), v)
}

func listDocs[T any](s *FileStore, workspaceID, kind string) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listJSON[T](filepath.Join(s.workspaceDir(workspaceID), kind))
}

func (s *FileStore) GetProblem(workspaceID, id string) (*model.Problem, error) {
	return getDoc[model.Problem](s, workspaceID, "problems", id)
}

func (s *FileStore) SaveProblem(p *model.Problem) error {
	return s.putDoc(p.WorkspaceID, "problems", p.ID, p)
}

func (s *FileStore) ListProblems(workspaceID string) ([]*model.Problem, error) {
	out, err := listDocs[model.Problem](s, workspaceID, "problems")
	sortProblems(out)
	return out, err
}

func (s *FileStore) GetProposal(workspaceID, id string) (*model.Proposal, error) {
	return getDoc[model.Proposal](s, workspaceID, "proposals", id)
}

func (s *FileStore) SaveProposal(p *model.Proposal) error {
	return s.putDoc(p.WorkspaceID, "proposals", p.ID, p)
}

func (s *FileStore) ListProposals(workspaceID string) ([]*model.Proposal, error) {
	out, err := listDocs[model.Proposal](s, workspaceID, "proposals")
	sortProposals(out)
	return out, err
}

func (s *FileStore) GetConsensus(workspaceID, id string) (*model.ConsensusMarker, error) {
	return getDoc[model.ConsensusMarker](s, workspaceID, "consensus", id)
}

func (s *FileStore) SaveConsensus(c *model.ConsensusMarker) error {
	return s.putDoc(c.WorkspaceID, "consensus", c.ID, c)
}

func (s *FileStore) ListConsensus(workspaceID string) ([]*model.ConsensusMarker, error) {
	out, err := listDocs[model.ConsensusMarker](s, workspaceID, "consensus")
	sortConsensus(out)
	return out, err
}

func (s *FileStore) GetChannel(workspaceID, problemID string) (*model.Channel, error) {
	return getDoc[model.Channel](s, workspaceID, "channels", problemID)
}

func (s *FileStore) SaveChannel(ch *model.Channel) error {
	return s.putDoc(ch.WorkspaceID, "channels", ch.ProblemID, ch)
}

func (s *FileStore) LoadThoughts(sessionID string) ([]model.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadThoughts(sessionID)
}

func (s *FileStore) loadThoughts(sessionID string) ([]model.Thought, error) {
	var thoughts []model.Thought
	if err := readJSON(s.sessionPath(sessionID), &thoughts); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []model.Thought{}, nil
		}
		return nil, err
	}
	return thoughts, nil
}

func (s *FileStore) AppendThought(sessionID string, t model.Thought) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	thoughts, err := s.loadThoughts(sessionID)
	if err != nil {
		return err
	}
	return writeJSON(s.sessionPath(sessionID), append(thoughts, t))
}

func (s *FileStore) SaveIntent(in *model.Intent) error {
	return s.putDoc(in.WorkspaceID, "intents", in.ID, in)
}

func (s *FileStore) DeleteIntent(workspaceID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.docPath(workspaceID, "intents", id))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStore) ListIntents() ([]*model.Intent, error) {
	s.mu.RLock()
	dirs, err := os.ReadDir(filepath.Join(s.root, "hub", "workspaces"))
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	var out []*model.Intent
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		in, err := listDocs[model.Intent](s, d.Name(), "intents")
		if err != nil {
			return nil, err
		}
		out = append(out, in...)
	}
	sortIntents(out)
	return out, nil
}

func (s *FileStore) Close() error { return nil }
