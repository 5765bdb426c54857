package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/KafClaw/thoughthub/internal/model"

	_ "modernc.org/sqlite"
)

// Entity types of the documents table.
const (
	entityAgent     = "agent"
	entityWorkspace = "workspace"
	entityProblem   = "problem"
	entityProposal  = "proposal"
	entityConsensus = "consensus"
	entityChannel   = "channel"
	entityIntent    = "intent"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	workspace_id TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	body TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (workspace_id, entity_type, entity_id)
);
CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(entity_type);
CREATE TABLE IF NOT EXISTS thoughts (
	session_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (session_id, seq)
);
`

// SQLiteStore keeps entities as JSON documents keyed by
// (workspace_id, entity_type, entity_id).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path. driver is "sqlite"
// (modernc.org/sqlite) unless another registered driver is named.
func NewSQLiteStore(path, driver string) (*SQLiteStore, error) {
	if driver == "" {
		driver = "sqlite"
	}
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if driver == "sqlite3" {
		dsn = "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open hub db: %w", err)
	}
	s, err := NewSQLiteStoreDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStoreDB wraps an already opened database and applies the schema.
func NewSQLiteStoreDB(db *sql.DB) (*SQLiteStore, error) {
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) get(workspaceID, kind, id string, v any) error {
	var body string
	err := s.db.QueryRow(`SELECT body FROM documents WHERE workspace_id = ? AND entity_type = ? AND entity_id = ?`,
		workspaceID, kind, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(body), v)
}

func upsert(exec interface {
	Exec(string, ...any) (sql.Result, error)
}, workspaceID, kind, id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = exec.Exec(`INSERT INTO documents (workspace_id, entity_type, entity_id, body, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(workspace_id, entity_type, entity_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		workspaceID, kind, id, string(body), time.Now().UTC())
	return err
}

func queryDocs[T any](s *SQLiteStore, query string, args ...any) ([]*T, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*T
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		v := new(T)
		if err := json.Unmarshal([]byte(body), v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func listKind[T any](s *SQLiteStore, workspaceID, kind string) ([]*T, error) {
	return queryDocs[T](s, `SELECT body FROM documents WHERE workspace_id = ? AND entity_type = ?`, workspaceID, kind)
}

func (s *SQLiteStore) LoadAgents() ([]model.AgentIdentity, error) {
	list, err := queryDocs[model.AgentIdentity](s, `SELECT body FROM documents WHERE entity_type = ?`, entityAgent)
	if err != nil {
		return nil, err
	}
	agents := make([]model.AgentIdentity, 0, len(list))
	for _, a := range list {
		agents = append(agents, *a)
	}
	byCreatedValues(agents)
	return agents, nil
}

func byCreatedValues(agents []model.AgentIdentity) {
	sort.SliceStable(agents, func(i, j int) bool {
		if !agents[i].RegisteredAt.Equal(agents[j].RegisteredAt) {
			return agents[i].RegisteredAt.Before(agents[j].RegisteredAt)
		}
		return agents[i].AgentID < agents[j].AgentID
	})
}

// SaveAgents upserts every identity in one transaction. Identities are
// never deleted.
func (s *SQLiteStore) SaveAgents(agents []model.AgentIdentity) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, a := range agents {
		if err := upsert(tx, "", entityAgent, a.AgentID, a); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetWorkspace(id string) (*model.Workspace, error) {
	ws := new(model.Workspace)
	if err := s.get(id, entityWorkspace, id, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *SQLiteStore) SaveWorkspace(ws *model.Workspace) error {
	return upsert(s.db, ws.ID, entityWorkspace, ws.ID, ws)
}

func (s *SQLiteStore) ListWorkspaces() ([]*model.Workspace, error) {
	out, err := queryDocs[model.Workspace](s, `SELECT body FROM documents WHERE entity_type = ?`, entityWorkspace)
	sortWorkspaces(out)
	return out, err
}

func (s *SQLiteStore) GetProblem(workspaceID, id string) (*model.Problem, error) {
	p := new(model.Problem)
	if err := s.get(workspaceID, entityProblem, id, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) SaveProblem(p *model.Problem) error {
	return upsert(s.db, p.WorkspaceID, entityProblem, p.ID, p)
}

func (s *SQLiteStore) ListProblems(workspaceID string) ([]*model.Problem, error) {
	out, err := listKind[model.Problem](s, workspaceID, entityProblem)
	sortProblems(out)
	return out, err
}

func (s *SQLiteStore) GetProposal(workspaceID, id string) (*model.Proposal, error) {
	p := new(model.Proposal)
	if err := s.get(workspaceID, entityProposal, id, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) SaveProposal(p *model.Proposal) error {
	return upsert(s.db, p.WorkspaceID, entityProposal, p.ID, p)
}

func (s *SQLiteStore) ListProposals(workspaceID string) ([]*model.Proposal, error) {
	out, err := listKind[model.Proposal](s, workspaceID, entityProposal)
	sortProposals(out)
	return out, err
}

func (s *SQLiteStore) GetConsensus(workspaceID, id string) (*model.ConsensusMarker, error) {
	c := new(model.ConsensusMarker)
	if err := s.get(workspaceID, entityConsensus, id, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLiteStore) SaveConsensus(c *model.ConsensusMarker) error {
	return upsert(s.db, c.WorkspaceID, entityConsensus, c.ID, c)
}

func (s *SQLiteStore) ListConsensus(workspaceID string) ([]*model.ConsensusMarker, error) {
	out, err := listKind[model.ConsensusMarker](s, workspaceID, entityConsensus)
	sortConsensus(out)
	return out, err
}

func (s *SQLiteStore) GetChannel(workspaceID, problemID string) (*model.Channel, error) {
	ch := new(model.Channel)
	if err := s.get(workspaceID, entityChannel, problemID, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *SQLiteStore) SaveChannel(ch *model.Channel) error {
	return upsert(s.db, ch.WorkspaceID, entityChannel, ch.ProblemID, ch)
}

func (s *SQLiteStore) LoadThoughts(sessionID string) ([]model.Thought, error) {
	rows, err := s.db.Query(`SELECT body FROM thoughts WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	thoughts := []model.Thought{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var t model.Thought
		if err := json.Unmarshal([]byte(body), &t); err != nil {
			return nil, err
		}
		thoughts = append(thoughts, t)
	}
	return thoughts, rows.Err()
}

func (s *SQLiteStore) AppendThought(sessionID string, t model.Thought) error {
	body, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO thoughts (session_id, seq, body)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM thoughts WHERE session_id = ?), ?)`,
		sessionID, sessionID, string(body))
	return err
}

func (s *SQLiteStore) SaveIntent(in *model.Intent) error {
	return upsert(s.db, in.WorkspaceID, entityIntent, in.ID, in)
}

func (s *SQLiteStore) DeleteIntent(workspaceID, id string) error {
	_, err := s.db.Exec(`DELETE FROM documents WHERE workspace_id = ? AND entity_type = ? AND entity_id = ?`,
		workspaceID, entityIntent, id)
	return err
}

func (s *SQLiteStore) ListIntents() ([]*model.Intent, error) {
	out, err := queryDocs[model.Intent](s, `SELECT body FROM documents WHERE entity_type = ?`, entityIntent)
	sortIntents(out)
	return out, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
