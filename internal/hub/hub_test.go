package hub

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KafClaw/thoughthub/internal/model"
	"github.com/KafClaw/thoughthub/internal/store"
	"github.com/KafClaw/thoughthub/internal/waiter"
)

// stepClock advances one millisecond per reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestHubWith(t *testing.T, st store.Store) (*Hub, *stepClock) {
	t.Helper()
	clk := &stepClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	h := New(Options{
		Store:  st,
		Now:    clk.Now,
		Waiter: waiter.NewManager(waiter.DefaultWindow, time.Second, waiter.MaxTimeout),
	})
	t.Cleanup(h.Shutdown)
	return h, clk
}

func newTestHub(t *testing.T) (*Hub, *stepClock) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	return newTestHubWith(t, st)
}

func do(t *testing.T, h *Hub, agent, op string, args map[string]any) any {
	t.Helper()
	res, err := h.Handle(context.Background(), agent, op, args)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", op, err)
	}
	return res
}

func fail(t *testing.T, h *Hub, agent, op string, args map[string]any, want *Error) *Error {
	t.Helper()
	_, err := h.Handle(context.Background(), agent, op, args)
	if err == nil {
		t.Fatalf("%s: expected %s error", op, want.Kind)
	}
	if !errors.Is(err, want) {
		t.Fatalf("%s: expected %s, got %v", op, want.Kind, err)
	}
	var herr *Error
	errors.As(err, &herr)
	return herr
}

func register(t *testing.T, h *Hub, name string) string {
	t.Helper()
	return do(t, h, "", "register", map[string]any{"name": name}).(*model.AgentIdentity).AgentID
}

// fixture is a workspace with coordinator a and contributor b.
type fixture struct {
	h    *Hub
	clk  *stepClock
	a, b string
	ws   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h, clk := newTestHub(t)
	return setupFixture(t, h, clk)
}

func setupFixture(t *testing.T, h *Hub, clk *stepClock) *fixture {
	t.Helper()
	f := &fixture{h: h, clk: clk}
	f.a = register(t, h, "alice")
	f.b = register(t, h, "bob")
	f.ws = do(t, h, f.a, "create_workspace", map[string]any{"name": "Research"}).(*model.Workspace).ID
	do(t, h, f.b, "join_workspace", map[string]any{"workspaceId": f.ws})
	return f
}

func (f *fixture) args(kv ...any) map[string]any {
	m := map[string]any{"workspaceId": f.ws}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func (f *fixture) problem(t *testing.T, title string) *model.Problem {
	t.Helper()
	return do(t, f.h, f.a, "create_problem", f.args("title", title)).(*model.Problem)
}

func TestRegisterIssuesDistinctIDs(t *testing.T) {
	h, _ := newTestHub(t)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		id := register(t, h, "same-name")
		if seen[id] {
			t.Fatalf("agent ID %s reused", id)
		}
		seen[id] = true
	}
	agent, err := h.Identity(register(t, h, "x"))
	if err != nil || agent.Role != string(model.RoleContributor) {
		t.Fatalf("unexpected identity: %+v %v", agent, err)
	}
	fail(t, h, "", "register", map[string]any{}, ErrValidation)
}

func TestProgressiveAuthorization(t *testing.T) {
	f := newFixture(t)
	h := f.h

	fail(t, h, "", "whoami", nil, ErrNotRegistered)
	fail(t, h, "ghost", "create_workspace", map[string]any{"name": "x"}, ErrNotRegistered)
	if _, err := h.Handle(context.Background(), "", "list_workspaces", nil); err != nil {
		t.Fatalf("unregistered callers may list workspaces: %v", err)
	}

	carol := register(t, h, "carol")
	herr := fail(t, h, carol, "workspace_status", f.args(), ErrNotAMember)
	if herr.Message != "Not a member of this workspace." {
		t.Fatalf("unexpected message: %q", herr.Message)
	}
	fail(t, h, carol, "post_message", f.args("problemId", "p", "content", "hi"), ErrNotAMember)
	fail(t, h, carol, "workspace_status", map[string]any{"workspaceId": "missing"}, ErrNotFound)
	fail(t, h, carol, "workspace_status", nil, ErrValidation)

	do(t, h, carol, "join_workspace", f.args())
	do(t, h, carol, "workspace_status", f.args())

	for _, op := range []string{"create_problem", "create_sub_problem", "merge_proposal", "mark_consensus", "post_system_message"} {
		fail(t, h, f.b, op, f.args("title", "t", "name", "n", "thoughtRef", 1), ErrAuthorizationDenied)
	}
	fail(t, h, f.a, "no_such_op", nil, ErrValidation)

	who := do(t, h, f.b, "whoami", nil).(whoamiResult)
	if len(who.Workspaces) != 1 || who.Workspaces[0] != f.ws {
		t.Fatalf("unexpected whoami: %+v", who)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ws, _ := f.h.Store().GetWorkspace(f.ws)
	ws.Member(f.b).Status = model.PresenceOffline
	_ = f.h.Store().SaveWorkspace(ws)

	got := do(t, f.h, f.b, "join_workspace", f.args()).(*model.Workspace)
	if len(got.Agents) != 2 {
		t.Fatalf("membership duplicated: %+v", got.Agents)
	}
	m := got.Member(f.b)
	if m.Status != model.PresenceOnline || m.Role != model.RoleContributor {
		t.Fatalf("unexpected member: %+v", m)
	}
	if got.Coordinator().AgentID != f.a {
		t.Fatal("creator must stay the only coordinator")
	}
}

func runEndToEnd(t *testing.T, f *fixture) {
	t.Helper()
	h := f.h
	p1 := f.problem(t, "Prove the lemma")

	claimed := do(t, h, f.b, "claim_problem", f.args("problemId", p1.ID)).(*model.Problem)
	if claimed.Status != model.ProblemInProgress || claimed.AssignedTo != f.b {
		t.Fatalf("unexpected claim: %+v", claimed)
	}
	if claimed.BranchFromThought == nil || *claimed.BranchFromThought != 0 {
		t.Fatalf("expected branchFromThought=0, got %v", claimed.BranchFromThought)
	}

	r1 := do(t, h, f.b, "create_proposal", f.args("title", "Lemma proof", "problemId", p1.ID)).(*model.Proposal)
	if r1.SourceBranch != claimed.BranchID {
		t.Fatalf("source branch should default to problem branch, got %q", r1.SourceBranch)
	}
	do(t, h, f.a, "review_proposal", f.args("proposalId", r1.ID, "verdict", "approve"))

	res := do(t, h, f.a, "merge_proposal", f.args("proposalId", r1.ID, "message", "Lemma proven by induction")).(*MergeResult)
	if res.Proposal.Status != model.ProposalMerged || res.Proposal.MergeThoughtNumber == nil || *res.Proposal.MergeThoughtNumber != 1 {
		t.Fatalf("unexpected merged proposal: %+v", res.Proposal)
	}
	if res.Thought.AgentID != f.a || res.Thought.Thought != "Lemma proven by induction" || res.Thought.ContentHash == "" {
		t.Fatalf("unexpected merge thought: %+v", res.Thought)
	}

	st := do(t, h, f.a, "workspace_status", f.args()).(*WorkspaceStatus)
	if st.MainChainLength != 1 {
		t.Fatalf("main chain should gain one thought, got %d", st.MainChainLength)
	}
	p, err := h.Store().GetProblem(f.ws, p1.ID)
	if err != nil || p.Status != model.ProblemResolved || p.Resolution != "Lemma proven by induction" {
		t.Fatalf("unexpected problem after merge: %+v %v", p, err)
	}
	ws, _ := h.Store().GetWorkspace(f.ws)
	if ws.Member(f.b).CurrentWork != nil {
		t.Fatal("resolved problem should clear currentWork")
	}

	herr := fail(t, h, f.a, "merge_proposal", f.args("proposalId", r1.ID), ErrInvalidTransition)
	if !strings.Contains(herr.Message, "already merged") {
		t.Fatalf("unexpected message: %q", herr.Message)
	}
	if rep, _ := h.VerifyChain(f.ws); !rep.Valid {
		t.Fatalf("chain should verify: %+v", rep)
	}
}

func TestEndToEndMerge(t *testing.T) {
	runEndToEnd(t, newFixture(t))
}

func TestEndToEndMergeSQLite(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "hub.db"), "sqlite")
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	h, clk := newTestHubWith(t, st)
	runEndToEnd(t, setupFixture(t, h, clk))
}

func TestClaimRules(t *testing.T) {
	f := newFixture(t)
	carol := register(t, f.h, "carol")
	do(t, f.h, carol, "join_workspace", f.args())

	p := f.problem(t, "claimable")
	do(t, f.h, f.b, "claim_problem", f.args("problemId", p.ID))
	herr := fail(t, f.h, carol, "claim_problem", f.args("problemId", p.ID), ErrInvalidTransition)
	if !strings.Contains(herr.Message, "bob") {
		t.Fatalf("error should name the holder: %q", herr.Message)
	}

	closed := f.problem(t, "closed")
	do(t, f.h, f.a, "update_problem", f.args("problemId", closed.ID, "status", "closed"))
	fail(t, f.h, carol, "claim_problem", f.args("problemId", closed.ID), ErrInvalidTransition)
	got, _ := f.h.Store().GetProblem(f.ws, closed.ID)
	if got.AssignedTo != "" {
		t.Fatalf("assignedTo changed on rejected claim: %q", got.AssignedTo)
	}

	fail(t, f.h, carol, "claim_problem", f.args("problemId", "missing"), ErrNotFound)
}

func TestClaimSnapshotsMainChainLength(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		do(t, f.h, f.a, "add_thought", f.args("thought", "step"))
	}
	p := f.problem(t, "later")
	claimed := do(t, f.h, f.b, "claim_problem", f.args("problemId", p.ID)).(*model.Problem)
	if *claimed.BranchFromThought != 3 {
		t.Fatalf("expected fork at 3, got %d", *claimed.BranchFromThought)
	}
	th := do(t, f.h, f.b, "add_thought", f.args("thought", "branch step", "branchId", claimed.BranchID)).(model.Thought)
	if th.BranchFromThought != 3 || th.ThoughtNumber != 4 {
		t.Fatalf("unexpected branch thought: %+v", th)
	}
	ws, _ := f.h.Store().GetWorkspace(f.ws)
	if cw := ws.Member(f.b).CurrentWork; cw == nil || cw.ProblemID != p.ID {
		t.Fatalf("currentWork not recorded: %+v", cw)
	}
}

func TestConcurrentClaimsAreExactlyOnce(t *testing.T) {
	f := newFixture(t)
	p := f.problem(t, "contested")
	var agents []string
	for i := 0; i < 8; i++ {
		id := register(t, f.h, "worker")
		do(t, f.h, id, "join_workspace", f.args())
		agents = append(agents, id)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for _, id := range agents {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := f.h.Handle(context.Background(), id, "claim_problem", f.args("problemId", p.ID)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful claim, got %d", wins)
	}
}

// concurrently runs fn once per goroutine and counts nil results.
func concurrently(n int, fn func(i int) error) int {
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if fn(i) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	return wins
}

func TestConcurrentMergesAreExactlyOnce(t *testing.T) {
	f := newFixture(t)
	r := do(t, f.h, f.b, "create_proposal", f.args("title", "contested merge", "sourceBranch", "b1")).(*model.Proposal)
	do(t, f.h, f.a, "review_proposal", f.args("proposalId", r.ID, "verdict", "approve"))
	before := do(t, f.h, f.a, "workspace_status", f.args()).(*WorkspaceStatus).MainChainLength

	wins := concurrently(8, func(int) error {
		_, err := f.h.Handle(context.Background(), f.a, "merge_proposal", f.args("proposalId", r.ID))
		return err
	})
	if wins != 1 {
		t.Fatalf("expected exactly one successful merge, got %d", wins)
	}
	after := do(t, f.h, f.a, "workspace_status", f.args()).(*WorkspaceStatus).MainChainLength
	if after != before+1 {
		t.Fatalf("main chain should grow by one, went %d -> %d", before, after)
	}
}

func TestConcurrentEndorsementsAddOnce(t *testing.T) {
	f := newFixture(t)
	m := do(t, f.h, f.a, "mark_consensus", f.args("name", "shared lemma", "thoughtRef", 1)).(*model.ConsensusMarker)

	added := concurrently(8, func(int) error {
		res, err := f.h.Handle(context.Background(), f.b, "endorse_consensus", f.args("consensusId", m.ID))
		if err != nil {
			return err
		}
		if !res.(EndorseResult).Added {
			return errors.New("already endorsed")
		}
		return nil
	})
	if added != 1 {
		t.Fatalf("expected exactly one effective endorsement, got %d", added)
	}
	got, err := f.h.Store().GetConsensus(f.ws, m.ID)
	if err != nil {
		t.Fatalf("get consensus: %v", err)
	}
	if len(got.AgreedBy) != len(m.AgreedBy)+1 {
		t.Fatalf("agreedBy should grow by one: %v -> %v", m.AgreedBy, got.AgreedBy)
	}
}

func TestUpdateProblem(t *testing.T) {
	f := newFixture(t)
	p := f.problem(t, "updatable")
	do(t, f.h, f.b, "claim_problem", f.args("problemId", p.ID))

	got := do(t, f.h, f.b, "update_problem", f.args("problemId", p.ID, "comment", "halfway there")).(*model.Problem)
	if got.Status != model.ProblemInProgress || len(got.Comments) != 1 {
		t.Fatalf("comment must not change status: %+v", got)
	}
	fail(t, f.h, f.b, "update_problem", f.args("problemId", p.ID, "status", "open"), ErrInvalidTransition)
	fail(t, f.h, f.b, "update_problem", f.args("problemId", p.ID, "status", "bogus"), ErrValidation)
	fail(t, f.h, f.b, "update_problem", f.args("problemId", p.ID), ErrValidation)

	got = do(t, f.h, f.b, "update_problem", f.args("problemId", p.ID, "status", "resolved", "resolution", "done")).(*model.Problem)
	if got.Status != model.ProblemResolved || got.Resolution != "done" {
		t.Fatalf("unexpected problem: %+v", got)
	}
	ws, _ := f.h.Store().GetWorkspace(f.ws)
	if ws.Member(f.b).CurrentWork != nil {
		t.Fatal("terminal status should clear currentWork")
	}
	fail(t, f.h, f.b, "update_problem", f.args("problemId", p.ID, "status", "closed"), ErrInvalidTransition)

	list := do(t, f.h, f.b, "list_problems", f.args("status", "resolved")).([]*model.Problem)
	if len(list) != 1 || list[0].ID != p.ID {
		t.Fatalf("unexpected filtered list: %+v", list)
	}
}

func TestSubProblemRequiresParent(t *testing.T) {
	f := newFixture(t)
	parent := f.problem(t, "parent")
	fail(t, f.h, f.a, "create_sub_problem", f.args("title", "child", "parentId", "missing"), ErrNotFound)
	child := do(t, f.h, f.a, "create_sub_problem", f.args("title", "child", "parentId", parent.ID)).(*model.Problem)
	if child.ParentID != parent.ID {
		t.Fatalf("unexpected parent: %+v", child)
	}
	page := do(t, f.h, f.a, "read_channel", f.args("problemId", child.ID)).(ChannelPage)
	if len(page.Messages) != 1 || page.Messages[0].AgentID != model.SystemAgentID {
		t.Fatalf("channel should open with a system message: %+v", page)
	}
}

func TestReviewAndMergeGuards(t *testing.T) {
	f := newFixture(t)
	r := do(t, f.h, f.b, "create_proposal", f.args("title", "idea", "sourceBranch", "b1")).(*model.Proposal)

	fail(t, f.h, f.b, "review_proposal", f.args("proposalId", r.ID, "verdict", "approve"), ErrInvalidTransition)
	fail(t, f.h, f.a, "review_proposal", f.args("proposalId", r.ID, "verdict", "maybe"), ErrValidation)
	fail(t, f.h, f.a, "merge_proposal", f.args("proposalId", r.ID), ErrInvalidTransition)

	got := do(t, f.h, f.a, "review_proposal", f.args("proposalId", r.ID, "verdict", "request-changes")).(*model.Proposal)
	if got.Status != model.ProposalReviewing {
		t.Fatalf("any verdict moves to reviewing, got %s", got.Status)
	}
	fail(t, f.h, f.a, "merge_proposal", f.args("proposalId", r.ID), ErrInvalidTransition)

	do(t, f.h, f.a, "review_proposal", f.args("proposalId", r.ID, "verdict", "approve"))
	res := do(t, f.h, f.a, "merge_proposal", f.args("proposalId", r.ID)).(*MergeResult)
	if res.Problem != nil || res.Thought.Thought != "Merged proposal: idea" {
		t.Fatalf("unexpected merge result: %+v", res)
	}
	fail(t, f.h, f.a, "review_proposal", f.args("proposalId", r.ID, "verdict", "comment"), ErrInvalidTransition)

	merged := do(t, f.h, f.b, "list_proposals", f.args("status", "merged")).([]*model.Proposal)
	if len(merged) != 1 {
		t.Fatalf("expected one merged proposal, got %d", len(merged))
	}
}

func TestEndorseConsensusIsIdempotent(t *testing.T) {
	f := newFixture(t)
	fail(t, f.h, f.a, "mark_consensus", f.args("name", "n"), ErrValidation)
	m := do(t, f.h, f.a, "mark_consensus", f.args("name", "base case holds", "thoughtRef", 1)).(*model.ConsensusMarker)
	if len(m.AgreedBy) != 1 || m.AgreedBy[0] != f.a {
		t.Fatalf("marker should be seeded with its creator: %+v", m)
	}

	first := do(t, f.h, f.b, "endorse_consensus", f.args("consensusId", m.ID)).(EndorseResult)
	second := do(t, f.h, f.b, "endorse_consensus", f.args("consensusId", m.ID)).(EndorseResult)
	if !first.Added || second.Added || len(second.Marker.AgreedBy) != 2 {
		t.Fatalf("unexpected endorsements: %+v %+v", first, second)
	}
	do(t, f.h, f.a, "endorse_consensus", f.args("consensusId", m.ID))
	list := do(t, f.h, f.b, "list_consensus", f.args()).([]*model.ConsensusMarker)
	if len(list) != 1 || len(list[0].AgreedBy) != 2 {
		t.Fatalf("unexpected markers: %+v", list)
	}
	fail(t, f.h, f.b, "endorse_consensus", f.args("consensusId", "missing"), ErrNotFound)
}

func TestReadChannelWindow(t *testing.T) {
	f := newFixture(t)
	p := f.problem(t, "chatty")
	var mid time.Time
	for i := 0; i < 5; i++ {
		msg := do(t, f.h, f.b, "post_message", f.args("problemId", p.ID, "content", "m")).(*model.ChannelMessage)
		if i == 2 {
			mid = msg.Timestamp
		}
	}
	page := do(t, f.h, f.b, "read_channel", f.args("problemId", p.ID, "since", mid.Format(time.RFC3339Nano))).(ChannelPage)
	if len(page.Messages) != 2 || page.Total != 6 {
		t.Fatalf("unexpected page: %d messages of %d", len(page.Messages), page.Total)
	}
	page = do(t, f.h, f.b, "read_channel", f.args("problemId", p.ID, "limit", float64(3))).(ChannelPage)
	if len(page.Messages) != 3 {
		t.Fatalf("limit not applied: %d", len(page.Messages))
	}
	for i := 1; i < len(page.Messages); i++ {
		if !page.Messages[i].Timestamp.After(page.Messages[i-1].Timestamp) {
			t.Fatal("messages must be ordered by timestamp")
		}
	}
	fail(t, f.h, f.b, "read_channel", f.args("problemId", "missing"), ErrNotFound)
	fail(t, f.h, f.b, "read_channel", f.args("problemId", p.ID, "since", "yesterday"), ErrValidation)
}

func TestResolveIdentity(t *testing.T) {
	h, _ := newTestHub(t)
	if agent, err := h.ResolveIdentity(configIdentity("", "")); agent != nil || err != nil {
		t.Fatalf("no identity expected, got %+v %v", agent, err)
	}
	if _, err := h.ResolveIdentity(configIdentity("fixed-id", "")); !errors.Is(err, ErrValidation) {
		t.Fatalf("explicit ID without name must fail, got %v", err)
	}
	first, err := h.ResolveIdentity(configIdentity("fixed-id", "Daemon"))
	if err != nil || first.AgentID != "fixed-id" {
		t.Fatalf("unexpected explicit identity: %+v %v", first, err)
	}
	again, err := h.ResolveIdentity(configIdentity("fixed-id", "Daemon"))
	if err != nil || again.AgentID != "fixed-id" {
		t.Fatalf("explicit identity should be stable: %+v %v", again, err)
	}

	byName, err := h.ResolveIdentity(configIdentity("", "scribe"))
	if err != nil {
		t.Fatalf("name-only: %v", err)
	}
	same, _ := h.ResolveIdentity(configIdentity("", "scribe"))
	if same.AgentID != byName.AgentID {
		t.Fatalf("name-only mode should reuse %s, got %s", byName.AgentID, same.AgentID)
	}
}

// brokenAgentsStore fails every roster read and counts roster writes.
type brokenAgentsStore struct {
	store.Store
	err    error
	writes int
}

func (s *brokenAgentsStore) LoadAgents() ([]model.AgentIdentity, error) { return nil, s.err }

func (s *brokenAgentsStore) SaveAgents(agents []model.AgentIdentity) error {
	s.writes++
	return s.Store.SaveAgents(agents)
}

func TestResolveIdentitySurfacesStoreErrors(t *testing.T) {
	inner, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	broken := &brokenAgentsStore{Store: inner, err: errors.New("disk unavailable")}
	h, _ := newTestHubWith(t, broken)

	_, err = h.ResolveIdentity(configIdentity("fixed-id", "Daemon"))
	if !errors.Is(err, broken.err) {
		t.Fatalf("expected the store error, got %v", err)
	}
	if errors.Is(err, ErrNotRegistered) || broken.writes != 0 {
		t.Fatalf("a failed roster read must not register the agent (writes=%d, err=%v)", broken.writes, err)
	}
}

func TestSweepPresence(t *testing.T) {
	f := newFixture(t)
	f.clk.Advance(time.Hour)
	do(t, f.h, f.a, "workspace_status", f.args())

	n, err := f.h.SweepPresence(10 * time.Minute)
	if err != nil || n != 1 {
		t.Fatalf("expected one member swept, got %d %v", n, err)
	}
	ws, _ := f.h.Store().GetWorkspace(f.ws)
	if ws.Member(f.a).Status != model.PresenceOnline || ws.Member(f.b).Status != model.PresenceOffline {
		t.Fatalf("unexpected presence: %+v", ws.Agents)
	}
	do(t, f.h, f.b, "list_problems", f.args())
	ws, _ = f.h.Store().GetWorkspace(f.ws)
	if ws.Member(f.b).Status != model.PresenceOnline {
		t.Fatal("workspace activity should bring a member back online")
	}
}

func TestDigestAndQuickJoin(t *testing.T) {
	f := newFixture(t)
	open := f.problem(t, "unassigned")
	mine := f.problem(t, "mine")
	do(t, f.h, f.b, "claim_problem", f.args("problemId", mine.ID))
	r := do(t, f.h, f.b, "create_proposal", f.args("title", "please review", "problemId", mine.ID)).(*model.Proposal)
	do(t, f.h, f.a, "post_message", f.args("problemId", mine.ID, "content", "looks promising"))

	d := do(t, f.h, f.a, "workspace_digest", f.args()).(*Digest)
	if d.Role != model.RoleCoordinator || len(d.OpenProblems) != 1 || d.OpenProblems[0].ID != open.ID {
		t.Fatalf("unexpected coordinator digest: %+v", d)
	}
	if len(d.AwaitingReview) != 1 || d.AwaitingReview[0].ID != r.ID {
		t.Fatalf("proposal should await coordinator review: %+v", d.AwaitingReview)
	}

	d = do(t, f.h, f.b, "workspace_digest", f.args("since", "2000-01-01T00:00:00Z")).(*Digest)
	if len(d.MyProblems) != 1 || d.MyProblems[0].ID != mine.ID || len(d.AwaitingReview) != 0 {
		t.Fatalf("unexpected contributor digest: %+v", d)
	}
	found := false
	for _, m := range d.RecentMessages {
		if m.Content == "looks promising" && m.ProblemID == mine.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("recent messages missing coordinator post: %+v", d.RecentMessages)
	}

	carol := register(t, f.h, "carol")
	qj := do(t, f.h, carol, "quick_join", map[string]any{"name": "research"}).(*Digest)
	if qj.Workspace.ID != f.ws || qj.Role != model.RoleContributor || qj.Workspace.Members != 3 {
		t.Fatalf("unexpected quick_join digest: %+v", qj.Workspace)
	}
	fail(t, f.h, carol, "quick_join", map[string]any{}, ErrValidation)
	fail(t, f.h, carol, "quick_join", map[string]any{"name": "nope"}, ErrNotFound)
}

func TestProfilePrompt(t *testing.T) {
	f := newFixture(t)
	got := do(t, f.h, f.a, "get_profile_prompt", f.args()).(ProfilePrompt)
	if got.Profile != "coordinator" || !strings.Contains(got.Prompt, "Research") || !strings.Contains(got.Prompt, "CLAIM:") {
		t.Fatalf("unexpected prompt: %+v", got)
	}
	got = do(t, f.h, f.b, "get_profile_prompt", map[string]any{"profile": "skeptic"}).(ProfilePrompt)
	if got.Profile != "skeptic" {
		t.Fatalf("unexpected profile: %+v", got)
	}
	fail(t, f.h, f.b, "get_profile_prompt", map[string]any{"profile": "wizard"}, ErrNotFound)
}
