package store

import (
	"errors"
	"testing"
	"time"

	"github.com/KafClaw/thoughthub/internal/model"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	agents, err := s.LoadAgents()
	if err != nil || len(agents) != 0 {
		t.Fatalf("empty roster expected, got %v %v", agents, err)
	}
	roster := []model.AgentIdentity{
		{AgentID: "a1", Name: "alice", Role: "contributor", RegisteredAt: base},
		{AgentID: "a2", Name: "alice", Role: "contributor", RegisteredAt: base.Add(time.Second)},
	}
	if err := s.SaveAgents(roster); err != nil {
		t.Fatalf("save agents: %v", err)
	}
	agents, err = s.LoadAgents()
	if err != nil || len(agents) != 2 || agents[0].AgentID != "a1" || agents[1].AgentID != "a2" {
		t.Fatalf("unexpected roster: %+v %v", agents, err)
	}

	if _, err := s.GetWorkspace("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	ws := &model.Workspace{ID: "w1", Name: "Research", CreatedBy: "a1", MainSessionID: "s1", CreatedAt: base,
		Agents: []model.WorkspaceAgent{{AgentID: "a1", Role: model.RoleCoordinator, Status: model.PresenceOnline}}}
	if err := s.SaveWorkspace(ws); err != nil {
		t.Fatalf("save workspace: %v", err)
	}
	if err := s.SaveWorkspace(&model.Workspace{ID: "w0", Name: "Older", CreatedAt: base.Add(-time.Hour)}); err != nil {
		t.Fatalf("save workspace: %v", err)
	}
	list, err := s.ListWorkspaces()
	if err != nil || len(list) != 2 || list[0].ID != "w0" {
		t.Fatalf("unexpected workspaces: %+v %v", list, err)
	}
	got, err := s.GetWorkspace("w1")
	if err != nil || got.Coordinator() == nil || got.Coordinator().AgentID != "a1" {
		t.Fatalf("unexpected workspace: %+v %v", got, err)
	}

	p2 := &model.Problem{ID: "p2", WorkspaceID: "w1", Title: "second", Status: model.ProblemOpen, CreatedAt: base.Add(time.Minute)}
	p1 := &model.Problem{ID: "p1", WorkspaceID: "w1", Title: "first", Status: model.ProblemOpen, CreatedAt: base}
	for _, p := range []*model.Problem{p2, p1} {
		if err := s.SaveProblem(p); err != nil {
			t.Fatalf("save problem: %v", err)
		}
	}
	p1.Status = model.ProblemInProgress
	p1.AssignedTo = "a2"
	if err := s.SaveProblem(p1); err != nil {
		t.Fatalf("update problem: %v", err)
	}
	problems, err := s.ListProblems("w1")
	if err != nil || len(problems) != 2 || problems[0].ID != "p1" || problems[0].AssignedTo != "a2" {
		t.Fatalf("unexpected problems: %+v %v", problems, err)
	}
	if other, _ := s.ListProblems("w0"); len(other) != 0 {
		t.Fatalf("problems leaked across workspaces: %+v", other)
	}

	prop := &model.Proposal{ID: "r1", WorkspaceID: "w1", Status: model.ProposalOpen, CreatedAt: base}
	if err := s.SaveProposal(prop); err != nil {
		t.Fatalf("save proposal: %v", err)
	}
	if got, err := s.GetProposal("w1", "r1"); err != nil || got.Status != model.ProposalOpen {
		t.Fatalf("unexpected proposal: %+v %v", got, err)
	}
	if props, _ := s.ListProposals("w1"); len(props) != 1 {
		t.Fatalf("unexpected proposals: %+v", props)
	}

	marker := &model.ConsensusMarker{ID: "c1", WorkspaceID: "w1", ThoughtRef: 1, AgreedBy: []string{"a1"}, CreatedAt: base}
	if err := s.SaveConsensus(marker); err != nil {
		t.Fatalf("save consensus: %v", err)
	}
	if got, err := s.GetConsensus("w1", "c1"); err != nil || len(got.AgreedBy) != 1 {
		t.Fatalf("unexpected marker: %+v %v", got, err)
	}
	if markers, _ := s.ListConsensus("w1"); len(markers) != 1 {
		t.Fatalf("unexpected markers: %+v", markers)
	}

	ch := &model.Channel{ID: "p1", WorkspaceID: "w1", ProblemID: "p1",
		Messages: []model.ChannelMessage{{ID: "m1", AgentID: model.SystemAgentID, Content: "created", Timestamp: base}}}
	if err := s.SaveChannel(ch); err != nil {
		t.Fatalf("save channel: %v", err)
	}
	if got, err := s.GetChannel("w1", "p1"); err != nil || len(got.Messages) != 1 {
		t.Fatalf("unexpected channel: %+v %v", got, err)
	}
	if _, err := s.GetChannel("w1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	thoughts, err := s.LoadThoughts("s1")
	if err != nil || len(thoughts) != 0 {
		t.Fatalf("empty session expected, got %v %v", thoughts, err)
	}
	for i := 1; i <= 3; i++ {
		if err := s.AppendThought("s1", model.Thought{Thought: "t", ThoughtNumber: i, TotalThoughts: 3}); err != nil {
			t.Fatalf("append thought: %v", err)
		}
	}
	thoughts, err = s.LoadThoughts("s1")
	if err != nil || len(thoughts) != 3 || thoughts[2].ThoughtNumber != 3 {
		t.Fatalf("unexpected thoughts: %+v %v", thoughts, err)
	}

	in := &model.Intent{ID: "i1", Op: "merge_proposal", WorkspaceID: "w1", ProposalID: "r1", CreatedAt: base}
	if err := s.SaveIntent(in); err != nil {
		t.Fatalf("save intent: %v", err)
	}
	intents, err := s.ListIntents()
	if err != nil || len(intents) != 1 || intents[0].ProposalID != "r1" {
		t.Fatalf("unexpected intents: %+v %v", intents, err)
	}
	if err := s.DeleteIntent("w1", "i1"); err != nil {
		t.Fatalf("delete intent: %v", err)
	}
	if err := s.DeleteIntent("w1", "i1"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if intents, _ := s.ListIntents(); len(intents) != 0 {
		t.Fatalf("intent not deleted: %+v", intents)
	}
}
