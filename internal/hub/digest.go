package hub

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/KafClaw/thoughthub/internal/model"
	"github.com/KafClaw/thoughthub/internal/store"
)

const digestMessageLimit = 20

// DigestMessage is a channel message with the problem it belongs to.
type DigestMessage struct {
	ProblemID    string `json:"problemId"`
	ProblemTitle string `json:"problemTitle"`
	model.ChannelMessage
}

// Digest is the caller-oriented summary of what needs attention.
type Digest struct {
	Workspace       WorkspaceSummary         `json:"workspace"`
	Role            model.Role               `json:"role"`
	CurrentWork     *model.CurrentWork       `json:"currentWork,omitempty"`
	Since           *time.Time               `json:"since,omitempty"`
	OpenProblems    []*model.Problem         `json:"openProblems"`
	MyProblems      []*model.Problem         `json:"myProblems"`
	AwaitingReview  []*model.Proposal        `json:"awaitingReview"`
	RecentMessages  []DigestMessage          `json:"recentMessages"`
	RecentConsensus []*model.ConsensusMarker `json:"recentConsensus"`
	MainChainLength int                      `json:"mainChainLength"`
}

func (h *Hub) digest(ws *model.Workspace, agentID string, since time.Time) (*Digest, error) {
	member := ws.Member(agentID)
	if member == nil {
		return nil, errNotMember
	}
	d := &Digest{
		Workspace:       summarize(ws),
		Role:            member.Role,
		CurrentWork:     member.CurrentWork,
		OpenProblems:    []*model.Problem{},
		MyProblems:      []*model.Problem{},
		AwaitingReview:  []*model.Proposal{},
		RecentMessages:  []DigestMessage{},
		RecentConsensus: []*model.ConsensusMarker{},
	}
	if !since.IsZero() {
		d.Since = &since
	}

	problems, err := h.store.ListProblems(ws.ID)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	for _, p := range problems {
		switch {
		case p.Status == model.ProblemOpen && p.AssignedTo == "":
			d.OpenProblems = append(d.OpenProblems, p)
		case p.AssignedTo == agentID && !p.Status.Terminal():
			d.MyProblems = append(d.MyProblems, p)
		}

		ch, err := h.store.GetChannel(ws.ID, p.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load channel: %w", err)
		}
		for _, m := range ch.Messages {
			if m.AgentID != agentID && m.Timestamp.After(since) {
				d.RecentMessages = append(d.RecentMessages, DigestMessage{ProblemID: p.ID, ProblemTitle: p.Title, ChannelMessage: m})
			}
		}
	}
	sort.SliceStable(d.RecentMessages, func(i, j int) bool {
		return d.RecentMessages[i].Timestamp.Before(d.RecentMessages[j].Timestamp)
	})
	if n := len(d.RecentMessages); n > digestMessageLimit {
		d.RecentMessages = d.RecentMessages[n-digestMessageLimit:]
	}

	proposals, err := h.store.ListProposals(ws.ID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	for _, p := range proposals {
		if p.Status == model.ProposalMerged || p.CreatedBy == agentID {
			continue
		}
		reviewed := slices.ContainsFunc(p.Reviews, func(r model.Review) bool { return r.AgentID == agentID })
		if !reviewed {
			d.AwaitingReview = append(d.AwaitingReview, p)
		}
	}

	markers, err := h.store.ListConsensus(ws.ID)
	if err != nil {
		return nil, fmt.Errorf("list consensus: %w", err)
	}
	for _, m := range markers {
		if m.CreatedAt.After(since) || !slices.Contains(m.AgreedBy, agentID) {
			d.RecentConsensus = append(d.RecentConsensus, m)
		}
	}

	ix, err := h.mainIndex(ws)
	if err != nil {
		return nil, err
	}
	d.MainChainLength = ix.MainLength()
	return d, nil
}

func (h *Hub) opWorkspaceDigest(c *call) (any, error) {
	since, ok, err := c.args.Time("since")
	if err != nil {
		return nil, err
	}
	if !ok {
		since = c.lastSeen
	}
	return h.digest(c.ws, c.agentID, since)
}
