// Package model defines the hub's persisted entities and the events emitted
// when they change.
package model

import (
	"slices"
	"time"
)

// Role is a member's role inside one workspace.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleContributor Role = "contributor"
)

// Presence is a member's online status inside one workspace.
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
)

// SystemAgentID is the reserved author of system channel messages.
const SystemAgentID = "system"

// AgentIdentity is a registered agent. It is never deleted and its ID is
// never reused.
type AgentIdentity struct {
	AgentID      string         `json:"agentId"`
	Name         string         `json:"name"`
	Role         string         `json:"role"`
	Profile      string         `json:"profile,omitempty"`
	Manager      bool           `json:"manager,omitempty"`
	ClientInfo   map[string]any `json:"clientInfo,omitempty"`
	RegisteredAt time.Time      `json:"registeredAt"`
}

// CurrentWork records what a member is working on.
type CurrentWork struct {
	ProblemID string    `json:"problemId"`
	BranchID  string    `json:"branchId,omitempty"`
	Since     time.Time `json:"since"`
}

// WorkspaceAgent is one membership entry of a workspace roster.
type WorkspaceAgent struct {
	AgentID     string       `json:"agentId"`
	AgentName   string       `json:"agentName,omitempty"`
	Role        Role         `json:"role"`
	Status      Presence     `json:"status"`
	JoinedAt    time.Time    `json:"joinedAt"`
	LastSeenAt  time.Time    `json:"lastSeenAt"`
	CurrentWork *CurrentWork `json:"currentWork,omitempty"`
}

// Workspace is a collaboration context with one shared main thought chain.
type Workspace struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	CreatedBy     string           `json:"createdBy"`
	MainSessionID string           `json:"mainSessionId"`
	CreatedAt     time.Time        `json:"createdAt"`
	Agents        []WorkspaceAgent `json:"agents"`
}

// Member returns the roster entry for agentID, or nil.
func (w *Workspace) Member(agentID string) *WorkspaceAgent {
	for i := range w.Agents {
		if w.Agents[i].AgentID == agentID {
			return &w.Agents[i]
		}
	}
	return nil
}

// Coordinator returns the workspace coordinator entry, or nil.
func (w *Workspace) Coordinator() *WorkspaceAgent {
	for i := range w.Agents {
		if w.Agents[i].Role == RoleCoordinator {
			return &w.Agents[i]
		}
	}
	return nil
}

// Comment is a free-form note on a problem.
type Comment struct {
	AgentID   string    `json:"agentId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Problem is a claimable unit of work.
type Problem struct {
	ID                string        `json:"id"`
	WorkspaceID       string        `json:"workspaceId"`
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	CreatedBy         string        `json:"createdBy"`
	Status            ProblemStatus `json:"status"`
	AssignedTo        string        `json:"assignedTo,omitempty"`
	BranchID          string        `json:"branchId,omitempty"`
	BranchFromThought *int          `json:"branchFromThought,omitempty"`
	ParentID          string        `json:"parentId,omitempty"`
	Resolution        string        `json:"resolution,omitempty"`
	Comments          []Comment     `json:"comments"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// Verdict is a reviewer's judgement on a proposal.
type Verdict string

const (
	VerdictApprove        Verdict = "approve"
	VerdictRequestChanges Verdict = "request-changes"
	VerdictComment        Verdict = "comment"
)

// ParseVerdict validates a verdict string.
func ParseVerdict(s string) (Verdict, bool) {
	switch v := Verdict(s); v {
	case VerdictApprove, VerdictRequestChanges, VerdictComment:
		return v, true
	}
	return "", false
}

// Review is one reviewer's verdict on a proposal.
type Review struct {
	AgentID   string    `json:"agentId"`
	Verdict   Verdict   `json:"verdict"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Proposal is a reviewable bundle of branch work awaiting merge.
type Proposal struct {
	ID                 string         `json:"id"`
	WorkspaceID        string         `json:"workspaceId"`
	Title              string         `json:"title"`
	Description        string         `json:"description,omitempty"`
	CreatedBy          string         `json:"createdBy"`
	SourceBranch       string         `json:"sourceBranch,omitempty"`
	ProblemID          string         `json:"problemId,omitempty"`
	Status             ProposalStatus `json:"status"`
	Reviews            []Review       `json:"reviews"`
	MergeThoughtNumber *int           `json:"mergeThoughtNumber,omitempty"`
	MergedBy           string         `json:"mergedBy,omitempty"`
	MergedAt           *time.Time     `json:"mergedAt,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
}

// Approved reports whether at least one review approves the proposal.
func (p *Proposal) Approved() bool {
	return slices.ContainsFunc(p.Reviews, func(r Review) bool {
		return r.Verdict == VerdictApprove
	})
}

// ConsensusMarker records that agents agree on a point at a thought reference.
type ConsensusMarker struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ThoughtRef  int       `json:"thoughtRef"`
	BranchID    string    `json:"branchId,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	AgreedBy    []string  `json:"agreedBy"`
}

// Agree adds agentID to AgreedBy. It reports false when the agent had
// already agreed. AgreedBy stays sorted.
func (c *ConsensusMarker) Agree(agentID string) bool {
	if slices.Contains(c.AgreedBy, agentID) {
		return false
	}
	c.AgreedBy = append(c.AgreedBy, agentID)
	slices.Sort(c.AgreedBy)
	return true
}

// ChannelMessage is one entry of a problem channel.
type ChannelMessage struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agentId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Ref       string    `json:"ref,omitempty"`
}

// Channel is the append-only message log of one problem.
type Channel struct {
	ID          string           `json:"id"`
	WorkspaceID string           `json:"workspaceId"`
	ProblemID   string           `json:"problemId"`
	Messages    []ChannelMessage `json:"messages"`
}
