package model

import "time"

// EventType names a hub event.
type EventType string

const (
	EventAgentJoined       EventType = "agent_joined"
	EventProblemCreated    EventType = "problem_created"
	EventProblemClaimed    EventType = "problem_claimed"
	EventProblemUpdated    EventType = "problem_updated"
	EventProposalCreated   EventType = "proposal_created"
	EventProposalReviewed  EventType = "proposal_reviewed"
	EventProposalMerged    EventType = "proposal_merged"
	EventConsensusMarked   EventType = "consensus_marked"
	EventConsensusEndorsed EventType = "consensus_endorsed"
	EventMessagePosted     EventType = "message_posted"
	EventThoughtAdded      EventType = "thought_added"
)

// HubEvent is emitted by the dispatcher after a successful mutation.
type HubEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	WorkspaceID string         `json:"workspaceId"`
	AgentID     string         `json:"agentId,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Data        map[string]any `json:"data,omitempty"`
}

// Intent records an in-flight multi-entity operation so that a crash
// between its writes can be finished on the next start.
type Intent struct {
	ID            string    `json:"id"`
	Op            string    `json:"op"`
	WorkspaceID   string    `json:"workspaceId"`
	ProposalID    string    `json:"proposalId,omitempty"`
	ProblemID     string    `json:"problemId,omitempty"`
	AgentID       string    `json:"agentId"`
	AgentName     string    `json:"agentName,omitempty"`
	Message       string    `json:"message,omitempty"`
	ThoughtNumber int       `json:"thoughtNumber"`
	Timestamp     int64     `json:"timestamp"`
	CreatedAt     time.Time `json:"createdAt"`
}
