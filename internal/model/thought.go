package model

// Thought is one step of a reasoning chain. Thoughts are append-only:
// revisions and merges add new thoughts instead of mutating old ones.
type Thought struct {
	Thought           string `json:"thought"`
	ThoughtNumber     int    `json:"thoughtNumber"`
	TotalThoughts     int    `json:"totalThoughts"`
	NextThoughtNeeded bool   `json:"nextThoughtNeeded"`
	Timestamp         int64  `json:"timestamp"` // unix milliseconds
	IsRevision        bool   `json:"isRevision,omitempty"`
	RevisesThought    int    `json:"revisesThought,omitempty"`
	BranchID          string `json:"branchId,omitempty"`
	BranchFromThought int    `json:"branchFromThought,omitempty"`
	AgentID           string `json:"agentId,omitempty"`
	AgentName         string `json:"agentName,omitempty"`
	ContentHash       string `json:"contentHash,omitempty"`
}

// OnMain reports whether the thought belongs to the main chain.
func (t Thought) OnMain() bool { return t.BranchID == "" }
