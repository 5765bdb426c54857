package hub

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/KafClaw/thoughthub/internal/bus"
	"github.com/KafClaw/thoughthub/internal/model"
)

// access is the minimum standing a caller needs for an operation.
type access int

const (
	accessPublic     access = iota // anyone, including unregistered callers
	accessRegistered               // any registered agent
	accessMember                   // members of args.workspaceId
)

type operation struct {
	access access
	// authorize runs after membership is established.
	authorize func(ws *model.Workspace, agentID string) error
	// unlocked operations release the workspace lock before running.
	unlocked bool
	run      func(c *call) (any, error)
}

// call carries the state of one dispatched operation.
type call struct {
	ctx     context.Context
	op      string
	agentID string
	agent   *model.AgentIdentity
	args    Args

	ws       *model.Workspace
	member   *model.WorkspaceAgent
	lastSeen time.Time

	events  []model.HubEvent
	updates []bus.Update
}

// publish queues a resource update delivered once the operation succeeds.
func (c *call) publish(uri string, payload any) {
	c.updates = append(c.updates, bus.Update{URI: uri, Payload: payload})
}

func (c *call) event(workspaceID string, typ model.EventType, data map[string]any) {
	c.events = append(c.events, model.HubEvent{
		Type:        typ,
		WorkspaceID: workspaceID,
		AgentID:     c.agentID,
		Data:        data,
	})
}

func (h *Hub) operations() map[string]operation {
	return map[string]operation{
		"register":        {access: accessPublic, run: h.opRegister},
		"list_workspaces": {access: accessPublic, run: h.opListWorkspaces},

		"whoami":             {access: accessRegistered, run: h.opWhoami},
		"create_workspace":   {access: accessRegistered, run: h.opCreateWorkspace},
		"join_workspace":     {access: accessRegistered, run: h.opJoinWorkspace},
		"quick_join":         {access: accessRegistered, run: h.opQuickJoin},
		"get_profile_prompt": {access: accessRegistered, run: h.opProfilePrompt},

		"workspace_status": {access: accessMember, run: h.opWorkspaceStatus},
		"workspace_digest": {access: accessMember, run: h.opWorkspaceDigest},

		"create_problem":     {access: accessMember, authorize: authorizeCreateProblem, run: h.opCreateProblem},
		"create_sub_problem": {access: accessMember, authorize: authorizeCreateSubProblem, run: h.opCreateSubProblem},
		"claim_problem":      {access: accessMember, run: h.opClaimProblem},
		"update_problem":     {access: accessMember, run: h.opUpdateProblem},
		"list_problems":      {access: accessMember, run: h.opListProblems},

		"create_proposal": {access: accessMember, run: h.opCreateProposal},
		"review_proposal": {access: accessMember, run: h.opReviewProposal},
		"merge_proposal":  {access: accessMember, authorize: authorizeMergeProposal, run: h.opMergeProposal},
		"list_proposals":  {access: accessMember, run: h.opListProposals},

		"mark_consensus":    {access: accessMember, authorize: authorizeMarkConsensus, run: h.opMarkConsensus},
		"endorse_consensus": {access: accessMember, run: h.opEndorseConsensus},
		"list_consensus":    {access: accessMember, run: h.opListConsensus},

		"post_message":        {access: accessMember, run: h.opPostMessage},
		"post_system_message": {access: accessMember, authorize: authorizePostSystemMessage, run: h.opPostSystemMessage},
		"read_channel":        {access: accessMember, run: h.opReadChannel},
		"hub_wait":            {access: accessMember, unlocked: true, run: h.opWait},

		"add_thought":      {access: accessMember, run: h.opAddThought},
		"verify_chain":     {access: accessMember, run: h.opVerifyChain},
		"detect_conflicts": {access: accessMember, run: h.opDetectConflicts},
	}
}

// Operations lists every operation name the dispatcher accepts.
func (h *Hub) Operations() []string {
	names := make([]string, 0, len(h.ops))
	for name := range h.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle is the single dispatch entry point. agentID may be empty only for
// public operations. Events are emitted after the operation succeeds.
func (h *Hub) Handle(ctx context.Context, agentID, op string, args map[string]any) (any, error) {
	o, ok := h.ops[op]
	if !ok {
		return nil, validation("Unknown operation: %s", op)
	}
	if args == nil {
		args = map[string]any{}
	}
	c := &call{ctx: ctx, op: op, agentID: agentID, args: Args(args)}

	if o.access >= accessRegistered {
		agent, err := h.Identity(agentID)
		if err != nil {
			return nil, err
		}
		c.agent = agent
	}

	var (
		result any
		err    error
	)
	if o.access == accessMember {
		result, err = h.runInWorkspace(c, o)
	} else {
		result, err = o.run(c)
	}
	if err != nil {
		var herr *Error
		if !errors.As(err, &herr) {
			slog.Warn("Hub operation failed", "op", op, "agent", agentID, "error", err)
		}
		return nil, err
	}

	now := h.clock()
	for i := range c.events {
		c.events[i].ID = h.newID()
		c.events[i].Timestamp = now
	}
	for _, u := range c.updates {
		h.bus.Publish(u.URI, u.Payload)
	}
	h.emit(c.events)
	return result, nil
}

func (h *Hub) runInWorkspace(c *call, o operation) (any, error) {
	wsID, err := c.args.Required("workspaceId")
	if err != nil {
		return nil, err
	}

	unlock := h.locks.lock(wsID)
	locked := true
	defer func() {
		if locked {
			unlock()
		}
	}()

	ws, err := h.loadWorkspace(wsID)
	if err != nil {
		return nil, err
	}
	member := ws.Member(c.agentID)
	if member == nil {
		return nil, errNotMember
	}
	if o.authorize != nil {
		if err := o.authorize(ws, c.agentID); err != nil {
			return nil, err
		}
	}
	c.ws, c.member, c.lastSeen = ws, member, member.LastSeenAt
	if err := h.touch(ws, member); err != nil {
		return nil, err
	}

	if o.unlocked {
		unlock()
		locked = false
	}
	return o.run(c)
}
