package hub

import "github.com/KafClaw/thoughthub/internal/model"

func requireCoordinator(action string) func(*model.Workspace, string) error {
	return func(ws *model.Workspace, agentID string) error {
		m := ws.Member(agentID)
		if m == nil {
			return errNotMember
		}
		if m.Role != model.RoleCoordinator {
			return newError(KindAuthorizationDenied, "Only the workspace coordinator can %s.", action)
		}
		return nil
	}
}

var (
	authorizeCreateProblem     = requireCoordinator("create problems")
	authorizeCreateSubProblem  = requireCoordinator("create sub-problems")
	authorizeMergeProposal     = requireCoordinator("merge proposals")
	authorizeMarkConsensus     = requireCoordinator("mark consensus")
	authorizePostSystemMessage = requireCoordinator("post system messages")
)
