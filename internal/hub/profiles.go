package hub

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KafClaw/thoughthub/internal/model"
)

const claimGrammar = `Mark statements other agents should check with line prefixes:
  CLAIM: <statement>
  PREMISE: <assumption>
  REFUTE: <statement you reject>
Derivations use "P1, P2 ⊢ C". Cite earlier thoughts as [S3] or [S3-S5]; negate with ¬.`

var profiles = map[string]string{
	"coordinator": `You coordinate workspace %[1]s as %[2]s. Break the goal into problems, keep the main chain coherent, ` +
		`review proposals and merge approved work. Mark consensus once agents agree on a thought.`,
	"contributor": `You contribute to workspace %[1]s as %[2]s. Claim an open problem, reason on its branch, ` +
		`post progress to the problem channel and open a proposal when the branch is ready.`,
	"reviewer": `You review work in workspace %[1]s as %[2]s. Read open proposals, check their branches for ` +
		`unsupported steps and contradictions, and leave approve or request-changes verdicts with reasons.`,
	"skeptic": `You challenge reasoning in workspace %[1]s as %[2]s. Look for claims that conflict across branches, ` +
		`state refutations explicitly and ask for the premises behind each conclusion.`,
}

// ProfilePrompt is the guidance text for one agent profile.
type ProfilePrompt struct {
	Profile string `json:"profile"`
	Prompt  string `json:"prompt"`
}

// ProfileNames lists the built-in profiles.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (h *Hub) opProfilePrompt(c *call) (any, error) {
	wsName, role := "(none)", model.RoleContributor
	if wsID := c.args.String("workspaceId"); wsID != "" {
		ws, err := h.loadWorkspace(wsID)
		if err != nil {
			return nil, err
		}
		m := ws.Member(c.agentID)
		if m == nil {
			return nil, errNotMember
		}
		wsName, role = ws.Name, m.Role
	}

	name := strings.ToLower(c.args.String("profile"))
	if name == "" {
		name = strings.ToLower(c.agent.Profile)
	}
	if name == "" {
		name = string(role)
	}
	tmpl, ok := profiles[name]
	if !ok {
		return nil, newError(KindNotFound, "Unknown profile %q (available: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	prompt := fmt.Sprintf(tmpl, wsName, c.agent.Name) + "\n\n" + claimGrammar
	return ProfilePrompt{Profile: name, Prompt: prompt}, nil
}
