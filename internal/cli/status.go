package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/KafClaw/thoughthub/internal/config"
	"github.com/KafClaw/thoughthub/internal/model"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		printHeader(out, "🏷️ ThoughtHub Version")
		fmt.Fprintf(out, "Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [workspaceId]",
	Short: "Show hub status, or the state of one workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		return printWorkspaceStatus(cmd, a, args[0])
	}

	printHeader(out, "📊 ThoughtHub Status")
	fmt.Fprintf(out, "Version: %s\n", version)
	if path, err := config.ConfigPath(); err == nil {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintln(out, "Config:  ✓ Found ("+path+")")
		} else {
			fmt.Fprintln(out, "Config:  ✗ Not found, using defaults ("+path+")")
		}
	}
	fmt.Fprintf(out, "Data:    %s\n", a.cfg.Paths.DataDir)
	fmt.Fprintf(out, "Storage: %s\n", a.cfg.Storage.Backend)
	fmt.Fprintf(out, "Kafka:   %s\n", enabledMark(a.cfg.Kafka.Enabled))
	fmt.Fprintf(out, "Slack:   %s\n", enabledMark(a.cfg.Slack.Enabled))

	intents, err := a.store.ListIntents()
	if err != nil {
		return err
	}
	if len(intents) > 0 {
		fmt.Fprintln(out, color.YellowString("Pending merges: %d (recovered on next serve)", len(intents)))
	}

	all, err := a.store.ListWorkspaces()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nWorkspaces: %d\n", len(all))
	for _, ws := range all {
		fmt.Fprintf(out, "  %s  %-24s %d members, %d online\n", ws.ID, ws.Name, len(ws.Agents), countOnline(ws))
	}
	return nil
}

func printWorkspaceStatus(cmd *cobra.Command, a *app, wsID string) error {
	out := cmd.OutOrStdout()
	st, err := a.hub.Status(wsID)
	if err != nil {
		return err
	}
	printHeader(out, "📊 "+st.Workspace.Name)
	if st.Workspace.Description != "" {
		fmt.Fprintln(out, st.Workspace.Description)
	}
	fmt.Fprintf(out, "Main chain: %d thoughts, %d branches\n", st.MainChainLength, len(st.Branches))
	fmt.Fprintf(out, "Problems:   %s\n", formatCounts(st.Problems))
	fmt.Fprintf(out, "Proposals:  %s\n", formatCounts(st.Proposals))
	fmt.Fprintf(out, "Consensus:  %d\n", st.Consensus)
	fmt.Fprintln(out, "\nAgents:")
	for _, m := range st.Agents {
		mark := color.HiBlackString("○")
		if m.Status == model.PresenceOnline {
			mark = color.GreenString("●")
		}
		line := fmt.Sprintf("  %s %s (%s)", mark, m.AgentName, m.Role)
		if m.CurrentWork != nil {
			line += " working on " + m.CurrentWork.ProblemID
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func countOnline(ws *model.Workspace) int {
	n := 0
	for _, m := range ws.Agents {
		if m.Status == model.PresenceOnline {
			n++
		}
	}
	return n
}

func enabledMark(on bool) string {
	if on {
		return "✓ Enabled"
	}
	return "✗ Disabled"
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s %d", k, counts[k])
	}
	return s
}
