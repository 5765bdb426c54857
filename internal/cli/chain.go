package cli

import (
	"errors"
	"fmt"

	"github.com/KafClaw/thoughthub/internal/claims"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errChainInvalid = errors.New("thought chain verification failed")

var (
	verifyJSON    bool
	conflictsJSON bool
	conflictsOn   string
)

var verifyCmd = &cobra.Command{
	Use:   "verify <workspaceId>",
	Short: "Recompute and check the hash chain of a workspace's thoughts",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts <workspaceId>",
	Short: "Report contradicting claims in a workspace's thoughts",
	Args:  cobra.ExactArgs(1),
	RunE:  runConflicts,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "Print the report as JSON")
	conflictsCmd.Flags().BoolVar(&conflictsJSON, "json", false, "Print the report as JSON")
	conflictsCmd.Flags().StringVar(&conflictsOn, "branch", "", "Check main plus this branch only")
}

func runVerify(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.hub.VerifyChain(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if verifyJSON {
		if err := writeJSON(out, rep); err != nil {
			return err
		}
	} else {
		printHeader(out, "Chain verification: "+args[0])
		fmt.Fprintf(out, "Checked: %d  Skipped (unhashed): %d\n", rep.Checked, rep.Skipped)
		for _, m := range rep.Mismatches {
			where := "main"
			if m.BranchID != "" {
				where = m.BranchID
			}
			fmt.Fprintf(out, "%s thought #%d on %s (entry %d)\n  expected %s\n  stored   %s\n",
				color.RedString("MISMATCH"), m.ThoughtNumber, where, m.Index, m.Expected, m.Stored)
		}
		if rep.Valid {
			fmt.Fprintln(out, color.GreenString("Chain is intact."))
		}
	}
	if !rep.Valid {
		return errChainInvalid
	}
	return nil
}

func runConflicts(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.hub.DetectConflicts(args[0], conflictsOn)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if conflictsJSON {
		return writeJSON(out, rep)
	}
	printHeader(out, "Conflicts: "+args[0])
	fmt.Fprintf(out, "Claims examined: %d\n", rep.TotalClaims)
	if len(rep.Conflicts) == 0 {
		fmt.Fprintln(out, color.GreenString("No conflicts found."))
		return nil
	}
	for _, c := range rep.Conflicts {
		fmt.Fprintf(out, "%s %s\n", color.YellowString(string(c.Type)), c.Description)
		fmt.Fprintf(out, "  A [%s] %s\n", describeSource(c.A.Source), c.A.Content)
		fmt.Fprintf(out, "  B [%s] %s\n", describeSource(c.B.Source), c.B.Content)
	}
	return nil
}

func describeSource(p claims.Provenance) string {
	branch := p.BranchID
	if branch == "" {
		branch = "main"
	}
	s := fmt.Sprintf("%s #%d", branch, p.ThoughtNumber)
	if p.AgentName != "" {
		s += " by " + p.AgentName
	}
	return s
}
