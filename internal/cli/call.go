package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	callAgent string
	callArgs  string
)

var callCmd = &cobra.Command{
	Use:   "call <operation>",
	Short: "Run a single hub operation and print its result",
	Long: "Run a single hub operation against the local store. Without --agent the\n" +
		"identity from THOUGHTHUB_AGENT_ID / THOUGHTHUB_AGENT_NAME is used. Refused\n" +
		"while another process (such as serve) writes the same data directory.",
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callAgent, "agent", "", "Agent ID to act as")
	callCmd.Flags().StringVar(&callArgs, "args", "{}", "Operation arguments as a JSON object")
}

func runCall(cmd *cobra.Command, args []string) error {
	var opArgs map[string]any
	if err := json.Unmarshal([]byte(callArgs), &opArgs); err != nil {
		return fmt.Errorf("--args must be a JSON object: %w", err)
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()
	if _, err := a.hub.RecoverIntents(); err != nil {
		return fmt.Errorf("recover intents: %w", err)
	}

	agentID := callAgent
	if agentID == "" {
		if agentID, err = a.defaultAgent(); err != nil {
			return err
		}
	}

	res, err := a.hub.Handle(cmd.Context(), agentID, args[0], opArgs)
	if err != nil {
		we := toWireError(err)
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString(we.Kind+":"), we.Message)
		return err
	}
	return writeJSON(cmd.OutOrStdout(), res)
}
