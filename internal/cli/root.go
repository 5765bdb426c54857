package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/KafClaw/thoughthub/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"  _   _                  _     _   _           _\n" +
		" | |_| |__   ___  _   _ | |__ | |_| |__  _   _| |__\n" +
		" | __| '_ \\ / _ \\| | | |/ _` || __| '_ \\| | | | '_ \\\n" +
		" | |_| | | | (_) | |_| | (_| || |_| | | | |_| | |_) |\n" +
		"  \\__|_| |_|\\___/ \\__,_|\\__, | \\__|_| |_|\\__,_|_.__/\n" +
		"                        |___/\n"
)

var rootCmd = &cobra.Command{
	Use:   "thoughthub",
	Short: "ThoughtHub - coordination hub for cooperating agents",
	Long:  color.CyanString(logo) + "\nShared workspaces, problems, proposals and a hash-chained thought log for agent teams.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(conflictsCmd)
}

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, color.CyanString(title))
	fmt.Fprintln(w, strings.Repeat("─", len([]rune(title))))
}
