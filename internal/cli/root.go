package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "smartaudit",
	Short: "Business document review assistant",
	Long: `smartaudit reviews proposal documents against compliance rules and a
reference library, drafts summaries and review opinions, and distills
documents into outlines and visuals through Gemini, DeepSeek or MiniMax.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, tokenCmd, matchCmd, versionCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
