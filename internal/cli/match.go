package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"smartaudit/internal/ranking"
)

var matchCmd = &cobra.Command{
	Use:   "match <query> [file]",
	Short: "Test a boolean search query against text",
	Long: `Report whether text matches a reference-library search query. Every plain
term must appear and no term prefixed with "-" may appear, case-insensitively.
Reads the file argument, or stdin when it is omitted or "-".

Examples:
  smartaudit match "budget -draft" proposal.txt
  cat notes.txt | smartaudit match "travel policy"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runMatch,
}

func runMatch(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 2 && args[1] != "-" {
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[1], err)
		}
		defer f.Close()
		r = f
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	if ranking.MatchBooleanQuery(string(text), args[0]) {
		fmt.Fprintln(cmd.OutOrStdout(), "match")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "no match")
	return nil
}
