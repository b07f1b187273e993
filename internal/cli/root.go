// Package cli implements brandctl, the operator tool for checking how names
// normalize and score before touching the live registry.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "brandctl",
		Short:         "Inspect brand keys, chain scores and the chain denylist",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(newNormalizeCommand())
	root.AddCommand(newScoreCommand())
	root.AddCommand(newRulesCommand())
	return root
}

// Execute runs brandctl against the process arguments.
func Execute() {
	if err := NewRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
