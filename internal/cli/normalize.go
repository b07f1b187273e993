package cli

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/shopfinder/internal/brandkey"
	"github.com/spf13/cobra"
)

func newNormalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <name>...",
		Short: "Print the brand key for each shop name",
		Long: "Prints one line per argument: the brand key, a tab, then the original name.\n" +
			"An empty key means the name cannot be matched against the registry.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", brandkey.Normalize(name), strings.TrimSpace(name))
			}
			return nil
		},
	}
}
