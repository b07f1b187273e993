package cli

import (
	"strings"

	"github.com/smallbiznis/shopfinder/internal/chainscore"
	"github.com/smallbiznis/shopfinder/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func newRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Work with the chain denylist",
	}

	var rulesPath string
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective rules as YAML",
		Long: "Merges the rules file with the built-in lists exactly as the server does\n" +
			"and prints the result, normalized and de-duplicated.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadRules(rulesPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(map[string]chainscore.Rules{"brand_rules": rules})
		},
	}
	dump.Flags().StringVar(&rulesPath, "rules", "", "Path to a brand rules file (default: built-in rules)")
	cmd.AddCommand(dump)
	return cmd
}

// loadRules reads path through the same loader the server uses. An empty
// path means the built-in rules.
func loadRules(path string) (chainscore.Rules, error) {
	if strings.TrimSpace(path) == "" {
		return chainscore.DefaultRules(), nil
	}
	cfg := config.Config{Brand: config.BrandConfig{RulesPath: path}}
	holder, err := config.NewBrandRulesHolder(cfg, zap.NewNop())
	if err != nil {
		return chainscore.Rules{}, err
	}
	return holder.Rules(), nil
}
