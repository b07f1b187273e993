package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallbiznis/shopfinder/internal/brandkey"
	"github.com/smallbiznis/shopfinder/internal/chainscore"
	"github.com/spf13/cobra"
)

type scoreOptions struct {
	website       string
	attestation   string
	locations     string
	internalCount int
	knownStatus   string
	knownCount    int
	rulesPath     string
	format        string
}

type scoreOutput struct {
	BrandKey string `json:"brand_key"`
	chainscore.Result
}

func newScoreCommand() *cobra.Command {
	opts := &scoreOptions{}
	cmd := &cobra.Command{
		Use:   "score <shop name>",
		Short: "Score a hypothetical submission offline",
		Long: "Runs the chain likelihood heuristic on the given signals. Registry state\n" +
			"is supplied by flags; nothing is read from or written to the database.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, opts, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.website, "website", "", "Shop website URL")
	flags.StringVar(&opts.attestation, "attestation", "", "Chain attestation (no|yes|unsure)")
	flags.StringVar(&opts.locations, "locations", "", "Estimated location count (lt10|gte10|unsure)")
	flags.IntVar(&opts.internalCount, "internal-count", 0, "Active directory shops already using the brand key")
	flags.StringVar(&opts.knownStatus, "known-status", string(chainscore.BrandUnknown), "Registry status (unknown|allowed|blocked|needs_review)")
	flags.IntVar(&opts.knownCount, "known-count", 0, "Registry known location count")
	flags.StringVar(&opts.rulesPath, "rules", "", "Path to a brand rules file (default: built-in rules)")
	flags.StringVarP(&opts.format, "format", "f", "text", "Output format (text|json)")
	return cmd
}

func runScore(cmd *cobra.Command, opts *scoreOptions, name string) error {
	key := brandkey.Normalize(name)
	if key == "" {
		return fmt.Errorf("%q does not produce a brand key", name)
	}
	status, err := parseBrandStatus(opts.knownStatus)
	if err != nil {
		return err
	}
	rules, err := loadRules(opts.rulesPath)
	if err != nil {
		return err
	}

	result := chainscore.Score(chainscore.Input{
		ShopName:               name,
		WebsiteURL:             opts.website,
		InternalCount:          opts.internalCount,
		ChainAttestation:       chainscore.ParseAttestation(opts.attestation),
		EstimatedLocationCount: chainscore.ParseLocationEstimate(opts.locations),
		KnownBrandStatus:       status,
		KnownLocationCount:     opts.knownCount,
	}, rules)

	out := cmd.OutOrStdout()
	switch opts.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(scoreOutput{BrandKey: key, Result: result})
	case "text":
		fmt.Fprintf(out, "brand_key: %s\nscore:     %d\ndecision:  %s\n", key, result.Score, result.Decision)
		if len(result.Reasons) > 0 {
			fmt.Fprintf(out, "reasons:   %s\n", strings.Join(result.Reasons, ", "))
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
}

func parseBrandStatus(raw string) (chainscore.BrandStatus, error) {
	switch status := chainscore.BrandStatus(strings.ToLower(strings.TrimSpace(raw))); status {
	case "":
		return chainscore.BrandUnknown, nil
	case chainscore.BrandUnknown, chainscore.BrandAllowed, chainscore.BrandBlocked, chainscore.BrandNeedsReview:
		return status, nil
	default:
		return "", fmt.Errorf("unknown brand status %q", raw)
	}
}
