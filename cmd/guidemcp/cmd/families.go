package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/guidemcp/internal/config"
)

// newFamiliesCmd creates the families command.
func newFamiliesCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "families",
		Short: "List configured guideline families",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(familiesInfo(cfg))
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tNAME\tGRAMMAR\tUPSTREAM")
			for _, f := range cfg.Families {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Key, f.Name, f.Grammar, f.Upstream)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// familyInfo is one family in the JSON listing.
type familyInfo struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Grammar  string `json:"grammar"`
	Upstream string `json:"upstream"`
	Checkout string `json:"checkout"`
}

func familiesInfo(cfg *config.Config) []familyInfo {
	out := make([]familyInfo, 0, len(cfg.Families))
	for _, f := range cfg.Families {
		out = append(out, familyInfo{
			Key:      f.Key,
			Name:     f.Name,
			Grammar:  f.Grammar,
			Upstream: f.Upstream,
			Checkout: f.CheckoutPath(cfg.DataDir),
		})
	}
	return out
}
