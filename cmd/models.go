package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"panelbridge/internal/config"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List selectable models",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		reg, err := buildRegistry(cfg)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tKEY\tMODEL\tWIRE CODE\tMEDIA")
		for _, entry := range reg.All() {
			key := entry.Key
			if entry.Default {
				key += " (default)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				entry.Provider, key, entry.DisplayName, entry.WireCode,
				strings.Join(entry.Kinds.Names(), ","))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
