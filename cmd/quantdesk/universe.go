package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/scan"
	"github.com/LoppVicious/QuantDesk-Web/internal/universe"
)

func universeCmd() *cobra.Command {
	var (
		sector  string
		sectors bool
	)

	cmd := &cobra.Command{
		Use:   "universe",
		Short: "List the tickers a scan can cover",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := universe.NewLoader(universe.Config{
				Source:          cfg.Universe.URL,
				FallbackEnabled: cfg.Universe.FallbackEnabled,
				Timeout:         secs(cfg.Universe.TimeoutSec),
			}, logger)

			all, err := loader.Constituents(cmd.Context())
			if err != nil {
				return err
			}

			if sectors {
				counts := map[string]int{}
				for _, c := range all {
					counts[c.Sector]++
				}
				names := make([]string, 0, len(counts))
				for name := range counts {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Printf("%4d  %s\n", counts[name], name)
				}
				return nil
			}

			list := scan.FilterSector(all, sector)
			for _, c := range list {
				fmt.Printf("%-8s %s\n", c.Symbol, c.Sector)
			}
			logger.Debug("universe listed", zap.Int("total", len(all)), zap.Int("shown", len(list)))
			return nil
		},
	}

	cmd.Flags().StringVar(&sector, "sector", "", "only list this GICS sector")
	cmd.Flags().BoolVar(&sectors, "sectors", false, "list sectors with constituent counts")

	return cmd
}
