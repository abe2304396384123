package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LoppVicious/QuantDesk-Web/internal/analysis"
	"github.com/LoppVicious/QuantDesk-Web/internal/app"
)

func profileCmd() *cobra.Command {
	var (
		maxDTE int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "profile TICKER",
		Short: "Print the gamma exposure profile of one ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxDTE <= 0 {
				maxDTE = cfg.Engine.DefaultMaxDTE
			}

			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ticker := strings.ToUpper(args[0])
			prof, err := a.Engine.Profile(cmd.Context(), ticker, analysis.ProfileParams{
				Rate:   cfg.Engine.RiskFreeRate,
				MaxDTE: maxDTE,
			})
			if err != nil {
				return err
			}

			if asJSON {
				out := prof.Finite()
				out.History = nil
				return encodeJSON(os.Stdout, out)
			}

			flip := "approx"
			if prof.FlipExact {
				flip = "exact"
			}
			fmt.Printf("%s  spot %.2f  ATM IV %.1f%%\n", prof.Ticker, prof.Price, prof.ATMIV*100)
			fmt.Printf("call wall %.2f  put wall %.2f  gamma flip %.2f (%s)\n", prof.CallWall, prof.PutWall, prof.GammaFlip, flip)
			if prof.Synthetic {
				fmt.Println("note: synthetic market data")
			}
			fmt.Println()
			for _, b := range prof.Profile {
				fmt.Printf("%10.2f  %+14.0f  oi %8.0f\n", b.Strike, b.NetGammaExposure, b.TotalOpenInterest)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxDTE, "max-dte", 0, "maximum days to expiry (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the profile as JSON without price history")

	return cmd
}
