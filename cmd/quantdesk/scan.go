package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/LoppVicious/QuantDesk-Web/internal/analysis"
	"github.com/LoppVicious/QuantDesk-Web/internal/app"
	"github.com/LoppVicious/QuantDesk-Web/internal/scan"
)

func scanCmd() *cobra.Command {
	var (
		req     scan.Request
		asJSON  bool
		nearAll bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Screen the ticker universe and print the results",
		Long: `Run a scan in the foreground and print one row per analysed ticker.

Examples:
  # Default universe and parameters
  quantdesk scan

  # Energy names only, first 20
  quantdesk scan --sector Energy --num-tickers 20

  # Only tickers trading near a gamma wall, as JSON
  quantdesk scan --near-wall --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			id, sum, err := a.Scanner.RunForeground(ctx, req)
			if err != nil {
				return err
			}
			task, err := a.Scanner.Status(ctx, id)
			if err != nil {
				return err
			}

			results := task.Results
			if nearAll {
				results = nearWall(results)
			}

			if asJSON {
				return encodeJSON(os.Stdout, analysis.FiniteResults(results))
			}

			printResults(results)
			fmt.Printf("\n%d analysed, %d ok, %d unavailable, %d fault in %s\n",
				sum.Total, sum.OK, sum.Unavailable, sum.Fault, sum.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Sector, "sector", "", "GICS sector to scan (empty or \"all\" for every sector)")
	cmd.Flags().IntVar(&req.NumTickers, "num-tickers", 0, "maximum tickers to analyse (default from config)")
	cmd.Flags().IntVar(&req.MaxDTE, "max-dte", 0, "maximum days to expiry for option chains (default from config)")
	cmd.Flags().IntVar(&req.Lookback, "lookback", 0, "realized volatility lookback in trading days (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&nearAll, "near-wall", false, "only show tickers within 2% of a wall")

	return cmd
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nearWall(results []analysis.Result) []analysis.Result {
	var out []analysis.Result
	for _, r := range results {
		if r.NearWall {
			out = append(out, r)
		}
	}
	return out
}

func printResults(results []analysis.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "TICKER\tPRICE\tIV\tRV\tVRP\tCALL WALL\tPUT WALL\tGAMMA POWER\tNEAR\t")
	for _, r := range results {
		near := ""
		if r.NearWall {
			near = "*"
		}
		fmt.Fprintf(w, "%s\t%.2f\t%.1f\t%.1f\t%.1f\t%.2f\t%.2f\t%.3g\t%s\t\n",
			r.Ticker, r.Price, r.IV, r.RV, r.VRP, r.CallWall, r.PutWall, r.GammaPower, near)
	}
	w.Flush()
}
