package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// Search runs a one-off candidate search and prints the ranked results.
func (a *App) Search(ctx context.Context, opts SearchOptions) error {
	aggregator := a.newAggregator()

	result, err := aggregator.Aggregate(ctx, opts.Query)
	if err != nil {
		return err
	}
	if len(result.Candidates) == 0 {
		fmt.Fprintln(os.Stdout, "no candidates found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Symbol\tName\tSource\tNetwork\tConfidence\tLiquidity USD\tWebsite")

	for _, candidate := range result.Candidates {
		network := candidate.Network
		if candidate.IsNative {
			network = "native"
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			candidate.Symbol,
			candidate.Name,
			candidate.Source,
			network,
			candidate.Confidence,
			candidate.LiquidityUSD.StringFixed(0),
			candidate.Website,
		)
	}

	writer.Flush()

	if result.AutoSelected {
		fmt.Fprintln(os.Stdout, "\ntop candidate cleared the auto-select threshold")
	}
	return nil
}
