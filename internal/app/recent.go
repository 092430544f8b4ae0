package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Recent prints the latest admission attempts from the audit log.
func (a *App) Recent(ctx context.Context, opts RecentOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := store.ListRecentAdmissions(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no admission attempts recorded")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tSymbol\tNetwork\tOutcome\tDetail\tLiquidity USD")

	for _, record := range records {
		detail := ""
		if record.Detail != nil {
			detail = sanitizeInline(*record.Detail)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			record.CreatedAt.UTC().Format(time.RFC3339),
			record.Symbol,
			record.Network,
			record.Outcome,
			detail,
			record.LiquidityUSD.StringFixed(0),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
