// Package cli holds the operator subcommands of the khadamat binary.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/khadamat/khadamat/internal/moving"
)

// EstimateOptions defines the flags for the estimate command.
type EstimateOptions struct {
	Rooms        []string
	Distance     string
	FromFloor    string
	ToFloor      string
	Services     []string
	RateCardPath string
	JSONOutput   bool
	Stdout       io.Writer
	Stderr       io.Writer
}

// EstimateCommand prices a move from the command line. Rooms use type=qty pairs.
func EstimateCommand(opts EstimateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	var (
		rates *moving.RateCard
		err   error
	)
	if opts.RateCardPath != "" {
		rates, err = moving.LoadRateCard(opts.RateCardPath)
	} else {
		rates, err = moving.DefaultRateCard()
	}
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "estimate: %v\n", err)
		return 1
	}

	inv := moving.NewInventory()
	for _, pair := range opts.Rooms {
		name, qtyText, ok := strings.Cut(pair, "=")
		qty, convErr := strconv.Atoi(strings.TrimSpace(qtyText))
		if !ok || convErr != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "estimate: invalid room %q (expected type=qty)\n", pair)
			return 2
		}
		if err := inv.Set(moving.RoomType(strings.TrimSpace(name)), qty); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "estimate: %v\n", err)
			return 2
		}
	}

	quote, err := moving.NewEstimator(rates).Estimate(moving.Request{
		Rooms:     inv,
		Distance:  moving.DistanceTier(opts.Distance),
		FromFloor: opts.FromFloor,
		ToFloor:   opts.ToFloor,
		Services:  opts.Services,
	})
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "estimate: %v\n", err)
		return 2
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(quote); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "estimate: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	renderQuote(opts.Stdout, quote)
	return 0
}

func renderQuote(w io.Writer, q moving.Quote) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, l := range q.Lines {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", l.Label, l.Quantity, moving.FormatAmount(l.Amount, q.Currency))
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(w, "items: %d  truck: %s  distance: %s (x%.2f)\n", q.TotalItems, q.TruckType, q.Distance, q.Multiplier)
	_, _ = fmt.Fprintf(w, "total: %s\n", moving.FormatAmount(q.Total, q.Currency))
}
