package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/example/travelbook/internal/apiclient"
	"github.com/example/travelbook/internal/catalog"
	"github.com/example/travelbook/internal/config"
	"github.com/example/travelbook/internal/pricing"
	"github.com/example/travelbook/internal/roster"
	"github.com/spf13/cobra"
)

func newQuoteCmd() *cobra.Command {
	var (
		itemID, kind              string
		price                     float64
		adults, seniors, children int
	)

	c := &cobra.Command{
		Use:   "quote",
		Short: "Price a booking for an item or a per-person price",
		RunE: func(cmd *cobra.Command, args []string) error {
			k := catalog.Kind(kind)
			if !k.Valid() {
				return fmt.Errorf("invalid --kind %q (activity or holiday)", kind)
			}
			counts := clampCounts(k, roster.Counts{Adults: adults, Seniors: seniors, Children: children})

			var b pricing.Breakdown
			switch {
			case itemID != "":
				cfg, err := config.FromEnv()
				if err != nil {
					return err
				}
				log := newLogger(cfg, os.Stderr)
				api, err := newAPIClient(cfg, log)
				if err != nil {
					return err
				}
				item, err := apiclient.RetryValue(cmd.Context(), retryConfig(cfg, log), func(ctx context.Context) (catalog.Item, error) {
					return api.Item(ctx, k, itemID)
				})
				if err != nil {
					return err
				}
				b = pricing.ForItem(item, counts)
			case cmd.Flags().Changed("price"):
				b = pricing.Calculate(price, counts)
			default:
				return fmt.Errorf("one of --item or --price is required")
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"counts": counts, "breakdown": b, "display": b.Display()})
		},
	}

	c.Flags().StringVar(&itemID, "item", "", "catalog item id")
	c.Flags().StringVar(&kind, "kind", string(catalog.KindActivity), "item kind: activity or holiday")
	c.Flags().Float64Var(&price, "price", 0, "per-person price instead of an item")
	c.Flags().IntVar(&adults, "adults", 1, "number of adults")
	c.Flags().IntVar(&seniors, "seniors", 0, "number of seniors")
	c.Flags().IntVar(&children, "children", 0, "number of children")
	return c
}

// clampCounts replays want through a roster so the usual bounds apply.
func clampCounts(kind catalog.Kind, want roster.Counts) roster.Counts {
	r := roster.New(kind)
	for _, cat := range roster.Categories {
		for r.Counts().Get(cat) < want.Get(cat) {
			before := r.Counts()
			if r.SetCount(cat, 1) == before {
				break
			}
		}
		for r.Counts().Get(cat) > want.Get(cat) {
			before := r.Counts()
			if r.SetCount(cat, -1) == before {
				break
			}
		}
	}
	return r.Counts()
}
