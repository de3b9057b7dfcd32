package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/example/travelbook/internal/apiclient"
	"github.com/example/travelbook/internal/config"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var q apiclient.SearchQuery

	c := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search activities and holiday packages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log := newLogger(cfg, os.Stderr)
			api, err := newAPIClient(cfg, log)
			if err != nil {
				return err
			}

			q.Query = args[0]
			res, err := apiclient.RetryValue(cmd.Context(), retryConfig(cfg, log), func(ctx context.Context) (apiclient.SearchResponse, error) {
				return api.Search(ctx, q)
			})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tPRICE")
			for _, r := range res.Results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\n", r.ID, r.Type, r.Title, r.Price)
			}
			fmt.Fprintf(tw, "\n%d result(s), page %d\n", res.Total, res.Page)
			return tw.Flush()
		},
	}

	c.Flags().StringVar(&q.Type, "type", "", "restrict to a category (activity, holiday, ...)")
	c.Flags().IntVar(&q.Page, "page", 0, "page number")
	c.Flags().IntVar(&q.Limit, "limit", 0, "results per page")
	c.Flags().StringVar(&q.Sort, "sort", "", "sort order")
	return c
}
