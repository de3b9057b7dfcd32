package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/example/travelbook/internal/config"
	"github.com/example/travelbook/internal/roster"
	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved traveler profiles",
	}
	cmd.AddCommand(newProfileListCmd(), newProfileAddCmd(), newProfileDeleteCmd())
	return cmd
}

// withProfiles opens the configured profile store for one command.
func withProfiles(cmd *cobra.Command, fn func(*roster.ProfileStore) error) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := newLogger(cfg, os.Stderr)
	profiles, closeProfiles, err := openProfiles(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer closeProfiles()
	return fn(profiles)
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfiles(cmd, func(ps *roster.ProfileStore) error {
				all, err := ps.List(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tPASSPORT")
				for _, p := range all {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.PassportNumber)
				}
				return tw.Flush()
			})
		},
	}
}

func newProfileAddCmd() *cobra.Command {
	var f roster.TravelerForm

	c := &cobra.Command{
		Use:   "add",
		Short: "Save a traveler profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfiles(cmd, func(ps *roster.ProfileStore) error {
				p, err := ps.Save(cmd.Context(), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", p.Name, p.ID)
				return nil
			})
		},
	}

	c.Flags().StringVar(&f.FirstName, "first-name", "", "first name")
	c.Flags().StringVar(&f.LastName, "last-name", "", "last name")
	c.Flags().StringVar(&f.Weight, "weight", "", "weight")
	c.Flags().StringVar(&f.PassportNumber, "passport-number", "", "passport number")
	c.Flags().StringVar(&f.PassportExpiry, "passport-expiry", "", "passport expiry (YYYY-MM-DD)")
	c.Flags().StringVar(&f.PassportCountry, "passport-country", "", "passport issuing country")
	c.Flags().StringVar(&f.DateOfBirth, "dob", "", "date of birth (YYYY-MM-DD)")
	return c
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfiles(cmd, func(ps *roster.ProfileStore) error {
				if err := ps.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}
