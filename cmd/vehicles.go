package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evslot/app"
	"github.com/kilianp07/evslot/core/ledger"
	"github.com/kilianp07/evslot/core/model"
)

var importCmd = &cobra.Command{
	Use:   "import <url|path>",
	Short: "Import vehicles from a remote or local source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			n, err := svc.Import(ctx, args[0])
			if err != nil {
				return fmt.Errorf("import stopped after %d vehicles: %w", n, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d vehicles\n", n)
			return err
		})
	},
}

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List vehicles whose charge target is met",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			recs, err := svc.Engine.ListReady(ctx)
			if err != nil {
				return err
			}
			for _, r := range recs {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), r.Plate); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <plate>",
	Short: "Show the predicted completion time of a vehicle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			st, err := svc.Engine.GetStatus(ctx, args[0])
			if err != nil {
				return err
			}
			state := "charging"
			if st.Completed {
				state = "completed"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", st.Plate, st.EstimatedAt.Format(time.RFC3339), state)
			return err
		})
	},
}

var retireCmd = &cobra.Command{
	Use:   "retire <plate>",
	Short: "Release the slot of a vehicle and print its final charge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			charge, err := svc.Engine.Retire(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", args[0], charge)
			return err
		})
	},
}

var statusFilter string

var vehiclesCmd = &cobra.Command{
	Use:   "vehicles",
	Short: "Ledger related commands",
}

var vehiclesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List ledger records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var f ledger.Filter
		if statusFilter != "" {
			st, err := model.ParseStatus(statusFilter)
			if err != nil {
				return err
			}
			f.Status = st
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			recs, err := svc.Engine.Vehicles(ctx, f)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "PLATE\tCHARGE\tTOTAL\tTARGET\tSTATUS")
			for _, r := range recs {
				_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d%%\t%s\n", r.Plate, r.CurrentCharge, r.TotalCharge, r.DesiredPercentage, r.Status)
			}
			return w.Flush()
		})
	},
}

func init() {
	vehiclesLsCmd.Flags().StringVar(&statusFilter, "status", "", "only list occupied or retired vehicles")
	vehiclesCmd.AddCommand(vehiclesLsCmd)
	rootCmd.AddCommand(importCmd, readyCmd, statusCmd, retireCmd, vehiclesCmd)
}
