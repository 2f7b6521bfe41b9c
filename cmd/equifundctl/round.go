package main

import (
	"context"
	"fmt"
	"time"

	"github.com/equifund/backend/internal/app"
	"github.com/equifund/backend/internal/http/dto"
	"github.com/equifund/backend/internal/services"
	"github.com/spf13/cobra"
)

func roundCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "round", Short: "Inspect and manage funding rounds"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the current round",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				round, err := core.Query.Round(ctx)
				if err != nil {
					return err
				}
				v := dto.NewRoundView(round, time.Now())
				if v.RoundID == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no round has been created")
					return nil
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "round #%d (active=%t finalized=%t)\n", v.RoundID, v.Active, v.Finalized)
				fmt.Fprintf(out, "  time remaining:      %s\n", v.TimeRemaining)
				fmt.Fprintf(out, "  matching pool:       %s\n", v.MatchingPool.Display)
				fmt.Fprintf(out, "  total contributions: %s\n", v.TotalContributions.Display)
				fmt.Fprintf(out, "  contributors:        %s\n", v.TotalContributors)
				fmt.Fprintf(out, "  average match:       %s\n", v.AverageMatch)
				fmt.Fprintf(out, "  unlocked pool:       %s\n", v.MatchingPoolBalance.Display)
				return nil
			})
		},
	}

	var days string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a new round (pool owner only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				res, err := core.Admin.CreateRound(ctx, services.CreateRoundRequest{DurationDays: days})
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	create.Flags().StringVar(&days, "days", services.DefaultRoundDays, "round length in days, at least one hour")

	finalize := &cobra.Command{
		Use:   "finalize",
		Short: "Finalize the ended round (pool owner only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				res, err := core.Admin.FinalizeRound(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}

	var amount string
	var noApprove bool
	fund := &cobra.Command{
		Use:   "fund",
		Short: "Add USDC to the matching pool (pool owner only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				autoApprove := !noApprove
				res, err := core.Admin.AddMatchingFunds(ctx, services.FundingRequest{Amount: amount, AutoApprove: &autoApprove})
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	fund.Flags().StringVar(&amount, "amount", services.DefaultMatchingAmount, "USDC amount")
	fund.Flags().BoolVar(&noApprove, "no-approve", false, "fail instead of approving when the allowance is short")

	cmd.AddCommand(show, create, finalize, fund)
	return cmd
}
