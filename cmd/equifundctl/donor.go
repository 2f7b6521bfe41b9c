package main

import (
	"context"
	"fmt"

	"github.com/equifund/backend/internal/app"
	"github.com/equifund/backend/internal/services"
	"github.com/spf13/cobra"
)

func donorCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "donor", Short: "Check eligibility and contribute from the configured wallet"}

	var amount string

	check := &cobra.Command{
		Use:   "eligibility <project>",
		Short: "Explain whether a contribution would be accepted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				view, err := core.Donor.Eligibility(ctx, args[0], amount)
				if err != nil {
					return err
				}
				if !view.Allowed {
					fmt.Fprintf(cmd.OutOrStdout(), "blocked: %s\n", view.Reason)
					return nil
				}
				if view.Approval.Required {
					fmt.Fprintln(cmd.OutOrStdout(), "allowed, approval required first")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "allowed")
				return nil
			})
		},
	}
	check.Flags().StringVar(&amount, "amount", services.DefaultContributionAmount, "USDC amount")

	var noApprove bool
	contribute := &cobra.Command{
		Use:   "contribute <project>",
		Short: "Contribute USDC to a project, approving first when needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				autoApprove := !noApprove
				res, err := core.Donor.Contribute(ctx, services.ContributeRequest{
					Project:     args[0],
					Amount:      amount,
					AutoApprove: &autoApprove,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	contribute.Flags().StringVar(&amount, "amount", services.DefaultContributionAmount, "USDC amount")
	contribute.Flags().BoolVar(&noApprove, "no-approve", false, "fail instead of approving when the allowance is short")

	cmd.AddCommand(check, contribute)
	return cmd
}
