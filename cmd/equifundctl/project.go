package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/equifund/backend/internal/app"
	"github.com/equifund/backend/internal/http/dto"
	"github.com/equifund/backend/internal/services"
	"github.com/spf13/cobra"
)

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "project", Short: "List and manage registered projects"}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List the current round's projects by amount raised",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				round, err := core.Query.Round(ctx)
				if err != nil {
					return err
				}
				load := core.Query.Projects
				if all {
					load = core.Query.AllProjects
				}
				projects, err := load(ctx, round.ID)
				if err != nil {
					return err
				}
				if len(projects) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no projects")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ADDRESS\tNAME\tACTIVE\tRAISED\tMATCHED\tSHARE")
				for _, p := range projects {
					v := dto.NewProjectView(p, round.TotalContributions)
					fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%d%%\n", v.Short, v.Name, v.IsActive, v.TotalRaised.Display, v.TotalMatched.Display, v.RoundShare)
				}
				return w.Flush()
			})
		},
	}

	list.Flags().BoolVar(&all, "all", false, "include deactivated projects")

	var req services.ProjectRequest
	register := &cobra.Command{
		Use:   "register <address>",
		Short: "Register a project (registry owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				r := req
				r.Address = args[0]
				res, err := core.Admin.RegisterProject(ctx, r)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	register.Flags().StringVar(&req.Name, "name", "", "project name, more than 2 characters")
	register.Flags().StringVar(&req.Description, "description", "", "project description, more than 10 characters")
	register.Flags().StringVar(&req.MetadataURI, "metadata-uri", "", "ipfs:// or https:// metadata URI")

	toggle := &cobra.Command{
		Use:   "toggle <address>",
		Short: "Flip a project's active flag (registry owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				res, err := core.Admin.ToggleProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <address>",
		Short: "Remove a project from the registry (registry owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				res, err := core.Admin.RemoveProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}

	cmd.AddCommand(list, register, toggle, remove)
	return cmd
}
