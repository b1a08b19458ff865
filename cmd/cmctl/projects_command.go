package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clickmoment/clickmoment/internal/project"
	"github.com/clickmoment/clickmoment/internal/view"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage ClickMoment projects",
	}
	cmd.AddCommand(newProjectsListCommand(ctx))
	cmd.AddCommand(newProjectsCreateCommand(ctx))
	cmd.AddCommand(newProjectsShowCommand(ctx))
	cmd.AddCommand(newProjectsDeleteCommand(ctx))
	return cmd
}

func newProjectsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your projects, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireSession(); err != nil {
				return err
			}

			controller := view.NewController(ctx.api, &consoleRenderer{out: cmd.OutOrStdout()})
			return controller.ShowProjectsList(cmd.Context())
		},
	}
}

func newProjectsCreateCommand(ctx *commandContext) *cobra.Command {
	var draft project.Draft

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireSession(); err != nil {
				return err
			}

			// Completing the form lands on the new project's detail view.
			controller := view.NewController(ctx.api, &consoleRenderer{out: cmd.OutOrStdout()})
			controller.ShowCreateProject()

			p, err := ctx.api.CreateProject(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.Name, p.ID)
			return controller.ShowProjectDetail(cmd.Context(), p.ID)
		},
	}
	cmd.Flags().StringVar(&draft.Name, "name", "", "project name (timestamped default if omitted)")
	cmd.Flags().StringVar(&draft.CreativeDirection.Mood, "mood", "", "intended mood")
	cmd.Flags().StringVar(&draft.CreativeDirection.TitleHint, "title-hint", "", "working title")
	cmd.Flags().StringVar(&draft.CreativeDirection.Notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&draft.CreatorContext.NicheHint, "niche", "", "content niche")
	return cmd
}

func newProjectsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project and its analyses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireSession(); err != nil {
				return err
			}

			controller := view.NewController(ctx.api, &consoleRenderer{out: cmd.OutOrStdout()})
			if err := controller.ShowProjectDetail(cmd.Context(), args[0]); err != nil {
				return err
			}

			analyses, err := ctx.api.ListAnalyses(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(analyses) == 0 {
				return nil
			}

			rows := make([][]string, 0, len(analyses))
			for _, a := range analyses {
				rows = append(rows, []string{a.ID, a.CreatedAt.Format("2006-01-02 15:04")})
			}
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ANALYSIS", "CREATED"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newProjectsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and its analyses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireSession(); err != nil {
				return err
			}

			if err := ctx.api.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
			return nil
		},
	}
}
