package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clickmoment/clickmoment/internal/profile"
)

func newProfileCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your channel profile",
	}
	cmd.AddCommand(newProfileShowCommand(ctx))
	cmd.AddCommand(newProfileSetCommand(ctx))
	cmd.AddCommand(newProfileLimitsCommand(ctx))
	return cmd
}

func newProfileShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your channel profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireSession(); err != nil {
				return err
			}

			p, err := ctx.api.GetProfile(cmd.Context())
			if err != nil {
				return err
			}
			if p == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No profile yet. Run `cmctl profile set` to create one.")
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Stage:            %s\n", p.Stage)
			fmt.Fprintf(out, "Subscribers:      %s\n", p.SubscriberCount)
			fmt.Fprintf(out, "Niche:            %s\n", p.ContentNiche)
			fmt.Fprintf(out, "Upload frequency: %s\n", p.UploadFrequency)
			fmt.Fprintf(out, "Growth goal:      %s\n", p.GrowthGoal)
			return nil
		},
	}
}

func newProfileSetCommand(ctx *commandContext) *cobra.Command {
	var fields profile.Fields

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save your channel profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireSession(); err != nil {
				return err
			}

			// Unset flags keep the stored values; the server replaces the
			// row wholesale, so merge with the current profile first.
			if current, err := ctx.api.GetProfile(cmd.Context()); err == nil && current != nil {
				if !cmd.Flags().Changed("stage") {
					fields.Stage = current.Stage
				}
				if !cmd.Flags().Changed("subscribers") {
					fields.SubscriberCount = current.SubscriberCount
				}
				if !cmd.Flags().Changed("niche") {
					fields.ContentNiche = current.ContentNiche
				}
				if !cmd.Flags().Changed("frequency") {
					fields.UploadFrequency = current.UploadFrequency
				}
				if !cmd.Flags().Changed("goal") {
					fields.GrowthGoal = current.GrowthGoal
				}
			}

			if _, err := ctx.api.SaveProfile(cmd.Context(), fields); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Profile saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&fields.Stage, "stage", "", "channel stage, e.g. just-starting or growing")
	cmd.Flags().StringVar(&fields.SubscriberCount, "subscribers", "", "subscriber bracket, e.g. 1k-10k")
	cmd.Flags().StringVar(&fields.ContentNiche, "niche", "", "content niche")
	cmd.Flags().StringVar(&fields.UploadFrequency, "frequency", "", "upload cadence, e.g. weekly")
	cmd.Flags().StringVar(&fields.GrowthGoal, "goal", "", "what growth looks like for the channel")
	return cmd
}

func newProfileLimitsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Show remaining analysis allowance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireSession(); err != nil {
				return err
			}

			allowed, remaining, err := ctx.api.Limits(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case remaining < 0:
				fmt.Fprintln(out, "Unlimited analyses available")
			case allowed:
				fmt.Fprintf(out, "%d analyses remaining\n", remaining)
			default:
				fmt.Fprintln(out, "Analysis limit reached")
			}
			return nil
		},
	}
}
