package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and store the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(args[0])

			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}

			token, err := ctx.api.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			ctx.cfg.AccessToken = token

			userID, err := ctx.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			ctx.cfg.UserID = userID

			if err := ctx.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (prompted if omitted)")
	return cmd
}
