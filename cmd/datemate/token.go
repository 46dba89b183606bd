package main

import (
	"errors"
	"fmt"

	"github.com/datemate/taskpoll/internal/service/auth"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var errNoSecret = errors.New("auth.jwt_secret must be configured to mint tokens")

func newTokenCmd(cc *cliContext) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token from the shared JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cc.cfg.Auth.JWTSecret == "" {
				return errNoSecret
			}

			userID := uuid.New()
			if user != "" {
				var err error
				if userID, err = uuid.Parse(user); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}

			svc, err := auth.NewJWTService(cc.cfg.Auth)
			if err != nil {
				return err
			}
			token, err := svc.GenerateToken(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id to embed (default: random)")
	return cmd
}
