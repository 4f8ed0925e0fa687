package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"productivity-hub/internal/server"
)

func tokenCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an access token signed with the configured jwt secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			issuer, err := server.NewTokenIssuer(cfg.JWT)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(args[0], username)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "display name stored in the token")
	return cmd
}
