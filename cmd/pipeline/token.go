package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cityzn/cityzn-backend-go/internal/middleware"
)

var tokenOpts struct {
	subject string
	role    string
	ttl     time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an operator token for POST /api/v1/runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := middleware.IssueToken(cfg.Server.JWTSecret, tokenOpts.subject, tokenOpts.role, tokenOpts.ttl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenOpts.subject, "subject", "operator", "token subject")
	tokenCmd.Flags().StringVar(&tokenOpts.role, "role", "admin", "token role")
	tokenCmd.Flags().DurationVar(&tokenOpts.ttl, "ttl", 24*time.Hour, "token lifetime")
}
