package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
)

// NewTokenCommand creates the token command, which mints a bearer token for
// local testing.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		user int64
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an HS256 bearer token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.cfg.Auth.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if user <= 0 {
				return errors.New("--user must be a positive user id")
			}
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}
			tok, err := middleware.IssueToken([]byte(opts.cfg.Auth.JWTSecret), user, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().Int64Var(&user, "user", 0, "user id placed in the sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
