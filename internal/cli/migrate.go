package cli

import (
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(opts.cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)
			opts.log.Info().Str("db_driver", opts.cfg.DB.Driver).Msg("schema up to date")
			return nil
		},
	}
}
