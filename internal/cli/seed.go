package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-recipes-backend/internal/seed"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load recipes from a YAML file (the bundled demo by default)",
		Long: `Create recipes, ingredient lines and comments from a YAML document.

Every row goes through the deduplicated create path, so running the same
file again reports existing rows and changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				f   *seed.File
				err error
			)
			if file == "" {
				f, err = seed.Demo()
			} else {
				f, err = seed.LoadFile(file)
			}
			if err != nil {
				return err
			}

			db, err := openDB(opts.cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)

			s := &seed.Seeder{
				Recipes:     services.NewRecipeService(db),
				Ingredients: services.NewIngredientService(db),
				Comments:    services.NewCommentService(db),
			}
			rep, err := s.Apply(opts.log.WithContext(cmd.Context()), f)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed document")
	return cmd
}
