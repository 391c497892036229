package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tool",
		Long:  `Database migration tool for managing schema versions. Use with 'up', 'down' or 'version'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending database migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd, v, func(db migrator) error {
					if err := db.MigrateUp(); err != nil {
						return err
					}
					return printVersion(cmd, db)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert every applied migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				yes, _ := cmd.Flags().GetBool("yes")
				if !yes {
					return fmt.Errorf("migrate down drops all mirrored data; pass --yes to confirm")
				}
				return withDB(cmd, v, func(db migrator) error {
					return db.MigrateDown()
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd, v, func(db migrator) error {
					return printVersion(cmd, db)
				})
			},
		},
	)
	cmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	return cmd
}

// migrator is the subset of *postgres.DB the migrate commands use
type migrator interface {
	MigrateUp() error
	MigrateDown() error
	MigrationVersion() (uint, bool, error)
}

func withDB(cmd *cobra.Command, v *viper.Viper, fn func(migrator) error) error {
	cfg, logger, err := loadConfig(v, configPath(cmd))
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	db, err := connectDB(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}()

	return fn(db)
}

func printVersion(cmd *cobra.Command, db migrator) error {
	version, dirty, err := db.MigrationVersion()
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return nil
}
