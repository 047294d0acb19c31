package main

import (
	"fmt"

	"github.com/KamdynS/go-swarm/database"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Example: `  # Create tables and load the demo sales data
  agentctl migrate --seed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := database.New(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()

			if err := db.AutoMigrate(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.Info().Str("type", cfg.Database.Type).Msg("schema up to date")

			if seed {
				if err := db.Seed(cmd.Context()); err != nil {
					return fmt.Errorf("seed failed: %w", err)
				}
				log.Info().Msg("sales data seeded")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "Load the demo sales data when the table is empty")
	return cmd
}
