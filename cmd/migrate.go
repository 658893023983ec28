package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zippdf/zippdf/internal/config"
	"github.com/zippdf/zippdf/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Create or update the database schema (sqlite) or indexes (mongo) without starting the bot.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		fmt.Println("Database migrations completed successfully!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// openDatabase opens the configured database for the maintenance commands.
func openDatabase(cmd *cobra.Command) (database.DB, error) {
	cfg, err := config.LoadDatabase(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := database.Open(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}
