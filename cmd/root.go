package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"warehouse.GO/app"
	"warehouse.GO/config"
	"warehouse.GO/model/entity"
)

var rootCmd = &cobra.Command{
	Use:           "warehouse",
	Short:         "Warehouse and site operations toolkit",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Registered extension commands are attached first.
func Execute() {
	Apply()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap opens the database and builds the services the way the server
// does. The returned func flushes the logger.
func bootstrap() (*app.App, func(), error) {
	cfg := config.LoadAppConfig()
	log := config.NewLogger(cfg)
	db, err := config.NewDB()
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.AutoMigrate(entity.All()...); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	a := app.New(db, cfg, log)
	return a, func() { _ = log.Sync() }, nil
}

var migrateCmd = &cobra.Command{
	Use:   "db:migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := bootstrap()
		if err != nil {
			return err
		}
		defer done()
		a.Log.Info("schema up to date", zap.Int("tables", len(entity.All())))
		fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
