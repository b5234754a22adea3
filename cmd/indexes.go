/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/fittrack/apiserver/config"
	"github.com/fittrack/apiserver/internal/db"
	"github.com/fittrack/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// indexesCmd ensures the MongoDB indexes exist. The unique username
// index is the counterpart of the Postgres unique constraint.
var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Ensure MongoDB indexes exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		client, err := db.Connect(cmd.Context(), cfg.Mongo)
		if err != nil {
			return fmt.Errorf("connect to mongo failed: %w", err)
		}
		defer func() {
			_ = client.Disconnect(context.Background())
		}()

		repo := store.NewMongoUserRepository(client.Database(cfg.Mongo.DBName))
		if err := repo.EnsureIndexes(cmd.Context()); err != nil {
			return fmt.Errorf("ensure indexes failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexesCmd)
}
