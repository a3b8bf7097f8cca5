/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/oficina-virtual/apiserver/config"
	"github.com/oficina-virtual/apiserver/internal/db"
	"github.com/oficina-virtual/apiserver/internal/logging"
	"github.com/oficina-virtual/apiserver/internal/services"
	"github.com/oficina-virtual/apiserver/internal/storage"
	"github.com/oficina-virtual/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// exportCmd writes a snapshot of the user directory to object storage.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the user directory as JSON to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.LoadConfig()
		log := logging.New(cfg.Env, cfg.LogLevel)

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer dbConn.Close()

		objects, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}

		users := services.NewUserService(store.NewUserRepository(dbConn), services.WithLogger(log))
		key, err := services.NewExportService(users, objects).ExportUsers(ctx, time.Now())
		if err != nil {
			return err
		}

		log.Info().Str("bucket", objects.Bucket()).Str("key", key).Msg("user directory exported")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
