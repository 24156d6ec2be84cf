// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/olegiv/neongallery/internal/config"
	"github.com/olegiv/neongallery/internal/gallery"
	"github.com/olegiv/neongallery/internal/store"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "galleryctl",
		Short:         "Manage gallery themes, users, archives and the event log",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// Missing .env is fine.
			_ = godotenv.Load(envFile)
			slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file with GALLERY_* settings")

	rootCmd.AddCommand(NewThemesCmd())
	rootCmd.AddCommand(NewUsersCmd())
	rootCmd.AddCommand(NewEventsCmd())
	rootCmd.AddCommand(NewExportCmd())
	rootCmd.AddCommand(NewImportCmd())

	return rootCmd
}

// openRepository opens the gallery root named by the environment.
func openRepository() (*gallery.FSRepository, *config.Storage, error) {
	s, err := config.LoadStorage()
	if err != nil {
		return nil, nil, err
	}
	repo, err := gallery.NewFSRepository(gallery.Options{
		Root:                s.Root,
		Reserved:            s.ReservedNames,
		CreateMissingThemes: s.CreateMissingThemes,
		MaxImageSize:        s.MaxImageSize,
		MaxFiles:            s.MaxFiles,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening gallery: %w", err)
	}
	return repo, s, nil
}

// openDB opens and migrates the database named by the environment.
func openDB() (*sql.DB, error) {
	s, err := config.LoadStorage()
	if err != nil {
		return nil, err
	}
	db, err := store.NewDB(s.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
