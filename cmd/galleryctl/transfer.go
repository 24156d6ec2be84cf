// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/olegiv/neongallery/internal/transfer"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [THEME...]",
		Short: "Write themes to a zip archive, all themes when none are named",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _, err := openRepository()
			if err != nil {
				return err
			}
			manifest, err := transfer.NewExporter(repo, nil).ExportToFile(cmd.Context(), args, output)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d themes, %d images to %s\n",
				len(manifest.Themes), manifest.ImageCount(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "gallery-export.zip", "archive to write")
	return cmd
}

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import themes from a zip archive written by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, s, err := openRepository()
			if err != nil {
				return err
			}
			result, err := transfer.NewImporter(repo, nil).ImportFromZipFile(cmd.Context(), args[0], transfer.ImportOptions{
				DryRun:    dryRun,
				BatchSize: s.MaxFiles,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.DryRun {
				_, _ = fmt.Fprintf(out, "dry run: %d images would be imported\n", result.ImagesImported)
			} else {
				_, _ = fmt.Fprintf(out, "imported %d images, %d themes created, %d existing\n",
					result.ImagesImported, result.ThemesCreated, result.ThemesExisting)
			}
			if result.Success() {
				return nil
			}

			tw := newTable(out)
			_, _ = fmt.Fprintln(tw, "THEME\tFILE\tERROR")
			for _, e := range result.Errors {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Theme, e.File, e.Message)
			}
			_ = tw.Flush()
			return fmt.Errorf("%d entries failed to import", len(result.Errors))
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the archive without writing")
	return cmd
}
