// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewThemesCmd creates the themes command.
func NewThemesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "themes",
		Short: "List, create and delete themes",
	}

	cmd.AddCommand(newThemesListCmd())
	cmd.AddCommand(newThemesCreateCmd())
	cmd.AddCommand(newThemesDeleteCmd())
	cmd.AddCommand(newThemesImagesCmd())
	return cmd
}

func newThemesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List themes with their image counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, _, err := openRepository()
			if err != nil {
				return err
			}
			themes, err := repo.ListThemes(cmd.Context())
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout())
			_, _ = fmt.Fprintln(tw, "NAME\tIMAGES\tCOVER")
			for _, t := range themes {
				_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", t.Name, t.ImageCount, t.Cover)
			}
			return tw.Flush()
		},
	}
}

func newThemesCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _, err := openRepository()
			if err != nil {
				return err
			}
			theme, err := repo.CreateTheme(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created theme %s\n", theme.Name)
			return nil
		},
	}
}

func newThemesDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a theme and all of its images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", args[0])
			}
			repo, _, err := openRepository()
			if err != nil {
				return err
			}
			if err := repo.DeleteTheme(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted theme %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func newThemesImagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "images NAME",
		Short: "List the images of a theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _, err := openRepository()
			if err != nil {
				return err
			}
			images, err := repo.ListImages(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout())
			_, _ = fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
			for _, img := range images {
				_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", img.Name, img.Size, img.ModTime.UTC().Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
}
