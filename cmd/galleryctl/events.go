// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegiv/neongallery/internal/store"
)

// NewEventsCmd creates the events command.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect and prune the event log",
	}

	cmd.AddCommand(newEventsListCmd())
	cmd.AddCommand(newEventsPruneCmd())
	return cmd
}

func newEventsListCmd() *cobra.Command {
	var (
		level, category string
		limit           int64
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the newest events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			events, err := store.New(db).ListEvents(cmd.Context(), store.ListEventsParams{
				Level:    level,
				Category: category,
				Limit:    limit,
			})
			if err != nil {
				return fmt.Errorf("listing events: %w", err)
			}

			tw := newTable(cmd.OutOrStdout())
			_, _ = fmt.Fprintln(tw, "TIME\tLEVEL\tCATEGORY\tMESSAGE")
			for _, e := range events {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.CreatedAt.UTC().Format(time.RFC3339), e.Level, e.Category, e.Message)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "only events of this level")
	cmd.Flags().StringVar(&category, "category", "", "only events of this category")
	cmd.Flags().Int64Var(&limit, "limit", 20, "maximum number of events")
	return cmd
}

func newEventsPruneCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete events older than --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			n, err := store.New(db).DeleteEventsBefore(cmd.Context(), time.Now().Add(-time.Duration(days)*24*time.Hour))
			if err != nil {
				return fmt.Errorf("pruning events: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d events\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "keep events newer than this many days")
	return cmd
}
