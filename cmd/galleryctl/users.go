// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/olegiv/neongallery/internal/auth"
	"github.com/olegiv/neongallery/internal/service"
	"github.com/olegiv/neongallery/internal/store"
)

// NewUsersCmd creates the users command.
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users and manage admin rights",
	}

	cmd.AddCommand(newUsersListCmd())
	cmd.AddCommand(newUsersAdminCmd("promote", "Grant admin rights to a user", true))
	cmd.AddCommand(newUsersAdminCmd("demote", "Revoke admin rights from a user", false))
	return cmd
}

func newUsersListCmd() *cobra.Command {
	var limit, offset int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			users, err := store.New(db).ListUsers(cmd.Context(), store.ListUsersParams{Limit: limit, Offset: offset})
			if err != nil {
				return fmt.Errorf("listing users: %w", err)
			}

			tw := newTable(cmd.OutOrStdout())
			_, _ = fmt.Fprintln(tw, "ID\tUSERNAME\tPHONE\tWECHAT\tADMIN")
			for _, u := range users {
				phone := "-"
				if u.Phone.Valid {
					phone = auth.MaskPhone(u.Phone.String)
				}
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%t\n", u.ID, u.Username, phone, u.WechatID.Valid, u.IsAdmin)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int64Var(&limit, "limit", 50, "maximum number of users")
	cmd.Flags().Int64Var(&offset, "offset", 0, "number of users to skip")
	return cmd
}

func newUsersAdminCmd(use, short string, isAdmin bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID|USERNAME|PHONE",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			user, err := service.NewAccounts(db, nil).SetAdmin(cmd.Context(), args[0], isAdmin)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) admin=%t\n", user.ID, user.Username, user.IsAdmin)
			return nil
		},
	}
}
