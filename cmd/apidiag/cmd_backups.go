// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/apidiag/pkg/ux"
)

var backupsKeep int

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Manage file backups created before injections",
}

// backupsListCmd shows the snapshots recorded for one file.
var backupsListCmd = &cobra.Command{
	Use:   "list <file>",
	Short: "List backups for a file, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		backups, err := svc.Backups().List(args[0])
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			ux.Muted("no backups for " + args[0])
			return nil
		}
		for _, b := range backups {
			fmt.Println(b)
		}
		return nil
	},
}

// backupsRestoreCmd rolls a file back to a snapshot.
var backupsRestoreCmd = &cobra.Command{
	Use:   "restore <file> [backup-path]",
	Short: "Restore a file from a backup (newest when unspecified)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		backupPath := ""
		if len(args) == 2 {
			backupPath = args[1]
		}
		ok, err := svc.Backups().Restore(args[0], backupPath)
		if err != nil {
			return err
		}
		if !ok {
			ux.Warning("no usable backup for " + args[0])
			return nil
		}
		ux.Success("restored " + args[0])
		return nil
	},
}

// backupsPruneCmd trims old snapshots.
//
// With a file argument only that file is pruned; without one, every
// file the integration injected into is pruned.
var backupsPruneCmd = &cobra.Command{
	Use:   "prune [file]",
	Short: "Delete all but the newest backups",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		var removed int
		if len(args) == 1 {
			removed, err = svc.Backups().Prune(args[0], backupsKeep)
		} else {
			removed, err = svc.PruneBackups(cmd.Context(), backupsKeep)
		}
		if err != nil {
			return err
		}
		ux.Success(fmt.Sprintf("pruned %d backup(s), kept up to %d per file", removed, backupsKeep))
		return nil
	},
}

func init() {
	backupsPruneCmd.Flags().IntVar(&backupsKeep, "keep", 5,
		"Number of backups to keep per file")

	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsRestoreCmd)
	backupsCmd.AddCommand(backupsPruneCmd)
}
