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
	"errors"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/apidiag/pkg/ux"
	"github.com/AleutianAI/apidiag/services/diagnostics"
)

var cleanKeepState bool

// cleanCmd removes everything apidiag added to the project.
//
// # Examples
//
//	apidiag clean               # Strip wiring and delete .api-diagnostics
//	apidiag clean --keep-state  # Strip wiring, keep config and backups metadata
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all injected code from the project",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanKeepState, "keep-state", false,
		"Keep the .api-diagnostics directory (config and generated code)")
}

func runClean(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	result, err := svc.Remove(cmd.Context(), !cleanKeepState)
	if errors.Is(err, diagnostics.ErrNotInitialized) {
		ux.Muted("nothing to clean, project is not initialized")
		return nil
	}
	if err != nil {
		return err
	}

	for _, f := range result.Cleaned {
		ux.Success("cleaned " + f)
	}
	if len(result.Cleaned) == 0 {
		ux.Muted("no injected wiring found")
	}
	if result.Purged {
		ux.Success("removed " + diagnostics.StateDir + "/")
	}
	return nil
}
