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
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/apidiag/pkg/ux"
	"github.com/AleutianAI/apidiag/services/diagnostics/detect"
)

var initAuto bool

// initCmd sets up diagnostics in a project.
//
// # Description
//
// Detects the project's frameworks, shows what will be generated and
// injected, and asks for confirmation before touching any file. The
// confirmation is skipped with --yes or when not running in a terminal.
//
// # Examples
//
//	apidiag init            # Detect, confirm, set up
//	apidiag init --yes      # Set up without asking
//	apidiag init -p ./app   # Operate on another directory
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up API diagnostics in a project",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initAuto, "yes", "y", false,
		"Skip the confirmation prompt")
}

func runInit(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	info, err := detect.Detect(cmd.Context(), svc.Root())
	if errors.Is(err, detect.ErrNoFramework) {
		ux.Error("no supported framework found (looked for React, FastAPI, Flask)")
		return err
	}
	if err != nil {
		return err
	}

	ux.Title("Detected project")
	ux.KeyValue("type", info.Type)
	if info.Frontend != "" {
		ux.KeyValue("frontend", fmt.Sprintf("%s (%s)", info.Frontend, orNone(info.FrontendEntry)))
	}
	if info.Backend != "" {
		ux.KeyValue("backend", fmt.Sprintf("%s (%s)", info.Backend, orNone(info.BackendEntry)))
	}

	if !initAuto && ux.Interactive() {
		proceed := false
		confirm := huh.NewConfirm().
			Title("Inject diagnostics wiring into the files above?").
			Description("Backups are created before every change.").
			Value(&proceed)
		if err := confirm.Run(); err != nil {
			return err
		}
		if !proceed {
			ux.Muted("aborted")
			return nil
		}
	}

	result, err := svc.Setup(cmd.Context(), info)
	if err != nil {
		ux.Error(fmt.Sprintf("setup failed: %v", err))
		return err
	}

	for _, g := range result.Generated {
		ux.Info("generated " + g)
	}
	for _, f := range result.Injected {
		ux.Success("injected " + f)
	}
	for _, f := range result.Skipped {
		ux.Muted("already wired: " + f)
	}
	if logPath, err := svc.LogPath(); err == nil {
		ux.Success("diagnostics ready, API logs will land in " + logPath)
	} else {
		ux.Success("diagnostics ready")
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "no entry file"
	}
	return s
}
