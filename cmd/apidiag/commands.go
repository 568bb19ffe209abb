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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/apidiag/pkg/ux"
	"github.com/AleutianAI/apidiag/services/diagnostics"
)

var flagProject string

var rootCmd = &cobra.Command{
	Use:   "apidiag",
	Short: "Debug API calls with correlation tracking",
	Long: `apidiag wires correlation-ID tracking into a web project.

It detects the project's frameworks, generates logging middleware and a
fetch interceptor, and injects small wiring snippets into the entry
files. Every modified file is backed up first and restored on any
failure. Once running, search the project's API logs by the correlation
ID shown in the browser console.

Examples:
  apidiag init                 # Set up diagnostics in the current project
  apidiag status               # Show what is injected and enabled
  apidiag search 550e8400      # Find backend logs for a request
  apidiag clean                # Remove everything apidiag added`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setupRuntime,
	PersistentPostRunE: teardownRuntime,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", ".",
		"Project directory to operate on")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false,
		"Suppress log output")
	rootCmd.PersistentFlags().BoolVar(&flagTrace, "trace", false,
		"Print operation trace spans to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagPlain, "plain", false,
		"Disable styled output")

	cobra.OnInitialize(func() {
		if flagPlain {
			ux.SetPlain(true)
		}
	})

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(backupsCmd)
}

// newService builds the diagnostics service for the selected project.
func newService() (*diagnostics.Service, error) {
	return diagnostics.NewService(&diagnostics.ServiceConfig{
		Root:   flagProject,
		Logger: logger.Slog(),
	})
}
