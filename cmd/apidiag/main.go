// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// apidiag debugs API calls between frontends and backends with
// correlation tracking: it injects logging middleware into a project,
// toggles monitoring, and searches the resulting logs by correlation ID.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AleutianAI/apidiag/pkg/logging"
)

var (
	flagDebug bool
	flagQuiet bool
	flagTrace bool
	flagPlain bool

	logger         *logging.Logger
	tracerProvider *sdktrace.TracerProvider
)

func main() {
	// Interrupt cancels the command context so long-running commands
	// (search --follow) unwind cleanly and the PostRun teardown still
	// flushes traces and closes the log file.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func setupRuntime(cmd *cobra.Command, args []string) error {
	level := logging.LevelWarn
	if flagDebug {
		level = logging.LevelDebug
	}
	logger = logging.New(logging.Config{Level: level, Quiet: flagQuiet})

	if flagTrace {
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return err
		}
		tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		otel.SetTracerProvider(tracerProvider)
	}
	return nil
}

func teardownRuntime(cmd *cobra.Command, args []string) error {
	if tracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}
	return logger.Close()
}
