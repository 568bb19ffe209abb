// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diagnostics ties framework detection, code generation,
// injection, and log search into the project-level operations the CLI
// exposes: setup, removal, status, the monitoring toggle, and backup
// retention.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/apidiag/services/diagnostics/detect"
	"github.com/AleutianAI/apidiag/services/diagnostics/inject"
	"github.com/AleutianAI/apidiag/services/diagnostics/logsearch"
	"github.com/AleutianAI/apidiag/services/diagnostics/syntax"
	"github.com/AleutianAI/apidiag/services/diagnostics/templates"
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Root is the project directory. Required.
	Root string

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// ValidatorKinds are the file kinds syntax-validated after
	// injection. Defaults to python only.
	ValidatorKinds []string
}

// Service performs the project-level diagnostics operations.
//
// # Description
//
// Setup generates middleware and interceptor code under
// .api-diagnostics/generated/ and injects short wiring snippets into the
// project's entry files. Remove strips those snippets again. All file
// mutations go through the injection subsystem, so they are backed up,
// validated, and rolled back on failure.
//
// # Thread Safety
//
// Service is safe for concurrent use on distinct project roots.
// Operations on one root must be serialized by the caller.
type Service struct {
	root      string
	logger    *slog.Logger
	tracer    trace.Tracer
	backups   inject.BackupStore
	injector  *inject.Injector
	remover   *inject.Remover
	validator *syntax.Validator
}

// NewService creates a Service for a project root.
func NewService(cfg *ServiceConfig) (*Service, error) {
	if cfg == nil || cfg.Root == "" {
		return nil, fmt.Errorf("project root is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	vcfg := syntax.DefaultConfig()
	if len(cfg.ValidatorKinds) > 0 {
		vcfg.Kinds = cfg.ValidatorKinds
	}
	validator := syntax.NewValidator(vcfg)
	backups := inject.NewBackupStore()

	return &Service{
		root:      cfg.Root,
		logger:    logger,
		tracer:    otel.Tracer("apidiag.diagnostics"),
		backups:   backups,
		injector:  inject.NewInjector(backups, validator),
		remover:   inject.NewRemover(backups),
		validator: validator,
	}, nil
}

// SetupResult reports what Setup did.
type SetupResult struct {
	Project   *detect.ProjectInfo
	Generated []string
	Injected  []string
	Skipped   []string
}

// Setup initializes diagnostics in the project.
//
// # Description
//
// Detects frameworks when info is nil, writes the generated code files,
// injects wiring into the detected entry files, and saves the project
// config. Re-running is safe: the injection layer refuses duplicate
// blocks, so entry files already wired land in Skipped.
//
// # Inputs
//
//	ctx - Cancels detection.
//	info - Pre-detected project info, nil to auto-detect.
//
// # Outputs
//
//	*SetupResult - What was generated, injected, and skipped.
//	error - detect.ErrNoFramework when nothing is recognized, or an
//	        I/O failure.
func (s *Service) Setup(ctx context.Context, info *detect.ProjectInfo) (*SetupResult, error) {
	ctx, span := s.tracer.Start(ctx, "diagnostics.Setup",
		trace.WithAttributes(attribute.String("project.root", s.root)))
	defer span.End()

	if info == nil {
		detected, err := detect.Detect(ctx, s.root)
		if err != nil {
			return nil, err
		}
		info = detected
	}
	span.SetAttributes(
		attribute.String("project.type", info.Type),
		attribute.String("project.frontend", info.Frontend),
		attribute.String("project.backend", info.Backend),
	)
	s.logger.Info("detected project",
		"type", info.Type,
		"frontend", info.Frontend,
		"backend", info.Backend,
		"package_manager", info.PackageManager)

	result := &SetupResult{Project: info}

	genDir := GeneratedPath(s.root)
	if err := os.MkdirAll(genDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", genDir, err)
	}

	cfg := s.loadOrDefaultConfig()
	cfg.Frameworks = Frameworks{Frontend: info.Frontend, Backend: info.Backend}

	if info.Backend != "" {
		if err := s.setupBackend(info, genDir, cfg, result); err != nil {
			return nil, err
		}
	}
	if info.Frontend != "" {
		if err := s.setupFrontend(info, genDir, cfg, result); err != nil {
			return nil, err
		}
	}

	if err := SaveConfig(s.root, cfg); err != nil {
		return nil, err
	}

	s.logger.Info("setup complete",
		"generated", len(result.Generated),
		"injected", len(result.Injected),
		"skipped", len(result.Skipped))
	return result, nil
}

func (s *Service) loadOrDefaultConfig() *Config {
	cfg, err := LoadConfig(s.root)
	if err != nil {
		return DefaultProjectConfig()
	}
	return cfg
}

func (s *Service) setupBackend(info *detect.ProjectInfo, genDir string, cfg *Config, result *SetupResult) error {
	middleware, err := templates.BackendMiddleware(info.Backend)
	if err != nil {
		return err
	}
	mwPath := filepath.Join(genDir, templates.MiddlewareFile)
	if err := os.WriteFile(mwPath, []byte(middleware), 0644); err != nil {
		return fmt.Errorf("writing middleware: %w", err)
	}
	result.Generated = append(result.Generated, mwPath)

	if info.BackendEntry == "" {
		s.logger.Warn("no backend entry file found, middleware not wired", "backend", info.Backend)
		return nil
	}

	entryAbs := filepath.Join(s.root, info.BackendEntry)
	relGen, err := filepath.Rel(filepath.Dir(entryAbs), genDir)
	if err != nil {
		relGen = genDir
	}
	wiring, err := templates.BackendWiring(info.Backend, filepath.ToSlash(relGen))
	if err != nil {
		return err
	}

	// The wiring references the app object, so it goes after everything
	// that defines it.
	changed, err := s.injector.Inject(entryAbs, wiring, inject.PositionBottom, inject.Options{})
	if err != nil {
		return fmt.Errorf("injecting backend wiring: %w", err)
	}
	if changed {
		result.Injected = append(result.Injected, info.BackendEntry)
	} else {
		result.Skipped = append(result.Skipped, info.BackendEntry)
	}
	cfg.Targets.BackendEntry = info.BackendEntry
	return nil
}

func (s *Service) setupFrontend(info *detect.ProjectInfo, genDir string, cfg *Config, result *SetupResult) error {
	interceptor, err := templates.FrontendInterceptor(info.Frontend)
	if err != nil {
		return err
	}
	icPath := filepath.Join(genDir, templates.InterceptorFile)
	if err := os.WriteFile(icPath, []byte(interceptor), 0644); err != nil {
		return fmt.Errorf("writing interceptor: %w", err)
	}
	result.Generated = append(result.Generated, icPath)

	if info.FrontendEntry == "" {
		s.logger.Warn("no frontend entry file found, interceptor not wired", "frontend", info.Frontend)
		return nil
	}

	entryAbs := filepath.Join(s.root, info.FrontendEntry)
	relIC, err := filepath.Rel(filepath.Dir(entryAbs), icPath)
	if err != nil {
		relIC = icPath
	}
	importPath := filepath.ToSlash(relIC)
	if !strings.HasPrefix(importPath, ".") {
		importPath = "./" + importPath
	}

	changed, err := s.injector.Inject(entryAbs, templates.FrontendWiring(importPath), inject.PositionAfterImports, inject.Options{})
	if err != nil {
		return fmt.Errorf("injecting frontend wiring: %w", err)
	}
	if changed {
		result.Injected = append(result.Injected, info.FrontendEntry)
	} else {
		result.Skipped = append(result.Skipped, info.FrontendEntry)
	}
	cfg.Targets.FrontendEntry = info.FrontendEntry
	return nil
}

// RemoveResult reports what Remove did.
type RemoveResult struct {
	Cleaned []string
	Purged  bool
}

// Remove strips the injected wiring from the project.
//
// With purge set the whole .api-diagnostics directory, including
// generated code and config, is deleted afterwards. Entry files that no
// longer carry the marker are skipped silently.
func (s *Service) Remove(ctx context.Context, purge bool) (*RemoveResult, error) {
	_, span := s.tracer.Start(ctx, "diagnostics.Remove",
		trace.WithAttributes(
			attribute.String("project.root", s.root),
			attribute.Bool("purge", purge)))
	defer span.End()

	cfg, err := LoadConfig(s.root)
	if err != nil {
		return nil, err
	}

	result := &RemoveResult{}
	for _, target := range []string{cfg.Targets.BackendEntry, cfg.Targets.FrontendEntry} {
		if target == "" {
			continue
		}
		removed, err := s.remover.Remove(filepath.Join(s.root, target), inject.Options{})
		if err != nil {
			return nil, fmt.Errorf("cleaning %s: %w", target, err)
		}
		if removed {
			result.Cleaned = append(result.Cleaned, target)
		}
	}

	if purge {
		if err := os.RemoveAll(filepath.Join(s.root, StateDir)); err != nil {
			return nil, fmt.Errorf("removing state directory: %w", err)
		}
		result.Purged = true
	} else {
		cfg.Targets = Targets{}
		cfg.Enabled = false
		if err := SaveConfig(s.root, cfg); err != nil {
			return nil, err
		}
	}

	s.logger.Info("integration removed", "cleaned", len(result.Cleaned), "purged", purge)
	return result, nil
}

// StatusInfo is a point-in-time view of the integration in a project.
type StatusInfo struct {
	Initialized bool
	Enabled     bool
	LogLevel    string
	LogPath     string
	LogExists   bool
	Frameworks  Frameworks
	Injected    []string
	Backups     map[string]int
}

// Status inspects the project without modifying it.
//
// A missing config yields Initialized false and no error; everything
// else reflects the config plus a live check of which entry files still
// carry the injection marker.
func (s *Service) Status(ctx context.Context) (*StatusInfo, error) {
	_, span := s.tracer.Start(ctx, "diagnostics.Status",
		trace.WithAttributes(attribute.String("project.root", s.root)))
	defer span.End()

	cfg, err := LoadConfig(s.root)
	if errors.Is(err, ErrNotInitialized) {
		return &StatusInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	info := &StatusInfo{
		Initialized: true,
		Enabled:     cfg.Enabled,
		LogLevel:    cfg.LogLevel,
		LogPath:     cfg.ResolveLogPath(s.root),
		Frameworks:  cfg.Frameworks,
		Backups:     make(map[string]int),
	}
	if _, err := os.Stat(info.LogPath); err == nil {
		info.LogExists = true
	}

	for _, target := range []string{cfg.Targets.BackendEntry, cfg.Targets.FrontendEntry} {
		if target == "" {
			continue
		}
		abs := filepath.Join(s.root, target)
		data, err := os.ReadFile(abs)
		if err == nil && inject.ContainsMarker(string(data), inject.DefaultMarker) {
			info.Injected = append(info.Injected, target)
		}
		backups, err := s.backups.List(abs)
		if err == nil && len(backups) > 0 {
			info.Backups[target] = len(backups)
		}
	}
	return info, nil
}

// SetEnabled flips the monitoring toggle and persists it.
//
// Backs the start and stop commands. Returns the previous value.
func (s *Service) SetEnabled(ctx context.Context, enabled bool) (bool, error) {
	_, span := s.tracer.Start(ctx, "diagnostics.SetEnabled",
		trace.WithAttributes(attribute.Bool("enabled", enabled)))
	defer span.End()

	cfg, err := LoadConfig(s.root)
	if err != nil {
		return false, err
	}
	previous := cfg.Enabled
	cfg.Enabled = enabled
	if err := SaveConfig(s.root, cfg); err != nil {
		return previous, err
	}

	s.logger.Info("monitoring toggled", "enabled", enabled, "was", previous)
	return previous, nil
}

// Searcher builds a log searcher over the project's configured log file.
func (s *Service) Searcher() (*logsearch.Searcher, error) {
	cfg, err := LoadConfig(s.root)
	if err != nil {
		return nil, err
	}
	return logsearch.NewSearcher(logsearch.DefaultConfig(cfg.ResolveLogPath(s.root))), nil
}

// LogPath returns the project's resolved log file location.
func (s *Service) LogPath() (string, error) {
	cfg, err := LoadConfig(s.root)
	if err != nil {
		return "", err
	}
	return cfg.ResolveLogPath(s.root), nil
}

// PruneBackups trims each injected target's backups to the keep newest
// and returns the total number deleted.
func (s *Service) PruneBackups(ctx context.Context, keep int) (int, error) {
	_, span := s.tracer.Start(ctx, "diagnostics.PruneBackups",
		trace.WithAttributes(attribute.Int("keep", keep)))
	defer span.End()

	cfg, err := LoadConfig(s.root)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, target := range []string{cfg.Targets.BackendEntry, cfg.Targets.FrontendEntry} {
		if target == "" {
			continue
		}
		removed, err := s.backups.Prune(filepath.Join(s.root, target), keep)
		if err != nil {
			return total, err
		}
		total += removed
	}

	s.logger.Info("backups pruned", "removed", total, "keep", keep)
	return total, nil
}

// Backups exposes the backup store for the CLI's backup subcommands.
func (s *Service) Backups() inject.BackupStore {
	return s.backups
}

// Root returns the project directory the service operates on.
func (s *Service) Root() string {
	return s.root
}
