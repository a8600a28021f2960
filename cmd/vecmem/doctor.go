// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/orch-mind/vecmem/internal/config"
	"github.com/orch-mind/vecmem/internal/store"
)

func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the configuration, database, vector extension, file permissions, and disk space.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, a)
		},
	}
}

type check struct {
	name string
	fn   func() string
}

func runDoctor(cmd *cobra.Command, a *app) error {
	w := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, cfgErr := a.config()
	checks := []check{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", func() string { return checkConfig(a, cfgErr) }},
	}
	if cfg != nil {
		st := storeStatus(ctx, cfg)
		checks = append(checks,
			check{"Database", func() string { return checkDatabase(st) }},
			check{"Vector Extension", func() string { return checkExtension(cfg, st) }},
			check{"Permissions", func() string { return checkPermissions(st.Path) }},
			check{"Disk Space", func() string { return checkDiskSpace(cfg.DataDir) }},
		)
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("vecmem %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(a *app, err error) string {
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("invalid: %s", err))
	}
	if cfgFile := a.v.ConfigFileUsed(); cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

// storeStatus opens the store just long enough to describe it.
func storeStatus(ctx context.Context, cfg *config.Config) store.Status {
	vs, err := store.NewVectorStore(cfg.StoreConfig())
	if err != nil {
		return store.Status{Dimensions: cfg.Storage.Dimensions}
	}
	defer func() { _ = vs.Close() }()
	_ = vs.Initialize(ctx)
	return vs.Status(ctx)
}

func checkDatabase(st store.Status) string {
	if !st.Ready {
		return errorStyle.Render(fmt.Sprintf("unavailable at %s", st.Path))
	}
	return fmt.Sprintf("%d vector(s), %d dimensions, at %s", st.Count, st.Dimensions, st.Path)
}

func checkExtension(cfg *config.Config, st store.Status) string {
	ladder := "search order: " + strings.Join(st.Strategies, " > ")
	switch {
	case !cfg.Storage.Extension:
		return "disabled in config; " + ladder
	case st.ExtensionAvailable:
		return "sqlite-vec loaded; " + ladder
	default:
		return "sqlite-vec not available, distance search skipped; " + ladder
	}
}

func checkPermissions(path string) string {
	if path == "" {
		return "unknown database path"
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}
	if config.WarnInsecurePermissions(path) {
		return errorStyle.Render(fmt.Sprintf("%s is readable by other users (chmod 600 recommended)", info.Mode().Perm()))
	}
	return fmt.Sprintf("%s ok", info.Mode().Perm())
}

func checkDiskSpace(dataDir string) string {
	path := dataDir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Fall back to home directory if data dir doesn't exist yet.
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return humanize.IBytes(availBytes) + " available"
}
