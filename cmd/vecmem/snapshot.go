// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/orch-mind/vecmem/internal/config"
	"github.com/orch-mind/vecmem/internal/snapshot"
	"github.com/orch-mind/vecmem/internal/store"
	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write every stored vector to a compressed snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetInt("level")
			if level < 1 || level > 22 {
				return vmerr.Errorf(vmerr.CodeCLIInputInvalid, "--level must be between 1 and 22, got %d", level)
			}
			return a.withStore(cmd, func(ctx context.Context, vs store.VectorStore, cfg *config.Config) error {
				return runExport(ctx, cmd, vs, cfg, args[0], level)
			})
		},
	}

	cmd.Flags().Int("level", 3, "zstd compression level (1-22)")

	return cmd
}

func runExport(ctx context.Context, cmd *cobra.Command, vs store.VectorStore, cfg *config.Config, path string, level int) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return vmerr.Wrap(err, vmerr.CodeSnapshotWriteFailure, "creating snapshot directory", vmerr.FieldPath(dir))
		}
	}

	// Write to a sibling temp file so a failed export never truncates an
	// existing snapshot.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".vecmem-export-*")
	if err != nil {
		return vmerr.Wrap(err, vmerr.CodeSnapshotWriteFailure, "creating snapshot", vmerr.FieldPath(path))
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := snapshot.Export(ctx, vs, tmp, cfg.Storage.Dimensions, snapshot.WithLevel(level))
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = vmerr.Wrap(cerr, vmerr.CodeSnapshotWriteFailure, "closing snapshot")
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return vmerr.Wrap(err, vmerr.CodeSnapshotWriteFailure, "finalizing snapshot", vmerr.FieldPath(path))
	}

	size := "unknown size"
	if info, err := os.Stat(path); err == nil {
		size = humanize.IBytes(uint64(info.Size()))
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("exported %d vector(s) to %s (%s)", n, path, size)))
	return err
}

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load vectors from a snapshot",
		Long: "Records are validated like any other save, so a snapshot taken at one " +
			"dimensionality can be imported into a store configured for another.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return vmerr.Wrap(err, vmerr.CodeSnapshotReadFailure, "opening snapshot", vmerr.FieldPath(args[0]))
			}
			defer f.Close()

			return a.withStore(cmd, func(ctx context.Context, vs store.VectorStore, cfg *config.Config) error {
				res, err := snapshot.Import(ctx, vs, f, cfg.Storage.BatchSize)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(
					fmt.Sprintf("imported %d of %d record(s), skipped %d", res.Saved, res.Read, res.Skipped)))
				return err
			})
		},
	}

	return cmd
}
