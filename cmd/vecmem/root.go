// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/orch-mind/vecmem/internal/config"
	"github.com/orch-mind/vecmem/internal/store"
	_ "github.com/orch-mind/vecmem/internal/store/sqlite" // register sqlite backend
	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

// app carries state shared by every subcommand of one root command.
type app struct {
	v *viper.Viper
}

// NewRootCmd creates the root vecmem command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "vecmem",
		Short:         "vecmem: embedded vector memory",
		Long:          "vecmem stores embeddings with metadata in a local SQLite file and answers similarity queries.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initViper(cmd)
		},
	}

	// Global flags, mapped to viper keys by initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newServeCmd(a),
		newSaveCmd(a),
		newQueryCmd(a),
		newCountCmd(a),
		newExistsCmd(a),
		newPurgeCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newDoctorCmd(a),
		newVersionCmd(),
	)

	return root
}

// initViper sets up defaults, env bindings, flag bindings, and the optional
// config file so the standard precedence (flag > env > file > defaults) is
// handled uniformly.
func (a *app) initViper(cmd *cobra.Command) error {
	v := a.v

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return vmerr.Errorf(vmerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is left unset: with it, viper also tries the bare
		// name, which collides with a ./vecmem binary.
		v.SetConfigName("vecmem")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/vecmem")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return vmerr.Errorf(vmerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return vmerr.Errorf(vmerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	if err := v.BindPFlag("data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return vmerr.Errorf(vmerr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return vmerr.Errorf(vmerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	level := slog.LevelInfo
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	if used := v.ConfigFileUsed(); used != "" {
		config.WarnInsecurePermissions(used)
	}
	return nil
}

// config decodes and validates the resolved configuration.
func (a *app) config() (*config.Config, error) {
	return config.FromViper(a.v)
}

// openStore builds and initializes the configured vector store. The caller
// closes it.
func (a *app) openStore(ctx context.Context) (store.VectorStore, *config.Config, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}

	vs, err := store.NewVectorStore(cfg.StoreConfig())
	if err != nil {
		return nil, nil, err
	}
	if err := vs.Initialize(ctx); err != nil {
		_ = vs.Close()
		return nil, nil, err
	}
	config.WarnInsecurePermissions(vs.Status(ctx).Path)
	return vs, cfg, nil
}

// withStore runs fn against an open store and closes it afterwards.
func (a *app) withStore(cmd *cobra.Command, fn func(ctx context.Context, vs store.VectorStore, cfg *config.Config) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	vs, cfg, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := vs.Close(); err != nil {
			slog.Warn("closing vector store", "error", err)
		}
	}()
	return fn(ctx, vs, cfg)
}
