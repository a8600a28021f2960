// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/orch-mind/vecmem/internal/config"
	"github.com/orch-mind/vecmem/internal/store"
	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

// --- lipgloss styles ---

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

const previewWidth = 60

func newSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save <file|->",
		Short: "Save records from a JSON, JSON lines, or YAML file",
		Long: "Read records with id, embedding, and metadata fields and upsert them. " +
			"Records without an id get a random UUID; invalid embeddings are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := openRecords(cmd, args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, vs store.VectorStore, _ *config.Config) error {
				res, err := vs.SaveVectors(ctx, records)
				w := cmd.OutOrStdout()
				if err != nil {
					fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("saved %d, skipped %d: %s", res.Saved, res.Skipped, res.Error)))
					return err
				}
				_, err = fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("saved %d, skipped %d", res.Saved, res.Skipped)))
				return err
			})
		},
	}
}

func openRecords(cmd *cobra.Command, name string) ([]store.VectorRecord, error) {
	if name == "-" {
		return readRecords("stdin", cmd.InOrStdin())
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, vmerr.Wrap(err, vmerr.CodeCLIInputInvalid, "opening records", vmerr.FieldPath(name))
	}
	defer f.Close()
	return readRecords(name, f)
}

func newQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <embedding>",
		Short: "Find the stored vectors most similar to an embedding",
		Long: "The embedding is given as comma-separated numbers or a JSON array. " +
			"Without --threshold the cutoff is derived from the keywords, filters, and top-k. " +
			"Put -- before an embedding that starts with a minus sign.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vec, err := parseEmbedding(args[0])
			if err != nil {
				return err
			}
			opts, err := queryOptions(cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			return a.withStore(cmd, func(ctx context.Context, vs store.VectorStore, _ *config.Config) error {
				res := vs.QueryVectors(ctx, vec, opts)
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(res)
				}
				return printMatches(cmd.OutOrStdout(), res)
			})
		},
	}

	cmd.Flags().IntP("top-k", "k", 0, "maximum matches (0 uses search.top_k)")
	cmd.Flags().StringSlice("keyword", nil, "keyword matched against searchable metadata fields (repeatable)")
	cmd.Flags().StringToString("filter", nil, "metadata equality filter as field=value (repeatable)")
	cmd.Flags().Float64("threshold", -1, "similarity cutoff in [0,1]; negative lets vecmem decide")
	cmd.Flags().Bool("json", false, "print the raw result as JSON")

	return cmd
}

func queryOptions(cmd *cobra.Command) (store.QueryOptions, error) {
	topK, _ := cmd.Flags().GetInt("top-k")
	keywords, _ := cmd.Flags().GetStringSlice("keyword")
	filters, _ := cmd.Flags().GetStringToString("filter")
	threshold, _ := cmd.Flags().GetFloat64("threshold")

	if topK < 0 {
		return store.QueryOptions{}, vmerr.Errorf(vmerr.CodeCLIInputInvalid, "--top-k must not be negative, got %d", topK)
	}
	if threshold > 1 {
		return store.QueryOptions{}, vmerr.Errorf(vmerr.CodeCLIInputInvalid, "--threshold must be at most 1, got %g", threshold)
	}

	opts := store.QueryOptions{TopK: topK, Keywords: keywords}
	if len(filters) > 0 {
		opts.Filters = make(map[string]any, len(filters))
		for k, v := range filters {
			opts.Filters[k] = filterValue(v)
		}
	}
	if threshold >= 0 {
		opts.Threshold = &threshold
	}
	return opts, nil
}

// filterValue lets numbers and booleans match typed metadata values.
func filterValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		switch v.(type) {
		case float64, bool:
			return v
		}
	}
	return s
}

func printMatches(w io.Writer, res store.QueryResult) error {
	header := fmt.Sprintf("%d match(es)", len(res.Matches))
	if res.Strategy != "" {
		header += dimStyle.Render(fmt.Sprintf("  strategy=%s threshold=%.2f", res.Strategy, res.Threshold))
	}
	if _, err := fmt.Fprintln(w, titleStyle.Render(header)); err != nil {
		return err
	}

	for i, m := range res.Matches {
		line := fmt.Sprintf("%3d. %s %s", i+1, scoreStyle.Render(fmt.Sprintf("%.4f", m.Score)), idStyle.Render(m.ID))
		if preview := metadataPreview(m.Metadata); preview != "" {
			line += "  " + dimStyle.Render(preview)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// metadataPreview shows the content field when present, otherwise the JSON.
func metadataPreview(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	var s string
	if content, ok := meta["content"].(string); ok {
		s = content
	} else {
		b, err := json.Marshal(meta)
		if err != nil {
			return ""
		}
		s = string(b)
	}
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > previewWidth {
		s = string(r[:previewWidth-1]) + "…"
	}
	return s
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored vectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, vs store.VectorStore, _ *config.Config) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), vs.GetVectorCount(ctx))
				return err
			})
		},
	}
}

func newExistsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <id>...",
		Short: "Print which of the given ids are stored",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, vs store.VectorStore, _ *config.Config) error {
				existing, err := vs.CheckExistingIDs(ctx, args)
				if err != nil {
					return err
				}
				for _, id := range existing {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newPurgeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every stored vector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return vmerr.New(vmerr.CodeCLIConfirmationRequired, "purge deletes every stored vector; rerun with --yes")
			}
			return a.withStore(cmd, func(ctx context.Context, vs store.VectorStore, _ *config.Config) error {
				n := vs.GetVectorCount(ctx)
				if err := vs.DeleteAllVectors(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("deleted %d vector(s)", n)))
				return err
			})
		},
	}

	cmd.Flags().Bool("yes", false, "confirm deletion")

	return cmd
}
