package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/autoanswer/pkg/cache"
	"github.com/entrhq/autoanswer/pkg/types"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the answer cache",
	}
	cmd.AddCommand(
		cacheStatsCmd(),
		cacheBackupCmd(),
		cacheRestoreCmd(),
		cacheCleanupCmd(),
		cacheImportCmd(),
		cacheVerifyCmd(),
	)
	return cmd
}

// withStore runs fn against the configured cache and closes it afterwards.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, a *app, store *cache.Store) error) error {
	a, err := setup(cmd, "cache")
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	store, err := a.openStore(ctx, types.NopObserver{})
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, a, store)
}

func cacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(_ context.Context, _ *app, store *cache.Store) error {
				fmt.Fprintln(cmd.OutOrStdout(), renderCacheStats(store.Stats()))
				return nil
			})
		},
	}
}

func cacheBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a JSON snapshot of every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, _ := cmd.Flags().GetString("output")
			return withStore(cmd, func(ctx context.Context, _ *app, store *cache.Store) error {
				var err error
				if out != "" {
					err = store.BackupTo(ctx, out)
				} else {
					err = store.Backup(ctx)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("backed up %d entries", store.Len())))
				return nil
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "Snapshot path (default: next to the cache database)")
	return cmd
}

func cacheRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Merge a JSON snapshot into the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, _ := cmd.Flags().GetString("input")
			return withStore(cmd, func(ctx context.Context, _ *app, store *cache.Store) error {
				var (
					n   int
					err error
				)
				if in != "" {
					n, err = store.RestoreFrom(ctx, in)
				} else {
					n, err = store.Restore(ctx)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("restored %d entries", n)))
				return nil
			})
		},
	}
	cmd.Flags().StringP("input", "i", "", "Snapshot path (default: next to the cache database)")
	return cmd
}

func cacheCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired entries and evict down to capacity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, _ *app, store *cache.Store) error {
				report, err := store.Cleanup(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(
					fmt.Sprintf("removed %d expired and %d evicted entries", report.Expired, report.Evicted)))
				return nil
			})
		},
	}
}

// seedEntry is one answer in an import file.
type seedEntry struct {
	Unit       string  `yaml:"unit"`
	Task       string  `yaml:"task"`
	SubTask    string  `yaml:"sub_task"`
	Type       string  `yaml:"type"`
	Question   string  `yaml:"question"`
	Answer     string  `yaml:"answer"`
	Confidence float64 `yaml:"confidence"`
}

// readSeedFile parses a YAML list of seed entries.
func readSeedFile(path string) ([]seedEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seeds []seedEntry
	if err := yaml.Unmarshal(raw, &seeds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, s := range seeds {
		if strings.TrimSpace(s.Question) == "" || strings.TrimSpace(s.Answer) == "" {
			return nil, fmt.Errorf("entry %d: question and answer are required", i+1)
		}
	}
	return seeds, nil
}

func (s seedEntry) question() types.QuestionInfo {
	return types.QuestionInfo{
		Type:    types.ParseQuestionType(s.Type),
		Text:    s.Question,
		Unit:    s.Unit,
		Task:    s.Task,
		SubTask: s.SubTask,
	}
}

func cacheImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Seed the cache from a YAML list of known answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seeds, err := readSeedFile(args[0])
			if err != nil {
				return err
			}
			verified, _ := cmd.Flags().GetBool("verified")
			return withStore(cmd, func(ctx context.Context, _ *app, store *cache.Store) error {
				for _, s := range seeds {
					confidence := s.Confidence
					if confidence == 0 {
						confidence = cache.MaxConfidence
					}
					id, err := store.PutWithMetadata(ctx, s.question(), s.Answer, confidence,
						map[string]any{"source": "import"})
					if err != nil && !cache.IsStorageError(err) {
						return err
					}
					if verified {
						store.Verify(ctx, id, true)
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("imported %d entries", len(seeds))))
				return nil
			})
		},
	}
	cmd.Flags().Bool("verified", false, "Mark imported answers as verified")
	return cmd
}

func cacheVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify ID",
		Short: "Record manual feedback for a cached answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			correct, _ := cmd.Flags().GetBool("correct")
			incorrect, _ := cmd.Flags().GetBool("incorrect")
			if correct == incorrect {
				return fmt.Errorf("pass exactly one of --correct or --incorrect")
			}
			return withStore(cmd, func(ctx context.Context, _ *app, store *cache.Store) error {
				if !store.Verify(ctx, args[0], correct) {
					return fmt.Errorf("no cached answer with id %s", args[0])
				}
				e, _ := store.Entry(args[0])
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(
					fmt.Sprintf("%s confidence is now %.2f", e.ID, e.Confidence)))
				return nil
			})
		},
	}
	cmd.Flags().Bool("correct", false, "The cached answer was right")
	cmd.Flags().Bool("incorrect", false, "The cached answer was wrong")
	return cmd
}

func renderCacheStats(st cache.Stats) string {
	lines := []string{
		titleStyle.Render("Answer cache"),
		row("backend", st.Backend),
		row("entries", st.TotalEntries),
		row("verified", fmt.Sprintf("%d (%.1f%%)", st.VerifiedEntries, st.VerificationRate*100)),
		row("average confidence", fmt.Sprintf("%.2f", st.AverageConfidence)),
		row("total accesses", st.TotalAccesses),
	}
	if !st.LastBackup.IsZero() {
		lines = append(lines, row("last backup", st.LastBackup.Format("2006-01-02 15:04:05")))
	}
	for _, t := range types.QuestionTypes {
		if n := st.ByType[t]; n > 0 {
			lines = append(lines, row("  "+t.String(), n))
		}
	}
	units := make([]string, 0, len(st.ByUnit))
	for u := range st.ByUnit {
		units = append(units, u)
	}
	sort.Strings(units)
	for _, u := range units {
		label := u
		if label == "" {
			label = "(no unit)"
		}
		lines = append(lines, row("  "+label, st.ByUnit[u]))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
