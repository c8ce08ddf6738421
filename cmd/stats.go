package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/livesnap/internal/embeddings"
	"github.com/pders01/livesnap/internal/models"
	"github.com/pders01/livesnap/internal/project"
	"github.com/spf13/cobra"
)

var (
	statsJSON bool
	statsToon bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show version history statistics",
	Long: `Display statistics about the project's history including:
  - Total version count
  - Versions by author
  - Restores and auto-saves
  - Timeline distribution
  - Embedding coverage

Examples:
  livesnap stats
  livesnap stats --json
  livesnap stats --toon`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	statsCmd.Flags().BoolVar(&statsToon, "toon", false, "Output in LLM-friendly toon format")
}

// statsDepth bounds how much history stats reads
const statsDepth = 10000

type historyStats struct {
	TotalVersions     int             `json:"total_versions"`
	Restores          int             `json:"restores"`
	AutoSaves         int             `json:"auto_saves"`
	WithEmbeddings    int             `json:"with_embeddings"`
	WithoutEmbeddings int             `json:"without_embeddings"`
	OldestVersion     *time.Time      `json:"oldest_version,omitempty"`
	NewestVersion     *time.Time      `json:"newest_version,omitempty"`
	ByAuthor          []authorStat    `json:"by_author"`
	DailyActivity     []dailyActivity `json:"daily_activity"`
}

type authorStat struct {
	Author string `json:"author"`
	Count  int    `json:"count"`
}

type dailyActivity struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

func runStats(cmd *cobra.Command, args []string) error {
	h, err := openProject(false)
	if err != nil {
		return err
	}

	snaps, err := newServices().snapshots.List(commandContext(cmd), h, statsDepth)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintln(out, "No versions found")
		return nil
	}

	stats := computeStats(snaps, embeddingChecker(h))

	if statsJSON {
		output, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if statsToon {
		output, err := gotoon.Encode(stats)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Fprintln(out, output)
		return nil
	}

	fmt.Fprintln(out, "Version Statistics")
	fmt.Fprintln(out, "━━━━━━━━━━━━━━━━━━")
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Total Versions: %d\n", stats.TotalVersions)
	if stats.OldestVersion != nil && stats.NewestVersion != nil {
		fmt.Fprintf(out, "Date Range:     %s to %s\n",
			stats.OldestVersion.Local().Format("2006-01-02"),
			stats.NewestVersion.Local().Format("2006-01-02"))
	}
	fmt.Fprintf(out, "Restores:       %d\n", stats.Restores)
	fmt.Fprintf(out, "Auto-saves:     %d\n", stats.AutoSaves)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "By Author:")
	for _, a := range stats.ByAuthor {
		percentage := float64(a.Count) / float64(stats.TotalVersions) * 100
		fmt.Fprintf(out, "  %-20s %3d  (%.1f%%)\n", a.Author, a.Count, percentage)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Embedding Coverage:")
	percentage := float64(stats.WithEmbeddings) / float64(stats.TotalVersions) * 100
	fmt.Fprintf(out, "  With embeddings:    %3d  (%.1f%%)\n", stats.WithEmbeddings, percentage)
	fmt.Fprintf(out, "  Without embeddings: %3d  (%.1f%%)\n", stats.WithoutEmbeddings, 100-percentage)
	fmt.Fprintln(out)

	if len(stats.DailyActivity) > 0 {
		fmt.Fprintln(out, "Recent Activity:")
		limit := min(7, len(stats.DailyActivity))
		for _, da := range stats.DailyActivity[:limit] {
			bar := strings.Repeat("█", min(da.Count, 20))
			fmt.Fprintf(out, "  %s  %3d  %s\n", da.Date, da.Count, bar)
		}
	}
	return nil
}

// computeStats aggregates snaps. hasEmbedding may be nil.
func computeStats(snaps []models.Snapshot, hasEmbedding func(hash string) bool) historyStats {
	stats := historyStats{TotalVersions: len(snaps)}
	byAuthor := make(map[string]int)
	byDate := make(map[string]int)

	for _, s := range snaps {
		if stats.OldestVersion == nil || s.Date.Before(*stats.OldestVersion) {
			t := s.Date
			stats.OldestVersion = &t
		}
		if stats.NewestVersion == nil || s.Date.After(*stats.NewestVersion) {
			t := s.Date
			stats.NewestVersion = &t
		}

		subject := s.Subject()
		if strings.HasPrefix(subject, models.RestoreMessage("")) {
			stats.Restores++
		}
		if strings.HasPrefix(subject, models.AutoSaveMessage("")) {
			stats.AutoSaves++
		}

		byAuthor[s.AuthorName]++
		byDate[s.Date.Local().Format("2006-01-02")]++

		if hasEmbedding != nil && hasEmbedding(s.Hash) {
			stats.WithEmbeddings++
		} else {
			stats.WithoutEmbeddings++
		}
	}

	for author, count := range byAuthor {
		stats.ByAuthor = append(stats.ByAuthor, authorStat{Author: author, Count: count})
	}
	sort.Slice(stats.ByAuthor, func(i, j int) bool {
		if stats.ByAuthor[i].Count != stats.ByAuthor[j].Count {
			return stats.ByAuthor[i].Count > stats.ByAuthor[j].Count
		}
		return stats.ByAuthor[i].Author < stats.ByAuthor[j].Author
	})

	for date, count := range byDate {
		stats.DailyActivity = append(stats.DailyActivity, dailyActivity{Date: date, Count: count})
	}
	sort.Slice(stats.DailyActivity, func(i, j int) bool {
		return stats.DailyActivity[i].Date > stats.DailyActivity[j].Date
	})
	return stats
}

// embeddingChecker reports indexed versions without creating a store
func embeddingChecker(h project.Handle) func(string) bool {
	dir := filepath.Join(h.StateDir(), embeddingsDir)
	if _, err := os.Stat(dir); err != nil {
		return nil
	}
	store, err := embeddings.OpenStore(dir)
	if err != nil {
		return nil
	}
	return func(hash string) bool {
		_, err := store.Get(hash)
		return err == nil
	}
}
