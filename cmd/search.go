package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pders01/livesnap/internal/search"
	"github.com/pders01/livesnap/internal/ui"
	"github.com/spf13/cobra"
)

var (
	searchLimit   int
	searchDepth   int
	searchReindex bool
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search versions using hybrid keyword and semantic search",
	Long: `Search version messages, authors and Live Set contents (track names,
plugins, tempo) using hybrid search.

Combines keyword matching with semantic similarity when Ollama is running.
New versions are indexed by save; --reindex backfills older ones.

Examples:
  livesnap search "vocal chop"
  livesnap search serum bass --limit 3
  livesnap search "drum bus" --reindex

Search modes:
  - Keyword only: When search is disabled or Ollama not running
  - Hybrid: Combines keyword (30%) + semantic (70%) by default`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results")
	searchCmd.Flags().IntVar(&searchDepth, "depth", 500, "Number of versions to search, newest first")
	searchCmd.Flags().BoolVar(&searchReindex, "reindex", false, "Embed versions that are not indexed yet before searching")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	h, err := openProject(false)
	if err != nil {
		return err
	}

	svc := newServices()
	ctx := commandContext(cmd)

	snaps, err := svc.snapshots.List(ctx, h, searchDepth)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintln(out, "No versions found")
		return nil
	}

	docs := make([]search.Document, len(snaps))
	for i, s := range snaps {
		docs[i] = svc.document(ctx, h, s)
	}

	searcher := svc.searcher(ctx, h)
	if searchReindex && !searcher.Semantic() {
		fmt.Fprintln(os.Stderr, "Warning: semantic search is unavailable, nothing was indexed")
	}
	if searcher.Semantic() && searchReindex {
		err := ui.Spin("Indexing versions...", func() error {
			for _, d := range docs {
				if _, err := searcher.Index(ctx, d); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to index versions: %v\n", err)
		}
	}

	results, semantic := searcher.Search(ctx, query, docs)
	if searchLimit > 0 && len(results) > searchLimit {
		results = results[:searchLimit]
	}

	if searchJSON {
		output, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if semantic {
		fmt.Fprintln(out, ui.Faint.Render("Using hybrid search (keyword + semantic)"))
	} else {
		fmt.Fprintln(out, ui.Faint.Render("Using keyword search"))
	}

	if len(results) == 0 {
		fmt.Fprintf(out, "No versions match %q\n", query)
		return nil
	}

	fmt.Fprintf(out, "Found %d matching version(s):\n\n", len(results))
	for _, r := range results {
		fmt.Fprintf(out, "  %s  %s\n", ui.HashTag.Render(r.Snapshot.ShortHash), r.Snapshot.Subject())
		fmt.Fprintf(out, "    Score:  %.1f", r.Score)
		if r.UsedSemantic {
			fmt.Fprintf(out, " (keyword %d, semantic %.1f)", r.KeywordScore, r.SemanticScore)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "    Date:   %s\n\n", r.Snapshot.Date.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
