package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

var (
	searchLimit int
	searchScope string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search ingested documents",
	Long: `Finds the passages most similar in meaning to the query.

The query is embedded with the configured embedding model and compared with
every embedded chunk by cosine similarity. No answer is generated; use
'kacey ask' for that.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVar(&searchScope, "scope", "", "only search artifacts in this scope")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// passageJSON is the JSON form of one retrieval result.
type passageJSON struct {
	ArtifactID    string  `json:"artifactId"`
	ArtifactTitle string  `json:"artifactTitle"`
	ArtifactType  string  `json:"artifactType"`
	Ordinal       int     `json:"ordinal"`
	Similarity    float64 `json:"similarity"`
	Content       string  `json:"content"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Retrieval == nil {
		return errors.New("retrieval service not configured")
	}

	results, err := svc.Retrieval.Retrieve(commandContext(cmd), args[0], searchLimit, searchScope)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		out := make([]passageJSON, len(results))
		for i, r := range results {
			out[i] = passageJSON{
				ArtifactID:    r.Chunk.ArtifactID,
				ArtifactTitle: r.Chunk.Metadata.ArtifactTitle(),
				ArtifactType:  string(r.Chunk.Metadata.ArtifactType()),
				Ordinal:       r.Chunk.Ordinal,
				Similarity:    r.Similarity,
				Content:       r.Chunk.Content,
			}
		}
		return printJSON(cmd, out)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results []domain.RetrievalResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		title := results[i].Chunk.Metadata.ArtifactTitle()
		if title == "" {
			title = results[i].Chunk.ArtifactID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, results[i].Similarity)
		cmd.Printf("      Chunk %d\n", results[i].Chunk.Ordinal)
		cmd.Printf("      %s\n", snippet(results[i].Chunk.Content, snippetLength))
		cmd.Println()
	}

	return nil
}
