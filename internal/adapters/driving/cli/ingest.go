package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

var (
	ingestTitle       string
	ingestDescription string
	ingestScope       string
	ingestJSON        bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest documents into the knowledge base",
	Long: `Parses each file, splits it into overlapping chunks and embeds them.

Supported formats: PDF, Word (.docx), Excel (.xlsx), CSV, HTML, Markdown and plain text.
Ingesting a file whose title already exists in the same scope replaces the
earlier version. The title defaults to the filename.

Chunks whose embedding fails are kept and filled in later by 'kacey repair'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "artifact title (single file only)")
	ingestCmd.Flags().StringVar(&ingestDescription, "description", "", "artifact description")
	ingestCmd.Flags().StringVar(&ingestScope, "scope", "", "scope that may retrieve the artifact")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

// ingestJSONResult is the JSON form of one ingestion.
type ingestJSONResult struct {
	File       string `json:"file"`
	ArtifactID string `json:"artifactId,omitempty"`
	Title      string `json:"title,omitempty"`
	Chunks     int    `json:"chunks"`
	Embedded   int    `json:"embedded"`
	Failed     int    `json:"failed"`
	Updated    bool   `json:"updated"`
	Unchanged  bool   `json:"unchanged"`
	Error      string `json:"error,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestTitle != "" && len(args) > 1 {
		return errors.New("--title can only be used with a single file")
	}

	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Ingestion == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := commandContext(cmd)
	results := make([]ingestJSONResult, 0, len(args))
	failures := 0

	for _, path := range args {
		out := ingestJSONResult{File: path}

		content, err := os.ReadFile(path)
		if err != nil {
			out.Error = err.Error()
			failures++
			results = append(results, out)
			if !ingestJSON {
				cmd.Printf("%s: %v\n", path, err)
			}
			continue
		}

		filename := filepath.Base(path)
		result, err := svc.Ingestion.Ingest(ctx, domain.IngestRequest{
			Content:     content,
			MIMEType:    domain.MIMETypeFor(filename),
			Filename:    filename,
			Title:       ingestTitle,
			Description: ingestDescription,
			ScopeID:     ingestScope,
		})
		if result != nil {
			out.Chunks = result.Chunks
			out.Embedded = result.Embedded
			out.Failed = result.Failed
			out.Updated = result.Updated
			out.Unchanged = result.Unchanged
			if result.Artifact != nil {
				out.ArtifactID = result.Artifact.ID
				out.Title = result.Artifact.Title
			}
		}
		if err != nil {
			out.Error = err.Error()
			failures++
		}
		results = append(results, out)

		if !ingestJSON {
			printIngestResult(cmd, out)
		}
	}

	if ingestJSON {
		if err := printJSON(cmd, results); err != nil {
			return err
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", failures, len(args))
	}
	return nil
}

func printIngestResult(cmd *cobra.Command, r ingestJSONResult) {
	switch {
	case r.Error != "" && r.ArtifactID == "":
		cmd.Printf("%s: %s\n", r.File, r.Error)
		return
	case r.Unchanged:
		cmd.Printf("%s: unchanged (%s)\n", r.File, r.ArtifactID)
		return
	}

	action := "ingested"
	if r.Updated {
		action = "updated"
	}
	cmd.Printf("%s: %s %q as %s\n", r.File, action, r.Title, r.ArtifactID)
	cmd.Printf("  Chunks: %d, embedded: %d, failed: %d\n", r.Chunks, r.Embedded, r.Failed)
	if r.Error != "" {
		cmd.Printf("  Warning: %s\n", r.Error)
	}
	if r.Failed > 0 || r.Error != "" {
		cmd.Println("  Run 'kacey repair' to embed the remaining chunks.")
	}
}
