package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

var (
	artifactsScope  string
	artifactsJSON   bool
	artifactsChunks bool
)

var artifactsCmd = &cobra.Command{
	Use:     "artifacts",
	Aliases: []string{"artifact"},
	Short:   "Manage ingested artifacts",
	Long:    `List, inspect and delete the documents in the knowledge base.`,
}

var artifactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested artifacts",
	Args:  cobra.NoArgs,
	RunE:  runArtifactsList,
}

var artifactsShowCmd = &cobra.Command{
	Use:   "show [artifact-id]",
	Short: "Show artifact details",
	Args:  cobra.ExactArgs(1),
	RunE:  runArtifactsShow,
}

var artifactsDeleteCmd = &cobra.Command{
	Use:   "delete [artifact-id]",
	Short: "Delete an artifact with its chunks and embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runArtifactsDelete,
}

func init() {
	artifactsListCmd.Flags().StringVar(&artifactsScope, "scope", "", "only list artifacts in this scope")
	artifactsListCmd.Flags().BoolVar(&artifactsJSON, "json", false, "output as JSON")
	artifactsShowCmd.Flags().BoolVar(&artifactsChunks, "chunks", false, "print every chunk")
	artifactsCmd.AddCommand(artifactsListCmd)
	artifactsCmd.AddCommand(artifactsShowCmd)
	artifactsCmd.AddCommand(artifactsDeleteCmd)
	rootCmd.AddCommand(artifactsCmd)
}

// artifactJSON is the JSON form of an artifact listing entry.
type artifactJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Filename    string `json:"filename,omitempty"`
	ScopeID     string `json:"scopeId,omitempty"`
	WordCount   int    `json:"wordCount"`
	UpdatedAt   string `json:"updatedAt"`
}

func artifactService(cmd *cobra.Command) (*Services, error) {
	svc, err := loadServices(cmd)
	if err != nil {
		return nil, err
	}
	if svc.Artifacts == nil {
		return nil, errors.New("artifact service not configured")
	}
	return svc, nil
}

func runArtifactsList(cmd *cobra.Command, _ []string) error {
	svc, err := artifactService(cmd)
	if err != nil {
		return err
	}

	artifacts, err := svc.Artifacts.List(commandContext(cmd), artifactsScope)
	if err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}

	if artifactsJSON {
		out := make([]artifactJSON, len(artifacts))
		for i := range artifacts {
			a := &artifacts[i]
			out[i] = artifactJSON{
				ID:          a.ID,
				Title:       a.Title,
				Description: a.Description,
				Type:        string(a.Type),
				Filename:    a.Filename,
				ScopeID:     a.ScopeID,
				WordCount:   a.Metadata.WordCount(),
				UpdatedAt:   a.UpdatedAt.Format(timeFormat),
			}
		}
		return printJSON(cmd, out)
	}

	if len(artifacts) == 0 {
		cmd.Println("No artifacts ingested. Add one with 'kacey ingest <file>'.")
		return nil
	}

	cmd.Println("Artifacts:")
	cmd.Println()
	for i := range artifacts {
		a := &artifacts[i]
		cmd.Printf("  %s\n", a.ID)
		cmd.Printf("    Title: %s (%s)\n", a.Title, a.Type)
		if a.ScopeID != "" {
			cmd.Printf("    Scope: %s\n", a.ScopeID)
		}
		cmd.Printf("    Updated: %s\n", a.UpdatedAt.Format(timeFormat))
		cmd.Println()
	}

	pending, err := svc.Artifacts.Pending(commandContext(cmd))
	if err == nil && pending > 0 {
		cmd.Printf("%d chunks are waiting for an embedding. Run 'kacey repair'.\n", pending)
	}
	cmd.Printf("Total: %d artifacts\n", len(artifacts))
	return nil
}

func runArtifactsShow(cmd *cobra.Command, args []string) error {
	svc, err := artifactService(cmd)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	a, err := svc.Artifacts.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get artifact: %w", err)
	}

	chunks, err := svc.Artifacts.Chunks(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}

	printArtifact(cmd, a, len(chunks))

	if artifactsChunks {
		cmd.Println("\n  Chunks:")
		for i := range chunks {
			cmd.Printf("\n  [%d] %d words\n", chunks[i].Ordinal, chunks[i].TokenCount)
			cmd.Printf("  %s\n", chunks[i].Content)
		}
	}
	return nil
}

func printArtifact(cmd *cobra.Command, a *domain.Artifact, chunks int) {
	cmd.Printf("Artifact: %s\n\n", a.ID)
	cmd.Printf("  Title:    %s\n", a.Title)
	if a.Description != "" {
		cmd.Printf("  About:    %s\n", a.Description)
	}
	cmd.Printf("  Type:     %s\n", a.Type)
	cmd.Printf("  File:     %s\n", a.Filename)
	if a.ScopeID != "" {
		cmd.Printf("  Scope:    %s\n", a.ScopeID)
	}
	cmd.Printf("  Words:    %d\n", a.Metadata.WordCount())
	cmd.Printf("  Chunks:   %d\n", chunks)
	cmd.Printf("  Created:  %s\n", a.CreatedAt.Format(timeFormat))
	cmd.Printf("  Updated:  %s\n", a.UpdatedAt.Format(timeFormat))
}

func runArtifactsDelete(cmd *cobra.Command, args []string) error {
	svc, err := artifactService(cmd)
	if err != nil {
		return err
	}

	if err := svc.Artifacts.Delete(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}

	cmd.Printf("Deleted artifact: %s\n", args[0])
	return nil
}
