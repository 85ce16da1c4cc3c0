package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var repairBatch int

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Embed chunks that are missing an embedding",
	Long: `Finds chunks left without an embedding, for example after a provider
outage during ingestion, and embeds up to --batch of them.

Safe to run repeatedly. 'kacey serve' runs this sweep on a schedule.`,
	Args: cobra.NoArgs,
	RunE: runRepair,
}

func init() {
	repairCmd.Flags().IntVar(&repairBatch, "batch", 0, "maximum chunks to repair (default from pipeline.repair_batch_size)")
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Ingestion == nil {
		return errors.New("ingestion service not configured")
	}

	batch := repairBatch
	if batch <= 0 && svc.Settings != nil {
		batch = svc.Settings.Pipeline.RepairBatchSize
	}

	result, err := svc.Ingestion.RepairMissingEmbeddings(commandContext(cmd), batch)
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	if result.Scanned == 0 {
		cmd.Println("All chunks are embedded.")
		return nil
	}

	cmd.Printf("Scanned: %d, repaired: %d, still missing: %d\n", result.Scanned, result.Repaired, result.Failed)
	return nil
}
