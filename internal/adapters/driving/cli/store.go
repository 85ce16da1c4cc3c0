package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the document store",
}

var storeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the vector store",
	Long: `Creates the embeddings table, and on Postgres the pgvector extension.

Only needed when store.auto_migrate is false. Until the store exists,
searches return no results and ingestion keeps chunks unembedded.`,
	Args: cobra.NoArgs,
	RunE: runStoreInit,
}

var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the vector store exists",
	Args:  cobra.NoArgs,
	RunE:  runStoreStatus,
}

func init() {
	storeCmd.AddCommand(storeInitCmd)
	storeCmd.AddCommand(storeStatusCmd)
	rootCmd.AddCommand(storeCmd)
}

func storeProvisioner(cmd *cobra.Command) (StoreProvisioner, error) {
	svc, err := loadServices(cmd)
	if err != nil {
		return nil, err
	}
	if svc.Store == nil {
		return nil, errors.New("store not configured")
	}
	return svc.Store, nil
}

func runStoreInit(cmd *cobra.Command, _ []string) error {
	store, err := storeProvisioner(cmd)
	if err != nil {
		return err
	}

	if err := store.Provision(commandContext(cmd)); err != nil {
		return fmt.Errorf("failed to provision store: %w", err)
	}

	cmd.Println("Vector store ready.")
	return nil
}

func runStoreStatus(cmd *cobra.Command, _ []string) error {
	store, err := storeProvisioner(cmd)
	if err != nil {
		return err
	}

	ok, err := store.Provisioned(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to check store: %w", err)
	}

	if !ok {
		cmd.Println("Vector store: not provisioned. Run 'kacey store init'.")
		return nil
	}
	cmd.Println("Vector store: provisioned")

	if services.Artifacts != nil {
		ctx := commandContext(cmd)
		if embedded, err := services.Artifacts.Embedded(ctx); err == nil {
			cmd.Printf("Embeddings stored: %d\n", embedded)
		}
		if pending, err := services.Artifacts.Pending(ctx); err == nil {
			cmd.Printf("Chunks waiting for an embedding: %d\n", pending)
		}
	}
	return nil
}
