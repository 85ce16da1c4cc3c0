package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/kacey/internal/adapters/driving/api"
	"github.com/custodia-labs/kacey/internal/logger"
)

var (
	serveAddr      string
	serveOrigins   []string
	serveAccessLog bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the knowledge base over HTTP and runs the embedding repair sweep
on the pipeline.repair_interval schedule.

Routes:
  GET    /api/health
  POST   /api/artifacts              multipart upload (file, title, description, scope)
  GET    /api/artifacts
  GET    /api/artifacts/:id
  DELETE /api/artifacts/:id
  POST   /api/search
  POST   /api/chat
  POST   /api/repair
  GET    /api/conversations
  GET    /api/conversations/:id/messages`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "allowed CORS origins")
	serveCmd.Flags().BoolVar(&serveAccessLog, "access-log", false, "log every request")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	server, err := api.NewServer(&api.Ports{
		Ingestion: svc.Ingestion,
		Retrieval: svc.Retrieval,
		Artifacts: svc.Artifacts,
		Chat:      svc.Chat,
	}, api.Config{
		AppName:      "kacey " + version,
		AllowOrigins: serveOrigins,
		AccessLog:    serveAccessLog,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	addr := serveAddr
	if addr == "" && svc.Settings != nil {
		addr = svc.Settings.Server.Addr
	}
	if addr == "" {
		return errors.New("no listen address: pass --addr or set server.addr")
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Listen(ctx, addr)
	})

	if svc.Scheduler != nil {
		g.Go(func() error {
			// Scheduler errors must not take the API down.
			if err := svc.Scheduler.Start(ctx); err != nil {
				logger.Warn("Repair scheduler stopped: %v", err)
			}
			return nil
		})
		defer func() {
			if err := svc.Scheduler.Stop(); err != nil {
				logger.Warn("Repair scheduler stop: %v", err)
			}
		}()
	}

	cmd.Printf("Listening on http://%s\n", displayAddr(addr))
	return g.Wait()
}

// displayAddr turns ":8080" into "localhost:8080".
func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
