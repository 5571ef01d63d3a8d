package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/baransitours-bot/webcra/internal/adapters/driving/rest"
	"github.com/baransitours-bot/webcra/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the store and retrieval engine over HTTP",
	Long: `Starts a read-only REST server over the content store and the retrieval
engine. While running, changes to the seed configuration file are picked
up without a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8383", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if contentStore == nil {
		return errors.New("content store not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := rest.NewServer(contentStore, retrievalService)

	if seedStore != nil {
		go func() {
			err := seedStore.Watch(ctx, func() {
				logger.Info("Seed configuration changed, reloading on next use")
			})
			if err != nil {
				logger.Warn("Seed configuration watch unavailable: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(serveAddr)
	}()
	cmd.Printf("Listening on %s (Ctrl-C to stop)\n", serveAddr)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		cmd.Println("Shutting down...")
		return srv.Shutdown(context.Background())
	}
}
