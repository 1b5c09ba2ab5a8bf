package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/eapayk/quanlitien/api"
	"github.com/eapayk/quanlitien/assetcache"
	"github.com/eapayk/quanlitien/config"
	"github.com/eapayk/quanlitien/notify/webpush"
	"github.com/eapayk/quanlitien/scheduler"
	"github.com/eapayk/quanlitien/store"
	"github.com/eapayk/quanlitien/tracker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the quanlitien server",
	Long:  `Start the quanlitien server, serving the expense tracker API and the cached application shell.`,
	Example: `quanlitien serve --config config.yml
quanlitien serve -c /path/to/config.yml --log-level debug
`,
	Run: startServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func startServer(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	defer st.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	manager := tracker.New(ctx, st)

	worker, err := assetcache.New(cfg.Assets, assetcache.NewBackend(cfg.Cache), st)
	if err != nil {
		log.Fatalf("failed to create asset cache worker: %v", err)
	}
	// The upstream may not be reachable yet; the shell is re-fetched on the
	// sync schedule, so a failed install only delays offline support.
	if err := worker.Install(ctx); err != nil {
		log.Warn("asset cache install failed", "error", err)
	} else if err := worker.Activate(ctx); err != nil {
		log.Warn("asset cache activation failed", "error", err)
	}

	var webpushClient *webpush.Client
	if cfg.WebPush != nil && cfg.WebPush.Enabled {
		webpushClient = webpush.NewClient(cfg.WebPush)
		if err := webpushClient.ValidateConfig(); err != nil {
			log.Fatalf("invalid webpush config: %v", err)
		}
	}

	sched, err := scheduler.New()
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	if err := sched.AddJob("update-expenses", "Refresh shell assets", cfg.SyncSchedule, worker.UpdateExpenses); err != nil {
		log.Fatalf("failed to schedule asset refresh: %v", err)
	}
	if err := sched.AddJob("sync-expenses", "Sync pending expenses", cfg.SyncSchedule, worker.SyncExpenses); err != nil {
		log.Fatalf("failed to schedule expense sync: %v", err)
	}
	sched.Start()
	defer sched.Stop() //nolint:errcheck

	server, err := api.New(cfg, manager, worker, webpushClient, sched)
	if err != nil {
		log.Fatalf("failed to create API server: %v", err)
	}

	go func() {
		if err := server.Run(ctx); err != nil {
			log.Error("API server error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	log.Info("quanlitien started successfully", "listen", cfg.Listen)
	<-c
	log.Info("shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down API server", "error", err)
	}
	cancel()
}
