package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/receiptpanel/internal/adapter/actor"
	"github.com/berfenger/receiptpanel/internal/adapter/homeassistant"
	"github.com/berfenger/receiptpanel/internal/config"
	"github.com/berfenger/receiptpanel/internal/core/actor"
	"github.com/berfenger/receiptpanel/internal/core/domain"
	"github.com/berfenger/receiptpanel/internal/core/port"
	"github.com/berfenger/receiptpanel/internal/jobs"
	"github.com/berfenger/receiptpanel/internal/server"
	"github.com/berfenger/receiptpanel/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the panel",
	Long:  `Connects to Home Assistant, keeps the panel state and serves the HTTP API.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func gracefulShutdown(ctx context.Context, apiServer *http.Server, done chan bool) {
	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func runServe(cmd *cobra.Command, args []string) error {

	// load and print config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	safePrintConfig(*cfg)

	logger := newLogger(cfg)
	defer logger.Sync()

	host, err := homeassistant.NewClient(cfg, logger)
	if err != nil {
		return err
	}

	var recorder port.HistoryRecorder
	if cfg.History.Path != "" {
		store, err := openHistory(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer store.Close()
		recorder = store
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	rootCtx := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, panelActorProvider(cfg, host, recorder, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := rootCtx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return err
	}

	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	host.OnConnected = func() {
		rootCtx.Send(pid, domain.HostConnectedEvent{})
	}
	host.OnCompletion = func(ev domain.CompletionEvent) {
		rootCtx.Send(pid, ev)
	}
	go host.Run(ctx)

	if cfg.ListingRefreshInterval() > 0 {
		sched, err := jobs.StartListingRefresh(ctx, cfg.ListingRefreshInterval(), rootCtx, pid, logger)
		if err != nil {
			return fmt.Errorf("scheduling listing refresh: %w", err)
		}
		defer sched.Stop()
	}

	apiServer := server.NewServer(*cfg, rootCtx, pid, logger)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(ctx, apiServer, done)

	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	rootCtx.Stop(pid)
	as.Shutdown()
	return nil
}

func panelActorProvider(cfg *config.Config, host port.HostClient, recorder port.HistoryRecorder, logger *zap.Logger) actor.PanelActorProvider {
	return func(es *eventstream.EventStream) *actor.PanelActor {
		panel, err := actor.NewPanelActor(cfg, actor.PanelDeps{
			Host:        host,
			History:     recorder,
			EventStream: es,
		}, logger)
		if err != nil {
			panic(err)
		}
		return panel
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	if !cfg.MQTT.Enable {
		return nil
	}
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}
