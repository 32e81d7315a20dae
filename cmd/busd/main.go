package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cuemby/busline/pkg/actor"
	"github.com/cuemby/busline/pkg/bus"
	"github.com/cuemby/busline/pkg/config"
	"github.com/cuemby/busline/pkg/health"
	"github.com/cuemby/busline/pkg/httpapi"
	"github.com/cuemby/busline/pkg/log"
	"github.com/cuemby/busline/pkg/metrics"
	"github.com/cuemby/busline/pkg/persistence"
	"github.com/cuemby/busline/pkg/security"
	"github.com/cuemby/busline/pkg/wsgateway"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "busd",
	Short: "busline - an in-process actor message bus, exposed over HTTP and WebSocket",
	Long: `busd runs the message bus, its built-in actors (auth, ticker,
persistence gateway), and the HTTP/WebSocket collaborators that sit in
front of them, as a single long-running process.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to an optional config file")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(versionCmd)
}

// version is set at build time via -ldflags; it defaults to "dev" for
// local builds.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the busd version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("busd version %s\n", version)
		return nil
	},
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bus, its built-in actors, and the HTTP/WebSocket surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Flags given explicitly win; otherwise the config file and its
		// BUS_LOG override decide the logger's settings.
		logCfg := log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON}
		if cmd.Flags().Changed("log-level") {
			level, _ := rootCmd.PersistentFlags().GetString("log-level")
			logCfg.Level = log.Level(level)
		}
		if cmd.Flags().Changed("log-json") {
			logCfg.JSONOutput, _ = rootCmd.PersistentFlags().GetBool("log-json")
		}
		log.Init(logCfg)

		logger := log.WithComponent("busd")

		store, err := persistence.NewBoltStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()

		broker := bus.NewBroker()
		go broker.Run()

		gateway := persistence.NewGateway(broker, store)
		go func() {
			if err := gateway.Run(); err != nil {
				logger.Error().Err(err).Msg("persistence gateway stopped")
			}
		}()

		tokens := security.NewTokenManager()
		authActor := actor.NewAuthActor(broker, tokens)
		go authActor.Run()

		ticker := actor.NewTicker(broker)
		go ticker.Run()
		defer ticker.Stop()

		inventoryIDs, err := bootstrapInventoryActors(broker, store, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to bootstrap inventory actors")
		} else {
			logger.Info().Int("count", len(inventoryIDs)).Msg("inventory actors started")
		}

		collector := metrics.NewCollector(func() int { return int(broker.Status()) }, broker.SubscriptionCount)
		collector.Start()
		defer collector.Stop()

		checkers := []health.Checker{
			health.NewBrokerChecker(func() string { return broker.Status().String() }),
			health.NewGatewayChecker(func() string { return gateway.Status().String() }),
		}

		wsgw := wsgateway.NewGateway(broker, tokens)
		httpSrv := httpapi.NewServer(broker, checkers, wsgw)

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.BindAddr).Msg("http surface listening")
			if err := httpSrv.Start(cfg.BindAddr); err != nil {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logger.Info().Msg("shutting down")
		case err := <-errCh:
			logger.Error().Err(err).Msg("surface error")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return gracefulStop(shutdownCtx, broker)
	},
}

// bootstrapInventoryActors starts one InventoryActor per inventory
// already known to the store, so ticks and build requests for
// pre-existing inventories are served on startup.
func bootstrapInventoryActors(broker *bus.Broker, store persistence.Store, logger zerolog.Logger) ([]uuid.UUID, error) {
	ids, err := store.ListInventoryIDs()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		a := actor.NewInventoryActor(broker, id)
		go a.Run()
	}
	return ids, nil
}

// gracefulStop publishes a Stop body and waits for the broker to reach
// Stopped, bounded by ctx.
func gracefulStop(ctx context.Context, broker *bus.Broker) error {
	if err := broker.Send(bus.NewEnvelope("", bus.Stop{})); err != nil {
		return err
	}
	for {
		if broker.Status() == bus.Stopped {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("shutdown: %w", ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Inspect inventories known to the store",
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every inventory id known to the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		store, err := persistence.NewBoltStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()

		ids, err := store.ListInventoryIDs()
		if err != nil {
			return fmt.Errorf("list inventories: %w", err)
		}

		if len(ids) == 0 {
			fmt.Println("No inventories found")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	inventoryCmd.AddCommand(inventoryListCmd)
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Developer utilities for poking at a running bus",
}

var debugPublishCmd = &cobra.Command{
	Use:   "publish TOPIC TEXT",
	Short: "Smoke-test a DebugMessage publish against a throwaway broker",
	Long: `There is no network-level publish endpoint into a running
daemon by design (the bus is an in-process collaborator, not a
network service); this command starts its own broker, publishes one
DebugMessage, and exits, as a quick sanity check during development.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, text := args[0], args[1]

		broker := bus.NewBroker()
		go broker.Run()
		defer func() {
			_ = broker.Send(bus.NewEnvelope("", bus.Stop{}))
		}()

		if err := broker.Send(bus.NewEnvelope(topic, bus.DebugMessage{Text: text})); err != nil {
			return fmt.Errorf("publish: %w", err)
		}

		fmt.Printf("published %q to %q\n", text, topic)
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugPublishCmd)
}
