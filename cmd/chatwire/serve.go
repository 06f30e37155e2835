package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatwire/chatwire/internal/config"
	"github.com/chatwire/chatwire/internal/logging"
	"github.com/chatwire/chatwire/pkg/gateway"
	"github.com/chatwire/chatwire/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath  string
		listenAddr  string
		opsAddr     string
		gatewayAddr string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		Long: `Run the relay server.

The relay accepts TCP clients, registers their handles, and routes
broadcast, unicast, and multicast messages between them. Two extra
listeners are off by default:

  --ops-listen      /healthz, /readyz, and Prometheus /metrics
  --gateway-listen  WebSocket bridge for browser clients

Flags override the config file; the CHATWIRE_LOG_LEVEL environment
variable overrides both.

Examples:
  chatwire serve
  chatwire serve --listen=:4040 --ops-listen=:9090
  chatwire serve --config=chatwire.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, listenAddr, opsAddr, gatewayAddr, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "TCP listen address (default :4040)")
	cmd.Flags().StringVar(&opsAddr, "ops-listen", "", "Ops listen address (disabled when empty)")
	cmd.Flags().StringVar(&gatewayAddr, "gateway-listen", "", "WebSocket gateway listen address (disabled when empty)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error, off")

	return cmd
}

func runServe(configPath, listenAddr, opsAddr, gatewayAddr, logLevel string) error {
	cfg := config.DefaultServeConfig()
	if configPath != "" {
		loaded, err := config.LoadServeConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Apply command-line overrides
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if opsAddr != "" {
		cfg.OpsAddr = opsAddr
	}
	if gatewayAddr != "" {
		cfg.GatewayAddr = gatewayAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := logging.Init("chatwire", logging.ProfileRuntime)
	// The environment variable, already applied by Init, wins over the
	// flag and the config file.
	if os.Getenv(logging.EnvLogLevel) == "" && cfg.LogLevel != "" {
		level, ok := logging.ParseLevel(cfg.LogLevel)
		if !ok {
			return fmt.Errorf("invalid log level %q", cfg.LogLevel)
		}
		logger = logger.Level(level)
	}

	srvCfg := server.DefaultConfig().
		WithAddr(cfg.ListenAddr).
		WithLogger(logger)
	srvCfg.MaxPayload = cfg.MaxPayload
	srvCfg.OutboxDepth = cfg.OutboxDepth
	srvCfg.RegisterTimeout = cfg.RegisterTimeout
	srvCfg.WriteTimeout = cfg.WriteTimeout
	srvCfg.ShutdownTimeout = cfg.ShutdownTimeout
	if cfg.OpsAddr != "" {
		srvCfg.Metrics = server.NewMetrics()
	}
	relay := server.New(srvCfg)

	errCh := make(chan error, 3)
	go func() {
		if err := relay.ListenAndServe(); err != nil && !errors.Is(err, server.ErrServerClosed) {
			errCh <- fmt.Errorf("relay: %w", err)
		}
	}()

	var opsSrv *http.Server
	if cfg.OpsAddr != "" {
		opsSrv = &http.Server{
			Addr:              cfg.OpsAddr,
			Handler:           relay.OpsHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		logger.Info().Str("addr", cfg.OpsAddr).Msg("ops listening")
		go func() {
			if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("ops: %w", err)
			}
		}()
	}

	var gw *gateway.Gateway
	if cfg.GatewayAddr != "" {
		gwCfg := gateway.DefaultConfig().
			WithAddr(cfg.GatewayAddr).
			WithRelayAddr(cfg.ListenAddr).
			WithLogger(logger)
		gwCfg.MaxPayload = cfg.MaxPayload
		gwCfg.WriteTimeout = cfg.WriteTimeout
		gwCfg.ShutdownTimeout = cfg.ShutdownTimeout
		gw = gateway.New(gwCfg)
		go func() {
			if err := gw.ListenAndServe(); err != nil && !errors.Is(err, gateway.ErrGatewayClosed) {
				errCh <- fmt.Errorf("gateway: %w", err)
			}
		}()
	}

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("listener failed")
	}

	// The gateway goes first so its bridges release their relay
	// connections before the relay stops taking writes.
	if gw != nil {
		if err := gw.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("gateway shutdown")
		}
	}
	if opsSrv != nil {
		ctx := context.Background()
		if cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.ShutdownTimeout)
			defer cancel()
		}
		if err := opsSrv.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("ops shutdown")
		}
	}
	if err := relay.Shutdown(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("relay shutdown")
	}

	return runErr
}
