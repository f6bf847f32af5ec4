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
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/roster-socket/internal/config"
	"github.com/DoyleJ11/roster-socket/internal/httpapi"
	"github.com/DoyleJ11/roster-socket/internal/hub"
	"github.com/DoyleJ11/roster-socket/internal/logging"
	"github.com/DoyleJ11/roster-socket/internal/store"
	"github.com/DoyleJ11/roster-socket/internal/ws"
)

var rootCmd = &cobra.Command{
	Use:   "roster-server",
	Short: "Websocket server that assigns session ids and broadcasts the connected-client roster",
	RunE:  runServer,
}

var (
	flagAddr     string
	flagDSN      string
	flagLogLevel string
	flagDev      bool
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagAddr, "addr", "", "listen address (default from ROSTER_SERVER_ADDR or "+config.DefaultServerAddr+")")
	flags.StringVar(&flagDSN, "database-url", "", "postgres DSN for the message log; in-memory when empty")
	flags.StringVar(&flagLogLevel, "log-level", "", "debug|info|warn|error")
	flags.BoolVar(&flagDev, "dev", false, "human-readable console logs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.ServerAddr = flagAddr
	}
	if flags.Changed("database-url") {
		cfg.DatabaseURL = flagDSN
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("dev") {
		cfg.LogDev = flagDev
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messages, err := store.Open(ctx, cfg.DatabaseURL, cfg.MessageLogSize)
	if err != nil {
		return fmt.Errorf("open message log: %w", err)
	}
	defer func() { err = multierr.Append(err, messages.Close()) }()

	h := hub.NewHub(ctx, messages, log.Named("hub"))

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:      h,
		Messages: messages,
		WS: ws.Options{
			OriginPatterns: cfg.AllowedOrigins,
			OutboxSize:     cfg.OutboxSize,
			WriteTimeout:   cfg.WriteTimeout,
		},
		Log: log.Named("http"),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	h.Send(context.Background(), hub.Shutdown{})
	<-h.Done()

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
