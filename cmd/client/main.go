package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DoyleJ11/roster-socket/internal/client"
	"github.com/DoyleJ11/roster-socket/internal/config"
	"github.com/DoyleJ11/roster-socket/internal/logging"
	"github.com/DoyleJ11/roster-socket/internal/page"
	"github.com/DoyleJ11/roster-socket/internal/view"
)

var rootCmd = &cobra.Command{
	Use:   "roster-client",
	Short: "Connect to the roster server, say hello, and print the connected-client list as it changes",
	RunE:  runClient,
}

var (
	flagURL      string
	flagLogLevel string
	flagDev      bool
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagURL, "url", "", "server websocket URL (default from ROSTER_SERVER_URL or "+config.DefaultServerURL+")")
	flags.StringVar(&flagLogLevel, "log-level", "", "debug|info|warn|error")
	flags.BoolVar(&flagDev, "dev", true, "human-readable console logs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.ServerURL = flagURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	cfg.LogDev = devLogs(flags.Changed("dev"), flagDev, cfg.LogDev)

	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := page.New(view.NewList(view.ClientListID),
		page.WithLogger(log.Named("page")),
		page.WithOutput(cmd.OutOrStdout()),
	)
	c := client.New(cfg.ServerURL,
		client.WithLogger(log.Named("socket")),
		client.WithWriteTimeout(cfg.WriteTimeout),
	)

	if err := p.Load(c); err != nil {
		return err
	}

	if err := c.Run(ctx); err != nil {
		log.Error("connection ended", zap.Error(err))
		return err
	}
	return nil
}

// devLogs resolves --dev against LOG_DEV. The flag wins when given; otherwise
// LOG_DEV wins when set, and the flag default applies when neither is.
func devLogs(flagChanged, flagValue, fromConfig bool) bool {
	if flagChanged {
		return flagValue
	}
	if _, ok := os.LookupEnv("LOG_DEV"); ok {
		return fromConfig
	}
	return flagValue
}
