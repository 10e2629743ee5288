package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/rfm-cli/internal/server"
)

var (
	srvHost string
	srvPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload server (POST /analyze, GET /health, GET /metrics)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := serverConfig(cmd)
		if err != nil {
			return err
		}
		srv := server.New(sc, log.Logger, Version)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	},
}

// serverConfig merges config values with the serve flags and the shared
// parsing settings.
func serverConfig(cmd *cobra.Command) (server.Config, error) {
	sc := server.DefaultConfig()
	sc.Host = cfg.ServerHost
	sc.Port = cfg.ServerPort
	if cmd.Flags().Changed("host") {
		sc.Host = srvHost
	}
	if cmd.Flags().Changed("port") {
		sc.Port = srvPort
	}
	if sc.Port <= 0 || sc.Port > 65535 {
		return sc, fmt.Errorf("invalid port: %d", sc.Port)
	}
	sc.ReadTimeout = time.Duration(cfg.ReadTimeoutSec) * time.Second
	sc.WriteTimeout = time.Duration(cfg.WriteTimeoutSec) * time.Second
	sc.RequestTimeout = time.Duration(cfg.RequestTimeoutSec) * time.Second
	sc.MaxUploadBytes = int64(cfg.MaxUploadMB) << 20
	sc.RateLimitRPS = cfg.RateLimitRPS
	sc.RateLimitBurst = cfg.RateLimitBurst
	sc.Buckets = cfg.ScoreBuckets
	sc.PreviewRows = cfg.PreviewRows

	var in inputFlags
	popt, err := in.parseOptions(cfg)
	if err != nil {
		return sc, err
	}
	sc.Parse = popt
	return sc, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvHost, "host", "", "listen host (default from config, 127.0.0.1)")
	serveCmd.Flags().IntVar(&srvPort, "port", 0, "listen port (default from config, 8080)")
}
