package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gogojames/lightweb/config"
	"github.com/gogojames/lightweb/control"
	"github.com/gogojames/lightweb/htserver"
	"github.com/gogojames/lightweb/wsserver"
)

// newServeCmd builds the serve subcommand: load layered config, start
// the HTTP and WebSocket servers, and block until SIGINT/SIGTERM.
// Grounded on the teacher's examples/highlevel/*/main.go (goroutine per
// listener, signal.Notify-driven shutdown), replacing the flat flag
// parsing with viper-bound cobra flags.
func newServeCmd(v *viper.Viper, configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(v, *configFile)
		},
	}

	flags := cmd.Flags()
	flags.Int("http-port", 0, "HTTP server port (0 = use config default)")
	flags.Int("ws-port", 0, "WebSocket server port (0 = use config default)")
	flags.String("upload-dir", "", "directory multipart uploads are written to")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	_ = v.BindPFlag("http_port_flag", flags.Lookup("http-port"))
	_ = v.BindPFlag("ws_port_flag", flags.Lookup("ws-port"))
	_ = v.BindPFlag("upload_dir_flag", flags.Lookup("upload-dir"))
	_ = v.BindPFlag("log_level_flag", flags.Lookup("log-level"))

	return cmd
}

func runServe(v *viper.Viper, configFile string) error {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return fmt.Errorf("lightweb: %w", err)
	}
	applyFlagOverrides(v, cfg)

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("lightweb: building logger: %w", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("lightweb: creating upload dir %s: %w", cfg.UploadDir, err)
	}

	metrics := control.New()
	demoRouter := buildRouter(metrics, logger, cfg.UploadDir)

	httpSrv := htserver.New(
		htserver.Config{
			ListenAddr:      fmt.Sprintf(":%d", cfg.HTTPPort),
			ReadTimeout:     cfg.ReadTimeout,
			ShutdownTimeout: cfg.ShutdownTimeout,
		},
		demoRouter, metrics,
		htserver.WithLogger(logger),
	)

	wsSrv := wsserver.New(
		wsserver.Config{
			ListenAddr:        fmt.Sprintf(":%d", cfg.WSPort),
			MaxMessageSize:    cfg.MaxMessageSize,
			MaxInactivityTime: cfg.MaxInactivityTime,
			HeartbeatInterval: cfg.HeartbeatInterval,
			ShutdownTimeout:   cfg.ShutdownTimeout,
		},
		echoHandler(logger), metrics,
		wsserver.WithLogger(logger),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := httpSrv.Run(ctx); err != nil {
			logger.Error("http server exited", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		if err := wsSrv.Run(ctx); err != nil {
			logger.Error("websocket server exited", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	cancel()
	httpSrv.Shutdown()
	wsSrv.Shutdown()
	wg.Wait()

	logger.Info("shutdown complete")
	return nil
}

// applyFlagOverrides lets explicit, non-zero CLI flags win over whatever
// config.Load already resolved from defaults/file/environment.
func applyFlagOverrides(v *viper.Viper, cfg *config.Config) {
	if p := v.GetInt("http_port_flag"); p != 0 {
		cfg.HTTPPort = p
	}
	if p := v.GetInt("ws_port_flag"); p != 0 {
		cfg.WSPort = p
	}
	if d := v.GetString("upload_dir_flag"); d != "" {
		cfg.UploadDir = d
	}
	if l := v.GetString("log_level_flag"); l != "" {
		cfg.LogLevel = l
	}
}
