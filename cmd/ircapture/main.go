package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"codeberg.org/mutker/ircapture/internal/capture"
	"codeberg.org/mutker/ircapture/internal/config"
	"codeberg.org/mutker/ircapture/internal/control"
	"codeberg.org/mutker/ircapture/internal/errors"
	"codeberg.org/mutker/ircapture/internal/logger"
	"codeberg.org/mutker/ircapture/internal/pid"
	"codeberg.org/mutker/ircapture/internal/sensor"
	"codeberg.org/mutker/ircapture/internal/storage"
	"github.com/spf13/cobra"
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var pidPath string

	cmd := &cobra.Command{
		Use:          "ircapture",
		Short:        "Capture infrared sensor readings on demand, controlled over NATS",
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
				return err
			}

			logger.Init(cfg.Level(), logger.IsService())
			if err := run(cmd.Context(), cfg, pidPath); err != nil {
				var appErr errors.Error
				if errors.As(err, &appErr) {
					logger.ErrorWithCode(appErr).Msg("ircapture failed")
				} else {
					logger.Error().Err(err).Msg("ircapture failed")
				}
				return err
			}
			return nil
		},
	}

	config.BindFlags(cmd.Flags())
	cmd.Flags().StringVar(&pidPath, "pid-file", "", "Path of the pid file (default in the temp dir)")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, pidPath string) error {
	logConfig(cfg)

	pidFile := pid.New(pidPath)
	if err := pidFile.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := pidFile.Release(); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove pid file")
		}
	}()

	source, err := sensor.New(cfg.SensorConfig())
	if err != nil {
		return err
	}

	store, err := storage.NewSQLite(ctx, cfg.StorageConfig(), logger.New("storage"))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database")
		}
	}()

	transport, err := control.DialNATS(cfg.NATSURL, logger.New("transport"))
	if err != nil {
		return err
	}

	factory := func() (control.Engine, error) {
		engine, err := capture.New(cfg.CaptureConfig(), source, store,
			capture.WithLogger(logger.New("capture")))
		if err != nil {
			return nil, err
		}
		return engine, nil
	}

	channel, err := control.New(transport, factory,
		control.WithLogger(logger.New("control")),
		control.WithCloseTimeout(cfg.ShutdownTimeout))
	if err != nil {
		transport.Close(ctx)
		return err
	}

	if err := channel.Listen(cfg.Subject); err != nil {
		transport.Close(ctx)
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-channel.Done():
	case <-sigCtx.Done():
		logger.Info().Msg("Received termination signal.")
		channel.Shutdown()
	}

	logger.Info().Msg("Exiting...")
	return nil
}

func logConfig(cfg *config.Config) {
	event := logger.Info().
		Str("sensor_type", cfg.SensorType).
		Int("reading_frequency", cfg.ReadingFrequency).
		Str("db_uri", cfg.DBURI).
		Bool("remove_existing_db", cfg.RemoveExistingDB).
		Str("nats_url", cfg.NATSURL).
		Str("subject", cfg.Subject).
		Dur("shutdown_timeout", cfg.ShutdownTimeout).
		Int("store_max_failures", cfg.StoreMaxFailures).
		Str("log_level", cfg.LogLevel)
	if cfg.MinValue != nil {
		event = event.Int("min_value", *cfg.MinValue)
	}
	if cfg.MaxValue != nil {
		event = event.Int("max_value", *cfg.MaxValue)
	}
	event.Msg("Configuration loaded")
}
