package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/bananadoro/go/internal/dbconfig"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/config"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/engine"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/events"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/gateway"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/settings"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the session gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default $"+config.PathEnv+")")
	return cmd
}

func setupLogging(cfg config.Config) {
	if strings.EqualFold(cfg.LogFormat, "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func runServe(ctx context.Context, cfg config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engineCfg := cfg.Engine()
	opts := []engine.Option{engine.WithMetrics(engine.NewMetrics(reg))}

	if cfg.NATSURL != "" {
		nc, err := connectNATS(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := nc.Drain(); err != nil {
				log.Error().Err(err).Msg("failed to drain NATS connection")
			}
		}()
		opts = append(opts, engine.WithPublisher(events.NewNATSPublisher(nc, cfg.NATSSubject)))
	}

	if cfg.SettingsEnabled {
		pool, err := openSettingsPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		opts = append(opts, engine.WithDefaultsProvider(settings.NewPostgresStore(pool, engineCfg.Defaults)))
	} else {
		opts = append(opts, engine.WithDefaultsProvider(settings.StaticStore{Durations: engineCfg.Defaults}))
	}

	e := engine.New(engineCfg, opts...)

	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.ConnectionConfig.CheckOrigin = originChecker(cfg.AllowedOrigins)
	svc := gateway.NewService(gatewayCfg, e)

	server := setupServer(cfg, svc, reg)

	serviceDone := make(chan error, 1)
	go func() { serviceDone <- svc.Start(ctx) }()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Dur("tick_interval", engineCfg.TickInterval).
			Dur("reap_grace_period", engineCfg.ReapGracePeriod).
			Str("version", version).
			Msg("starting bananadoro")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}

	select {
	case <-serviceDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("gateway did not stop before shutdown timeout")
	}
	return nil
}

func connectNATS(cfg config.Config) (*nats.Conn, error) {
	natsCfg := events.DefaultNATSConfig()
	natsCfg.URL = cfg.NATSURL
	natsCfg.Subject = cfg.NATSSubject

	nc, err := events.Connect(natsCfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("url", nc.ConnectedUrl()).Str("subject", cfg.NATSSubject).Msg("publishing session events to NATS")
	return nc, nil
}

func openSettingsPool(ctx context.Context) (*pgxpool.Pool, error) {
	dbCfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		return nil, err
	}
	pool, err := settings.OpenPool(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("database", dbCfg.Database).Msg("reading user settings from Postgres")
	return pool, nil
}
