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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"example.com/workoutlog/internal/api"
	"example.com/workoutlog/internal/config"
	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/observability"
	"example.com/workoutlog/internal/presenter"
	httptransport "example.com/workoutlog/internal/transport/http"
	"example.com/workoutlog/internal/view"
)

// load reads the environment and applies any flags given on the command line.
func load(c *cli.Context) (config.Config, error) {
	cfg := config.Load()
	if c.IsSet("addr") {
		cfg.HTTPAddress = c.String("addr")
	}
	if c.IsSet("store") {
		cfg.StoreDriver = c.String("store")
	}
	if c.IsSet("store-path") {
		cfg.StorePath = c.String("store-path")
	}
	if c.IsSet("postgres-url") {
		cfg.PostgresURL = c.String("postgres-url")
	}
	if c.IsSet("storage-key") {
		cfg.StorageKey = c.String("storage-key")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, cfg.Validate()
}

func serve(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer st.Close()

	registry, err := domain.Open(ctx, st.snapshot,
		domain.WithLogger(log.Logger.With().Str("component", "registry").Logger()),
		domain.WithObserver(observability.RegistryObserver{}))
	if err != nil {
		return err
	}
	observability.SetWorkouts(registry.Len())

	screen := view.NewScreen()
	coordinator := presenter.New(registry, screen.Views(),
		presenter.WithLogger(log.Logger.With().Str("component", "coordinator").Logger()),
		presenter.WithZoom(cfg.MapZoom))
	coordinator.Open()

	if cfg.HasHome {
		home := domain.Coords{cfg.HomeLat, cfg.HomeLng}
		err = coordinator.Locate(ctx, presenter.PositionFunc(func(context.Context) (domain.Coords, error) {
			return home, nil
		}))
		if err != nil {
			return err
		}
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(httptransport.RequestLogger(log.Logger))
	router.Use(httptransport.CORS(cfg.CORSOrigins))
	api.NewHandler(coordinator, screen, log.Logger).RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}, router)

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		log.Info().Str("address", cfg.HTTPAddress).Str("store", cfg.StoreDriver).Int("workouts", registry.Len()).Msg("serving")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	grp.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return grp.Wait()
}

func list(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	st, err := openStore(c.Context, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer st.Close()

	registry, err := domain.Open(c.Context, st.snapshot, domain.WithLogger(log.Logger))
	if err != nil {
		return err
	}
	for _, w := range registry.All() {
		var metric string
		switch w.Kind {
		case domain.KindRunning:
			metric = fmt.Sprintf("%.1f min/km  %d spm", w.Pace(), w.Cadence)
		case domain.KindCycling:
			metric = fmt.Sprintf("%.1f km/h  %.0f m", w.Speed(), w.Elevation)
		}
		fmt.Fprintf(c.App.Writer, "%s  %s %s  %.2f km  %.0f min  %s\n",
			w.ID, presenter.Icon(w.Kind), w.Description, w.Distance, w.Duration, metric)
	}
	return nil
}

func reset(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	st, err := openStore(c.Context, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.snapshot.Reset(c.Context); err != nil {
		return err
	}
	log.Info().Str("store", cfg.StoreDriver).Str("key", cfg.StorageKey).Msg("workouts cleared")
	return nil
}

func main() {
	app := &cli.App{
		Name:     "workoutlog",
		HelpName: "workoutlog",
		Usage:    "Map based running and cycling log",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (trace, debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "store driver: file, memory or postgres",
			},
			&cli.StringFlag{
				Name:  "store-path",
				Usage: "directory for the file store",
			},
			&cli.StringFlag{
				Name:  "postgres-url",
				Usage: "connection string for the postgres store",
			},
			&cli.StringFlag{
				Name:  "storage-key",
				Usage: "key the workouts are stored under",
			},
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			log.Error().Err(err).Msg(c.App.Name)
		},
		Before: func(c *cli.Context) error {
			level := zerolog.InfoLevel
			name := c.String("log-level")
			if name == "" {
				name = os.Getenv("LOG_LEVEL")
			}
			if name != "" {
				parsed, err := zerolog.ParseLevel(name)
				if err != nil {
					return err
				}
				level = parsed
			}
			zerolog.SetGlobalLevel(level)
			zerolog.DurationFieldUnit = time.Millisecond
			zerolog.DurationFieldInteger = false
			log.Logger = log.Output(
				zerolog.ConsoleWriter{
					Out:        c.App.ErrWriter,
					NoColor:    false,
					TimeFormat: time.RFC3339,
				},
			)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "serve the workout map API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "address to listen on",
					},
				},
				Action: serve,
			},
			{
				Name:   "list",
				Usage:  "print the stored workouts",
				Action: list,
			},
			{
				Name:   "reset",
				Usage:  "delete every stored workout",
				Action: reset,
			},
		},
		DefaultCommand: "serve",
	}
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}
