package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hanpama/graphlib/internal/eventbus"
	"github.com/hanpama/graphlib/internal/otel"
	"github.com/hanpama/graphlib/internal/server"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("failed to run graphlib")
	}
}

func newApp(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "graphlib",
		Usage:   "Serve and inspect the example GraphQL schema",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error, fatal, panic)",
				Sources: cli.EnvVars("GRAPHLIB_LOG_LEVEL"),
				Value:   "info",
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			level, err := zerolog.ParseLevel(c.String("log-level"))
			if err != nil {
				return ctx, fmt.Errorf("failed to parse log level: %w", err)
			}
			log.Logger = log.Level(level)
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP GraphQL endpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "HTTP listen address",
						Sources: cli.EnvVars("GRAPHLIB_ADDR"),
						Value:   ":8080",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "per-request timeout",
						Value: 10 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "pretty-print JSON responses",
					},
					&cli.StringSliceFlag{
						Name:  "cors-origin",
						Usage: "allowed CORS origin, repeatable",
					},
					&cli.StringFlag{
						Name:    "otel-endpoint",
						Usage:   "OTLP collector endpoint",
						Sources: cli.EnvVars("OTEL_EXPORTER_OTLP_ENDPOINT"),
					},
					&cli.StringFlag{
						Name:    "otel-service",
						Usage:   "OpenTelemetry service name",
						Sources: cli.EnvVars("OTEL_SERVICE_NAME"),
						Value:   "graphlib",
					},
				},
				Action: serve,
			},
			{
				Name:  "sdl",
				Usage: "Print the example schema in SDL",
				Action: func(ctx context.Context, c *cli.Command) error {
					s, err := exampleSchema(newDirectory())
					if err != nil {
						return fmt.Errorf("build schema: %w", err)
					}
					_, err = io.WriteString(stdout, s.SDL())
					return err
				},
			},
		},
	}
}

func newHandler(c *cli.Command) (http.Handler, error) {
	s, err := exampleSchema(newDirectory())
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}

	opts := []server.Option{
		server.WithTimeout(c.Duration("timeout")),
		server.WithLogger(log.Logger),
	}
	if c.Bool("pretty") {
		opts = append(opts, server.WithPretty())
	}
	if origins := c.StringSlice("cors-origin"); len(origins) > 0 {
		opts = append(opts, server.WithCORS(origins...))
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", server.New(s, opts...))
	return mux, nil
}

func serve(ctx context.Context, c *cli.Command) error {
	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(c.String("otel-endpoint"), c.String("otel-service"))
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	h, err := newHandler(c)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: c.String("addr"), Handler: h}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("addr", srv.Addr).Msg("GraphQL server listening")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}
