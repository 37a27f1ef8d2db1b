package bridge

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Run parses options, builds the service and serves until the transport
// closes or an interrupt arrives.
func Run(args []string) error {
	_ = godotenv.Load()

	options := &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		return err
	}
	logger := newLogger(options.Debug)
	if err := options.Init(logger); err != nil {
		return err
	}
	// Init may have enabled debug from the environment or config file.
	logger = newLogger(options.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service, err := New(ctx, options, logger)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigCh {
			if options.TestMode {
				logger.Warn().Msg("interrupt ignored in test mode")
				continue
			}
			logger.Info().Msg("interrupt received, shutting down")
			cancel()
			return
		}
	}()

	if options.HTTPAddr != "" {
		srv, err := service.HTTP(ctx, options.HTTPAddr)
		if err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
		logger.Info().Str("addr", options.HTTPAddr).Msg("serving MCP over HTTP")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	srv, err := service.Stdio(ctx)
	if err != nil {
		return err
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newLogger writes human-readable diagnostics to stderr; stdout belongs to
// the protocol transport.
func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
