package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"geotrace/internal/config"
	"geotrace/internal/database"
)

const usage = `Usage: geotrace <command> [flags]

Commands:
  trace <target>   Run a traceroute through the GeoTraceroute service
  serve            Serve recorded runs and metrics, optionally tracing --targets
  history          List recorded runs
  report           Write chart, summary and route of a recorded run

Run 'geotrace <command> --help' for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	command := os.Args[1]
	switch command {
	case "trace", "serve", "history", "report":
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	// Parse configuration
	cfg, err := config.ParseFlags(command, os.Args[2:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(cfg.Verbose, command == "serve")
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "trace":
		err = runTrace(ctx, cfg, logger)
	case "serve":
		err = runServe(ctx, cfg, logger)
	case "history":
		err = runHistory(cfg, logger)
	case "report":
		err = runReport(cfg, logger)
	}

	if err != nil {
		logger.Sync()
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// newLogger builds the process logger. Interactive commands only log
// warnings unless verbose, since their results go to stdout.
func newLogger(verbose, service bool) *zap.Logger {
	var zcfg zap.Config
	switch {
	case verbose:
		zcfg = zap.NewDevelopmentConfig()
	case service:
		zcfg = zap.NewProductionConfig()
	default:
		zcfg = zap.NewProductionConfig()
		zcfg.Encoding = "console"
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
	}

	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// openDB opens the run history and makes sure the schema exists
func openDB(cfg config.Config) (*database.DB, error) {
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
