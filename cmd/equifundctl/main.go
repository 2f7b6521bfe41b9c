package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/equifund/backend/internal/app"
	"github.com/equifund/backend/internal/config"
	"github.com/equifund/backend/internal/events"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootArgs struct {
	verbose bool
}

var rootCmd = &cobra.Command{
	Use:           "equifundctl",
	Short:         "Operate EquiFund rounds, projects and contributions from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&rootArgs.verbose, "verbose", "v", false, "log debug output")
	rootCmd.AddCommand(roundCmd(), projectCmd(), donorCmd(), tokenCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !rootArgs.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// withCore runs fn against a core built from the environment. The CLI keeps its cache
// in process, journals nothing and reports action progress on stderr.
func withCore(cmd *cobra.Command, fn func(ctx context.Context, core *app.Core) error) error {
	log := newLogger()
	defer log.Sync()

	cfg := config.Load()
	cfg.CacheBackend = config.CacheBackendMemory
	if err := cfg.Validate(log); err != nil {
		return err
	}

	ctx := cmd.Context()
	bus := events.NewLocalBus()
	_ = bus.Subscribe(ctx, events.StreamActions, func(e events.Event) {
		printEvent(cmd.ErrOrStderr(), e)
	})

	core, err := app.NewCore(ctx, cfg, app.Options{Publisher: bus}, log)
	if err != nil {
		return err
	}
	defer core.Close()
	return fn(ctx, core)
}

func printEvent(w io.Writer, e events.Event) {
	line := fmt.Sprintf("%s %v", e.Type, e.Payload["kind"])
	if tx, ok := e.Payload["tx_hash"]; ok {
		line += fmt.Sprintf(" tx=%v", tx)
	}
	if msg, ok := e.Payload["error"]; ok {
		line += fmt.Sprintf(" error=%q", msg)
	}
	fmt.Fprintln(w, line)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
