package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formkit/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "formkit",
	Short: "Render, fill and serve declarative forms",
	Long: `formkit builds forms from declarative definition files or OpenAPI operations and
renders them as HTML, fills them from the terminal, or serves them over HTTP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("schema", "", "Form definition file or directory (JSON/YAML)")
	flags.String("form", "", "Form id inside the definition (optional when only one form exists)")
	flags.String("openapi", "", "OpenAPI document path or URL to scaffold from")
	flags.String("operation", "", "OpenAPI operation id, or <method>:<path>")
	flags.String("model", "", "JSON file with the initial model")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", raw, err)
	}
	return logging.New(level), nil
}
