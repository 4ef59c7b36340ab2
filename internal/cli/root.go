// Package cli holds the vitebridge command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"vitebridge/internal/config"
)

// Exit codes returned by Execute.
const (
	exitSuccess = 0
	exitFailure = 1
)

// version is set at build time via -ldflags "-X vitebridge/internal/cli.version=..."
var version = "dev"

// rootState is shared by the subcommands of one command tree.
type rootState struct {
	configFile string
	cfg        config.Config
	logOut     io.Writer
}

// NewRootCmd builds the command tree. Running it without a subcommand serves.
func NewRootCmd() *cobra.Command {
	st := &rootState{logOut: os.Stderr}

	root := &cobra.Command{
		Use:           "vitebridge",
		Short:         "JSON items API with a front-end dev server proxy",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(st.configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			st.cfg = cfg
			slog.SetDefault(newLogger(st.logOut, cfg))
			if cfg.CSRFKeyGenerated {
				slog.Warn("config_event", "event", "csrf_key_generated", "hint", "set CSRF_KEY to keep tokens valid across restarts")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), st.cfg)
		},
	}
	root.PersistentFlags().StringVar(&st.configFile, "config", "", "optional YAML config file (environment variables override it)")

	root.AddCommand(newServeCmd(st))
	root.AddCommand(newInitDBCmd(st))
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the command tree against os.Args and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitFailure
	}
	return exitSuccess
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
