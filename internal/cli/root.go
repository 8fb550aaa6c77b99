// Package cli implements boardctl, the operations tool for the whiteboard API.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/canvasboard/backend/internal/config"
	"github.com/canvasboard/backend/pkg/logger"
	"github.com/spf13/cobra"
)

const defaultServerURL = "http://localhost:5000"

type options struct {
	serverURL string
	json      bool
	out       io.Writer

	// loadConfig is swapped in tests.
	loadConfig func() (*config.Config, error)
}

func serverURLFromEnv() string {
	if u := os.Getenv("BOARDCTL_URL"); u != "" {
		return u
	}
	if port := os.Getenv("PORT"); port != "" {
		return "http://localhost:" + port
	}
	return defaultServerURL
}

// NewRootCommand builds the boardctl command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{out: out, loadConfig: config.Load}

	root := &cobra.Command{
		Use:   "boardctl",
		Short: "Operate a whiteboard API deployment",
		Long: `boardctl prepares the database, probes a running server and repairs
derived data.

Examples:
  boardctl init-db                 Create the app user, collections and indexes
  boardctl healthcheck             Exit 0 when /api/health answers 200
  boardctl smoke --url http://api  Run the post-deploy smoke checks
  boardctl repair                  Rebuild per-user board lists`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.serverURL, "url", serverURLFromEnv(), "Server base URL (env BOARDCTL_URL)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Output as JSON")

	root.AddCommand(
		newInitDBCommand(opts),
		newHealthcheckCommand(opts),
		newSmokeCommand(opts),
		newRepairCommand(opts),
		newVersionCommand(opts),
	)
	return root
}

// Execute runs boardctl with the process arguments.
func Execute() error {
	if err := NewRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// setupDatabaseCommand loads configuration and routes logs to stderr so
// command output stays clean.
func (o *options) setupDatabaseCommand() (*config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: os.Stderr})
	return cfg, nil
}
