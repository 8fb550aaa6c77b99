package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

const healthcheckTimeout = 5 * time.Second

func newHealthcheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe /api/health; exits non-zero unless it answers 200",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), healthcheckTimeout)
			defer cancel()

			client := NewClient(opts.serverURL, healthcheckTimeout)
			status, _, err := client.Probe(ctx, "/api/health")
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			if status != http.StatusOK {
				return fmt.Errorf("health check failed: status %d", status)
			}
			fmt.Fprintln(opts.out, "healthy")
			return nil
		},
	}
}
