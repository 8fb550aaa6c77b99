package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// Version is the boardctl version, injected at build time:
//
//	go build -ldflags "-X github.com/canvasboard/backend/internal/cli.Version=1.2.3"
var Version = "dev"

func newVersionCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show boardctl and server version",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			var resp Response[VersionInfo]
			serverErr := NewClient(opts.serverURL, 5*time.Second).Get(ctx, "/api/version", &resp)

			if opts.json {
				type jsonOut struct {
					CLIVersion    string `json:"cliVersion"`
					ServerVersion string `json:"serverVersion,omitempty"`
					APIVersion    string `json:"apiVersion,omitempty"`
					ServerError   string `json:"serverError,omitempty"`
				}
				out := jsonOut{CLIVersion: Version}
				if serverErr == nil {
					out.ServerVersion = resp.Data.Version
					out.APIVersion = resp.Data.APIVersion
				} else {
					out.ServerError = serverErr.Error()
				}
				printJSON(opts.out, out)
				return nil
			}

			fmt.Fprintf(opts.out, "boardctl: %s\n", Version)
			if serverErr != nil {
				fmt.Fprintf(opts.out, "server:   unavailable (%v)\n", serverErr)
				return nil
			}
			fmt.Fprintf(opts.out, "server:   %s %s (api %s)\n", resp.Data.Name, resp.Data.Version, resp.Data.APIVersion)
			return nil
		},
	}
}
