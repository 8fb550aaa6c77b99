package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

const smokeTimeout = 10 * time.Second

type checkResult struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Status int    `json:"status,omitempty"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

type smokeCheck struct {
	name     string
	path     string
	accepted []int
}

var smokeChecks = []smokeCheck{
	{name: "health", path: "/api/health", accepted: []int{http.StatusOK}},
	{name: "api base", path: "/api", accepted: []int{http.StatusOK, http.StatusNotFound}},
}

func runSmokeChecks(ctx context.Context, client *Client, checks []smokeCheck) []checkResult {
	results := make([]checkResult, 0, len(checks))
	for _, check := range checks {
		result := checkResult{Name: check.name, Path: check.path}

		reqCtx, cancel := context.WithTimeout(ctx, smokeTimeout)
		status, _, err := client.Probe(reqCtx, check.path)
		cancel()

		result.Status = status
		if err != nil {
			result.Error = err.Error()
		} else {
			for _, code := range check.accepted {
				if status == code {
					result.Passed = true
					break
				}
			}
			if !result.Passed {
				result.Error = fmt.Sprintf("unexpected status %d", status)
			}
		}
		results = append(results, result)
	}
	return results
}

func newSmokeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "smoke",
		Short: "Run post-deploy smoke checks against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewClient(opts.serverURL, smokeTimeout)
			results := runSmokeChecks(cmd.Context(), client, smokeChecks)

			failed := 0
			for _, r := range results {
				if !r.Passed {
					failed++
				}
			}

			if opts.json {
				printJSON(opts.out, struct {
					Server  string        `json:"server"`
					Passed  int           `json:"passed"`
					Failed  int           `json:"failed"`
					Results []checkResult `json:"results"`
				}{opts.serverURL, len(results) - failed, failed, results})
			} else {
				fmt.Fprintf(opts.out, "Smoke checks against %s\n\n", opts.serverURL)
				printChecks(opts.out, results)
				fmt.Fprintf(opts.out, "\n%d passed, %d failed\n", len(results)-failed, failed)
			}

			if failed > 0 {
				return fmt.Errorf("%d smoke check(s) failed", failed)
			}
			return nil
		},
	}
}
