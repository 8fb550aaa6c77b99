package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

func printJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printChecks(w io.Writer, checks []checkResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tPATH\tSTATUS\tRESULT")
	for _, c := range checks {
		status := "-"
		if c.Status != 0 {
			status = fmt.Sprintf("%d", c.Status)
		}
		result := "PASS"
		if !c.Passed {
			result = "FAIL"
			if c.Error != "" {
				result += " (" + c.Error + ")"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, c.Path, status, result)
	}
	tw.Flush()
}
