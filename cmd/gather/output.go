package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/cwygoda/gather/internal/domain"
)

type format string

const (
	formatTable format = "table"
	formatJSON  format = "json"
	formatYAML  format = "yaml"
)

func validateOutputFormat(f string) error {
	switch format(f) {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q: want table, json or yaml", f)
}

// render writes data in f. table is used for the table format.
func render(w io.Writer, f format, data any, table func(*tabwriter.Writer)) error {
	switch f {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

func renderEntries(w io.Writer, f format, entries []domain.Entry) error {
	if entries == nil {
		entries = []domain.Entry{}
	}
	return render(w, f, entries, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "#\tTITLE\tURL")
		for _, e := range entries {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", e.Index, e.Title, e.URL)
		}
	})
}

func renderFailures(w io.Writer, f format, failures []domain.Failure) error {
	if failures == nil {
		failures = []domain.Failure{}
	}
	return render(w, f, failures, func(tw *tabwriter.Writer) {
		if len(failures) == 0 {
			fmt.Fprintln(tw, "no failures")
			return
		}
		fmt.Fprintln(tw, "URL\tTITLE\tTASK\tDIAGNOSTIC")
		for _, fl := range failures {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", fl.URL, fl.Title, fl.Task, firstLine(fl.Diagnostic))
		}
	})
}

// firstLine keeps multi-line diagnostics on one table row.
func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i] + " ..."
		}
	}
	return s
}
