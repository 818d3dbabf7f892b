// Command normalize converts a saved report generator CSV into the
// normalized JSON rows the loader would write. It applies the same header
// renaming, parsing and region filter as a live run, which makes it useful
// for building test fixtures and for inspecting a download offline.
//
// Usage:
//
//	go run ./cmd/normalize \
//	  -in tahoe_2018.csv \
//	  -region huc:16050101 \
//	  -filter-state CA \
//	  -out tahoe_2018.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "normalize:", err)
		os.Exit(1)
	}
}

// output is the JSON document written by normalize.
type output struct {
	Region   string        `json:"region"`
	Filtered int           `json:"filtered"`
	Rows     []domain.Row  `json:"rows"`
	Edges    []domain.Edge `json:"edges"`
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("normalize", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	in := fs.String("in", "-", "CSV report file, or - for stdin")
	out := fs.String("out", "-", "JSON output file, or - for stdout")
	region := fs.String("region", "state:CA", "region the report was requested for")
	filterState := fs.String("filter-state", "CA", "state whose rows are kept; empty disables the filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg, err := domain.ParseRegion(*region)
	if err != nil {
		return err
	}

	r := stdin
	if *in != "-" {
		f, err := os.Open(*in)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	rows, err := domain.ParseReport(r)
	if err != nil {
		return fmt.Errorf("%s: %w", *in, err)
	}

	filter := domain.RegionFilter{State: *filterState}
	kept, removed := filter.Apply(domain.Request{Region: reg}, rows)

	doc := output{Region: reg.String(), Filtered: removed, Rows: kept, Edges: make([]domain.Edge, len(kept))}
	for i, row := range kept {
		doc.Edges[i] = row.Edge()
	}
	if doc.Rows == nil {
		doc.Rows = []domain.Row{}
	}

	if *out == "-" {
		return writeJSON(stdout, doc)
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := writeJSON(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
