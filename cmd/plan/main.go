// Command plan prints the report requests a load would issue, without
// touching the network or the database.
//
// Usage:
//
//	go run ./cmd/plan \
//	  -start 2017-04-01 -end 2021-05-16 \
//	  -regions huc:16050101,huc:16050102,state:CA \
//	  -months 12 -format text
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "plan:", err)
		os.Exit(1)
	}
}

type planEntry struct {
	Region string `json:"region"`
	Start  string `json:"start"`
	End    string `json:"end"`
	URL    string `json:"url"`
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	start := fs.String("start", domain.DefaultDateRange.Start.Format(domain.DateLayout), "first day (YYYY-MM-DD)")
	end := fs.String("end", domain.DefaultDateRange.End.Format(domain.DateLayout), "last day (YYYY-MM-DD)")
	months := fs.Int("months", domain.MaxSliceMonths, "window size in months (1-12)")
	regions := fs.String("regions", domain.FormatRegions(domain.DefaultRegions), "comma-separated <type>:<code> list")
	baseURL := fs.String("base-url", domain.DefaultReportBaseURL, "report generator base URL")
	format := fs.String("format", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *months < 1 || *months > domain.MaxSliceMonths {
		return fmt.Errorf("-months must be between 1 and %d", domain.MaxSliceMonths)
	}
	rng, err := domain.ParseDateRange(*start, *end)
	if err != nil {
		return err
	}
	regs, err := domain.ParseRegions(*regions)
	if err != nil {
		return err
	}
	reqs, err := domain.DefineRequests(regs, rng, *months, nil)
	if err != nil {
		return err
	}

	entries := make([]planEntry, len(reqs))
	for i, req := range reqs {
		entries[i] = planEntry{
			Region: req.Region.String(),
			Start:  req.Range.Start.Format(domain.DateLayout),
			End:    req.Range.End.Format(domain.DateLayout),
			URL:    domain.BuildURL(*baseURL, req),
		}
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "text":
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tREGION\tSTART\tEND\tURL")
		for i, e := range entries {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, e.Region, e.Start, e.End, e.URL)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d requests\n", len(entries))
		return nil
	default:
		return fmt.Errorf("unknown -format %q", *format)
	}
}
