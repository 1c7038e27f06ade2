// Command issuereport loads an issue-tracker export, applies filters and
// prints the resulting dashboard. It can also write the filtered rows to a
// CSV or XLSX file.
//
// Usage:
//
//	issuereport -file issues.csv -status Open,Closed -assignee ana -json
//	issuereport -file issues.xlsx -none-selected Priority -out filtered.xlsx
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"issuepulse/internal/dataprocessing"
	"issuepulse/internal/exporter"
	"issuepulse/internal/infrastructure"
	"issuepulse/pkg/contracts"
	"issuepulse/pkg/contracts/domain"
)

type options struct {
	file         string
	filters      map[domain.FilterColumn]string
	noneSelected string
	out          string
	json         bool
	logLevel     string
	version      bool
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("issuereport failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("issuereport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{filters: make(map[domain.FilterColumn]string)}
	fs.StringVar(&opts.file, "file", "", "issue export to load (.csv, .tsv, .xlsx, .json)")
	status := fs.String("status", "", "comma-separated Status values to keep")
	assignee := fs.String("assignee", "", "comma-separated Assignee values to keep")
	issueType := fs.String("type", "", "comma-separated Issue Type values to keep")
	priority := fs.String("priority", "", "comma-separated Priority values to keep")
	fs.StringVar(&opts.noneSelected, "none-selected", "", "comma-separated filter columns with nothing selected")
	fs.StringVar(&opts.out, "out", "", "write the filtered rows to this .csv or .xlsx file")
	fs.BoolVar(&opts.json, "json", false, "print the dashboard as JSON")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	fs.BoolVar(&opts.version, "version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.version {
		return opts, nil
	}
	if opts.file == "" {
		fs.Usage()
		return nil, errors.New("-file is required")
	}

	opts.filters[domain.FilterStatus] = *status
	opts.filters[domain.FilterAssignee] = *assignee
	opts.filters[domain.FilterIssueType] = *issueType
	opts.filters[domain.FilterPriority] = *priority
	return opts, nil
}

// buildSelection turns the filter flags into a selection. Columns without a
// flag stay unconstrained.
func buildSelection(filters map[domain.FilterColumn]string, noneSelected string) (domain.FilterSelection, error) {
	sel := dataprocessing.DefaultSelection(true)

	for _, col := range domain.FilterColumns {
		if values := splitList(filters[col]); len(values) > 0 {
			sel = sel.With(col, values...)
		}
	}

	for _, name := range splitList(noneSelected) {
		col, err := filterColumn(name)
		if err != nil {
			return domain.FilterSelection{}, err
		}
		if len(splitList(filters[col])) > 0 {
			return domain.FilterSelection{}, fmt.Errorf("column %q has values and is also listed in -none-selected", col)
		}
		sel = sel.With(col)
	}
	return sel, nil
}

// filterColumn accepts either the column header or its flag name
func filterColumn(name string) (domain.FilterColumn, error) {
	switch strings.ToLower(name) {
	case "status":
		return domain.FilterStatus, nil
	case "assignee":
		return domain.FilterAssignee, nil
	case "type", "issue type":
		return domain.FilterIssueType, nil
	case "priority":
		return domain.FilterPriority, nil
	}
	return "", fmt.Errorf("unknown filter column %q", name)
}

func splitList(raw string) []string {
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetVersionString())
		return nil
	}
	logger := infrastructure.NewLogger(stderr, opts.logLevel)

	sel, err := buildSelection(opts.filters, opts.noneSelected)
	if err != nil {
		return err
	}

	table, err := load(opts.file)
	if err != nil {
		return err
	}
	logger.Info("Loaded issues",
		slog.String("file", opts.file),
		slog.Int("rows", table.Len()),
		slog.Int("duplicates_dropped", table.DuplicatesDropped))

	dashboard := dataprocessing.NewSummarizer(logger, dataprocessing.DefaultSummarizerConfig()).Build(ctx, table, sel)

	if opts.out != "" {
		filtered := dataprocessing.Filter(table, sel)
		path, err := exporter.NewFileWriter(nil, logger).WriteFile(opts.out, filtered)
		if err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		fmt.Fprintf(stderr, "exported %d rows to %s\n", filtered.Len(), path)
	}

	if opts.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dashboard)
	}
	printDashboard(stdout, dashboard)
	return nil
}

func load(path string) (*domain.IssueTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return dataprocessing.ParseUpload(f, filepath.Base(path))
}

func printDashboard(w io.Writer, d *domain.Dashboard) {
	fmt.Fprintf(w, "Source:          %s\n", d.Source)
	fmt.Fprintf(w, "Issues:          %d of %d\n", d.FilteredIssues, d.TotalIssues)
	fmt.Fprintf(w, "Mean resolution: %s (overall %s)\n",
		days(d.FilteredMeanResolutionDays), days(d.MeanResolutionDays))

	section(w, "Status (all issues)", d.StatusCounts)

	if len(d.ResolutionByAssignee) > 0 {
		fmt.Fprintf(w, "\nResolution by assignee\n")
		for _, g := range d.ResolutionByAssignee {
			fmt.Fprintf(w, "  %-24s %8.2f days  %5d issues\n", label(g.Group), g.MeanDays, g.Issues)
		}
	}

	for _, chart := range d.Charts {
		section(w, chart.Title, chart.Counts)
	}

	section(w, "Completion", d.Completion)
}

func section(w io.Writer, title string, counts []domain.ValueCount) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	for _, c := range counts {
		fmt.Fprintf(w, "  %-24s %5d\n", label(c.Value), c.Count)
	}
}

func days(v domain.OptionalFloat) string {
	if !v.Available {
		return "n/a"
	}
	return fmt.Sprintf("%.2f days", v.Value)
}

func label(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}
