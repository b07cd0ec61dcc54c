package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/packlist/internal/config"
	"github.com/a3tai/packlist/internal/convert"
	"github.com/a3tai/packlist/internal/export"
	"github.com/a3tai/packlist/internal/extract"
	"github.com/a3tai/packlist/internal/pdf"
)

// Exit codes
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// FileResult is the outcome for one input document
type FileResult struct {
	Input   string `json:"input"`
	Output  string `json:"output,omitempty"`
	Records int    `json:"records"`
	Pages   int    `json:"pages"`
	NoData  bool   `json:"no_data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type options struct {
	out         string
	format      export.Format
	jobs        int
	maxFileSize int64
	jsonReport  bool
	verbose     bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run parses args, converts every input and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, inputs, err := parseArgs(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		printUsage(stderr)
		return exitUsage
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	files, err := collectInputs(inputs, opts.maxFileSize)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailed
	}
	if len(files) == 0 {
		fmt.Fprintf(stderr, "Error: no PDF files found\n")
		return exitFailed
	}

	if err := os.MkdirAll(opts.out, config.DefaultDirPerm); err != nil {
		fmt.Fprintf(stderr, "Error: cannot create output directory: %v\n", err)
		return exitFailed
	}

	svc, err := convert.NewService(nil, opts.maxFileSize, convert.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailed
	}

	results := convertAll(ctx, svc, files, opts, logger)

	if opts.jsonReport {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(results)
	} else {
		printResults(stdout, results)
	}

	failed, noData := summarize(results)
	fmt.Fprintf(stderr, "converted %d of %d document(s), %d without data, %d failed\n",
		len(results)-failed, len(results), noData, failed-noData)
	if failed > 0 {
		return exitFailed
	}
	return exitOK
}

func parseArgs(args []string, stderr io.Writer) (*options, []string, error) {
	fs := pflag.NewFlagSet("packlist", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(stderr)
		fmt.Fprintln(stderr, "\nOPTIONS:")
		fs.PrintDefaults()
	}

	out := fs.StringP("out", "o", ".", "Directory to write converted files to")
	format := fs.StringP("format", "f", "csv", "Output format: csv or xlsx")
	jobs := fs.IntP("jobs", "j", runtime.NumCPU(), "Number of documents converted concurrently")
	maxFileSize := fs.Int64("maxfilesize", config.DefaultMaxFileSize, "Maximum PDF file size in bytes")
	jsonReport := fs.Bool("json", false, "Print the per-file report as JSON")
	verbose := fs.BoolP("verbose", "v", false, "Enable verbose output")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	f, err := export.ParseFormat(*format)
	if err != nil {
		return nil, nil, err
	}
	if *jobs < 1 {
		return nil, nil, fmt.Errorf("--jobs must be at least 1")
	}
	if *maxFileSize <= 0 {
		return nil, nil, fmt.Errorf("--maxfilesize must be positive")
	}
	if fs.NArg() == 0 {
		return nil, nil, fmt.Errorf("PDF file or directory required")
	}

	return &options{
		out:         *out,
		format:      f,
		jobs:        *jobs,
		maxFileSize: *maxFileSize,
		jsonReport:  *jsonReport,
		verbose:     *verbose,
	}, fs.Args(), nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  packlist [OPTIONS] <file-or-directory>...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Converts packing-list PDFs to CSV or XLSX. Directories are searched")
	fmt.Fprintln(w, "recursively for .pdf files.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  packlist shipment.pdf")
	fmt.Fprintln(w, "  packlist --format xlsx --out converted/ inbox/")
	fmt.Fprintln(w, "  packlist --jobs 4 --json a.pdf b.pdf")
}

// collectInputs expands directories into the PDFs they contain. Plain file
// arguments are kept as given so that bad inputs are reported per file.
func collectInputs(inputs []string, maxFileSize int64) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil || !info.IsDir() {
			add(in)
			continue
		}
		found, err := pdf.FindPDFs(in, "", maxFileSize)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f.Path)
		}
	}
	return files, nil
}

// outputNames assigns each input a distinct output path in dir. Names are
// compared case-insensitively so they stay distinct on any filesystem.
func outputNames(files []string, dir string, format export.Format) []string {
	names := make([]string, len(files))
	taken := make(map[string]bool)
	for i, f := range files {
		stem := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		name := stem
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = stem + "_" + strconv.Itoa(n)
		}
		taken[strings.ToLower(name)] = true
		names[i] = filepath.Join(dir, name+format.Ext())
	}
	return names
}

// convertAll converts files with at most opts.jobs running at once. A
// failing document never stops the others.
func convertAll(ctx context.Context, svc *convert.Service, files []string, opts *options, logger *slog.Logger) []FileResult {
	results := make([]FileResult, len(files))
	outputs := outputNames(files, opts.out, opts.format)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs)

	for i, file := range files {
		g.Go(func() error {
			res := convertOne(ctx, svc, file, outputs[i], opts.format)
			if res.Error != "" {
				logger.Debug("conversion failed", "file", file, "error", res.Error)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func convertOne(ctx context.Context, svc *convert.Service, input, output string, format export.Format) FileResult {
	res := FileResult{Input: input}

	rs, err := svc.ExtractFile(ctx, input)
	if err != nil {
		res.NoData = errors.Is(err, extract.ErrNoData)
		res.Error = err.Error()
		return res
	}
	res.Records = rs.Len()
	res.Pages = rs.PagesScanned

	if err := writeOutput(output, rs, format); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Output = output
	return res
}

func writeOutput(path string, rs *extract.RecordSet, format export.Format) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	if format == export.FormatXLSX {
		return export.WriteXLSX(f, rs)
	}
	return export.WriteCSV(f, rs)
}

func printResults(w io.Writer, results []FileResult) {
	for _, r := range results {
		switch {
		case r.Error == "":
			fmt.Fprintf(w, "ok    %s -> %s (%d records)\n", r.Input, r.Output, r.Records)
		case r.NoData:
			fmt.Fprintf(w, "empty %s: no valid data extracted\n", r.Input)
		default:
			fmt.Fprintf(w, "fail  %s: %s\n", r.Input, r.Error)
		}
	}
}

// summarize counts failed documents; noData is the subset without matches
func summarize(results []FileResult) (failed, noData int) {
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
		if r.NoData {
			noData++
		}
	}
	return failed, noData
}
