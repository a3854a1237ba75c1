package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/berckan/tldscout/internal/config"
	"github.com/berckan/tldscout/internal/lookup"
	"github.com/berckan/tldscout/internal/models"
	"github.com/berckan/tldscout/internal/tld"
)

func main() {
	var (
		file       = flag.String("f", "", "read base names from a file (one per line)")
		tldList    = flag.String("tlds", "", "comma separated TLDs to check (default: configured list)")
		jsonMode   = flag.Bool("json", false, "print JSON instead of a table")
		extended   = flag.Bool("extended", false, "check the extended TLD list")
		verbose    = flag.Bool("v", false, "show registrar, expiry and notes")
		configPath = flag.String("config", "", "path to a YAML config file")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: scan [options] [name...]\n\n")
		fmt.Fprintf(os.Stderr, "options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nexamples:\n")
		fmt.Fprintf(os.Stderr, "  scan acme\n")
		fmt.Fprintf(os.Stderr, "  scan -tlds .io,.dev -json acme widget\n")
		fmt.Fprintf(os.Stderr, "  echo acme | scan -extended\n")
	}
	flag.Parse()

	names, err := readNames(*file, flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: max(level, slog.LevelWarn)}))

	var registry *tld.Registry
	if *extended {
		registry = tld.Extended()
	}
	service, err := lookup.NewFromConfig(cfg, registry, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tlds := splitCSV(*tldList)
	responses := make([]models.CheckResponse, 0, len(names))
	failed := false
	for _, name := range names {
		resp, err := service.Check(ctx, models.CheckRequest{BaseDomain: name, TLDs: tlds})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed = true
			continue
		}
		responses = append(responses, resp)
		if resp.Summary.Errors > 0 {
			failed = true
		}
	}

	if *jsonMode {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(responses); err != nil {
			fmt.Fprintln(os.Stderr, "json output:", err)
			os.Exit(1)
		}
	} else {
		for _, resp := range responses {
			printResponse(os.Stdout, resp, *verbose)
		}
	}
	if failed {
		os.Exit(1)
	}
}

// readNames reads names from a file, then stdin when piped, then args.
func readNames(file string, args []string) ([]string, error) {
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", file, err)
		}
		defer f.Close()
		return scanLines(f)
	}
	if isStdinPiped() {
		return scanLines(os.Stdin)
	}
	return args, nil
}

func scanLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func isStdinPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) == 0
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printResponse(w io.Writer, resp models.CheckResponse, verbose bool) {
	fmt.Fprintf(w, "%s  (%d checked in %dms)\n", resp.BaseDomain, resp.Summary.Total, resp.ExecutionTime)
	for _, r := range resp.Results {
		line := fmt.Sprintf("  %-32s %s", r.Domain, statusLabel(r))
		if r.Status == models.StatusError {
			line += "  " + r.Error
		}
		if verbose {
			line += details(r)
		}
		fmt.Fprintln(w, line)
	}
	s := resp.Summary
	fmt.Fprintf(w, "  available %d, taken %d, errors %d, unknown %d\n\n", s.Available, s.Taken, s.Errors, s.Unknown)
}

func statusLabel(r models.DomainResult) string {
	switch r.Status {
	case models.StatusAvailable:
		return "✓ available"
	case models.StatusTaken:
		return "✗ taken"
	case models.StatusError:
		return "! error"
	default:
		return "? " + string(r.Status)
	}
}

func details(r models.DomainResult) string {
	var b strings.Builder
	if d := r.WhoisData; d != nil {
		if d.Registrar != "" {
			b.WriteString("  registrar: " + d.Registrar)
		}
		if d.ExpirationDate != nil {
			b.WriteString("  expires: " + d.ExpirationDate.Format(time.DateOnly))
		}
	}
	if r.Note != "" {
		b.WriteString("  note: " + r.Note)
	}
	if r.RetryCount > 0 {
		fmt.Fprintf(&b, "  retries: %d", r.RetryCount)
	}
	return b.String()
}
