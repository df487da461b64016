// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"lexredact/internal/config"
	"lexredact/internal/formatters"
	_ "lexredact/internal/formatters/csv"
	_ "lexredact/internal/formatters/json"
	_ "lexredact/internal/formatters/text"
	_ "lexredact/internal/formatters/yaml"
	"lexredact/internal/help"
	"lexredact/internal/observability"
	"lexredact/internal/paths"
	"lexredact/internal/redactors"
	"lexredact/internal/version"
)

// Exit codes
const (
	exitOK       = 0
	exitError    = 1
	exitDegraded = 2
)

// cliFlags holds command line flag values
type cliFlags struct {
	inputFile     string
	configFile    string
	profileName   string
	listProfiles  bool
	outputDir     string
	reportFile    string
	format        string
	mappingFormat string
	storePath     string
	listsFile     string
	depth         string
	types         string
	keywords      []string
	docType       string
	workers       int
	observability string
	review        bool
	dryRun        bool
	strict        bool
	verbose       bool
	debug         bool
	noColor       bool
	quiet         bool
	showVersion   bool
	showHelp      bool
	explain       string
}

func parseFlags(args []string) (*cliFlags, *flag.FlagSet, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("lexredact", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVarP(&f.inputFile, "file", "f", "", "Input document: .pdf, .json page document, .txt, or an image")
	fs.StringVarP(&f.configFile, "config", "c", "", "Path to configuration file (YAML)")
	fs.StringVar(&f.profileName, "profile", "", "Profile name to use from config file")
	fs.BoolVar(&f.listProfiles, "list-profiles", false, "List available profiles and exit")
	fs.StringVarP(&f.outputDir, "output-dir", "o", "", "Directory for the redacted outputs (default: next to the input)")
	fs.StringVar(&f.reportFile, "report", "", "Write the run report to this file instead of stdout")
	fs.StringVar(&f.format, "format", "", "Report format: text, json, csv, yaml")
	fs.StringVar(&f.mappingFormat, "mapping-format", "", "Mapping file format: text, json, csv, yaml")
	fs.StringVar(&f.storePath, "store", "", "Learned-entity database (bbolt); empty keeps decisions in memory")
	fs.StringVar(&f.listsFile, "lists", "", "Allow/deny lists file")
	fs.StringVar(&f.depth, "depth", "", "Detection depth: fast, balanced, thorough, maximum")
	fs.StringVar(&f.types, "types", "", "Comma-separated entity types to redact (default: all)")
	fs.StringSliceVarP(&f.keywords, "keyword", "k", nil, "Text always redacted as CUSTOM (repeatable)")
	fs.StringVar(&f.docType, "document-type", "", "Document genre: auto, general, legal, medical, administrative")
	fs.IntVar(&f.workers, "workers", 0, "Page worker count (default: from config)")
	fs.StringVar(&f.observability, "observability", "off", "Operation logging on stderr: off, metrics, debug")
	fs.BoolVar(&f.review, "review", false, "Confirm each proposed entity interactively before redacting")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Detect and report, write nothing")
	fs.BoolVar(&f.strict, "strict", false, "Exit with status 2 when the run was degraded")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Detailed report")
	fs.BoolVar(&f.debug, "debug", false, "Trace pipeline steps on stderr")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "Only print errors")
	fs.BoolVar(&f.showVersion, "version", false, "Show version information")
	fs.BoolVarP(&f.showHelp, "help", "h", false, "Show help information")
	fs.StringVar(&f.explain, "explain", "", "Describe an entity type, or 'types' to list them")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	if f.inputFile == "" && fs.NArg() > 0 {
		f.inputFile = fs.Arg(0)
	}
	return f, fs, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags, fs, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprintln(stderr, "Use 'lexredact --help' for usage.")
		return exitError
	}

	// Colors only when stdout is a terminal
	if flags.noColor || !isTerminal(stdout) || os.Getenv("NO_COLOR") != "" {
		flags.noColor = true
		color.NoColor = true
	}
	helpSystem := help.NewSystem(stdout, flags.noColor)

	switch {
	case flags.showHelp:
		helpSystem.ShowGeneralHelp(fs.FlagUsages())
		return exitOK
	case flags.showVersion:
		fmt.Fprintln(stdout, version.Info())
		return exitOK
	case flags.explain != "":
		if strings.EqualFold(flags.explain, "types") {
			helpSystem.ShowTypesHelp()
			return exitOK
		}
		if !helpSystem.ShowTypeHelp(flags.explain) {
			return exitError
		}
		return exitOK
	}

	var debugObs *observability.DebugObserver
	if flags.debug {
		debugObs = observability.NewDebugObserver(stderr)
		debugObs.LogDetail("main", fmt.Sprintf("Command line arguments: %v", args))
		if flags.observability == "off" {
			flags.observability = "debug"
		}
	}

	cfg, err := loadConfiguration(flags.configFile, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	if flags.listProfiles {
		printProfiles(stdout, cfg)
		return exitOK
	}
	if flags.profileName != "" {
		if err := cfg.ApplyProfile(flags.profileName); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		debugObs.LogDetail("config", "Applied profile "+flags.profileName)
	}
	if err := applyFlags(cfg, flags); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	if flags.inputFile == "" {
		fmt.Fprintln(stderr, "Error: --file is required")
		fmt.Fprintln(stderr, "Use 'lexredact --help' for usage.")
		return exitError
	}

	level, err := observability.ParseLevel(flags.observability)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	observer := observability.NewStandardObserver(level, stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	app := &application{
		cfg:      cfg,
		flags:    flags,
		observer: observer,
		debug:    debugObs,
		stdin:    os.Stdin,
		stdout:   stdout,
		stderr:   stderr,
	}
	report, err := app.process(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if redactors.IsType(err, redactors.ErrorCancelled) {
			fmt.Fprintf(stderr, "Nothing was written. Raise 'timeout' in the configuration (now %s) for large documents.\n", cfg.Timeout)
		}
		return exitError
	}
	if err := app.printReport(report); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	if flags.strict && report.IsDegraded() {
		return exitDegraded
	}
	return exitOK
}

// loadConfiguration loads the named configuration file. Without a name it
// searches the standard locations and falls back to defaults with a warning.
func loadConfiguration(configFile string, stderr io.Writer) (*config.Config, error) {
	if configFile != "" {
		return config.LoadConfig(configFile)
	}
	configPath := config.FindConfigFile()
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(stderr, "Using default configuration\n")
		return config.LoadConfigOrDefault(""), nil
	}
	return cfg, nil
}

// applyFlags lets explicitly set flags override the configuration
func applyFlags(cfg *config.Config, f *cliFlags) error {
	if f.format != "" {
		cfg.Defaults.Format = f.format
	}
	if f.mappingFormat != "" {
		cfg.Redaction.Format = f.mappingFormat
	}
	if f.outputDir != "" {
		cfg.Redaction.OutputDir = f.outputDir
	}
	if f.storePath != "" {
		cfg.Store.Path = f.storePath
	}
	if f.listsFile != "" {
		cfg.Policy.ListsFile = f.listsFile
	}
	if f.depth != "" {
		cfg.Detection.Depth = f.depth
	}
	if f.types != "" {
		cfg.Detection.EntityTypes = splitList(f.types)
	}
	if len(f.keywords) > 0 {
		cfg.Detection.Keywords = append(cfg.Detection.Keywords, f.keywords...)
	}
	if f.docType != "" {
		cfg.Detection.DocumentType = f.docType
	}
	if f.workers > 0 {
		cfg.Workers = f.workers
	}
	if f.verbose {
		cfg.Defaults.Verbose = true
	}
	if cfg.Transformer.LibraryPath == "" {
		cfg.Transformer.LibraryPath = paths.GetOnnxLibrary()
	}
	if _, err := formatters.Lookup(cfg.Defaults.Format); err != nil {
		return err
	}
	if _, err := formatters.Lookup(cfg.Redaction.Format); err != nil {
		return fmt.Errorf("mapping format: %w", err)
	}
	return config.ValidateConfig(cfg)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printProfiles(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Available profiles:")
	for _, name := range cfg.ListProfiles() {
		p := cfg.GetProfile(name)
		fmt.Fprintf(w, "  %-12s %s\n", name, p.Description)
	}
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
