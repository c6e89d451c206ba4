package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/mcncl/jsontab/internal/config"
	"github.com/mcncl/jsontab/internal/converter"
	"github.com/mcncl/jsontab/internal/errors"
	"github.com/mcncl/jsontab/internal/formatter"
	"github.com/mcncl/jsontab/internal/logging"
	"github.com/mcncl/jsontab/internal/models"
)

// CLI defines the command-line interface
var CLI struct {
	Files       []string `arg:"" optional:"" help:"JSON files to convert. More than one requires --output-dir." type:"path"`
	Input       string   `help:"Path to input JSON file. If not specified, reads from stdin." short:"i" type:"path"`
	Output      string   `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
	OutputDir   string   `help:"Directory for batch output, one file per input." name:"output-dir" type:"path"`
	Format      string   `help:"Output format: csv, tsv, xlsx, markdown, table or sql. Inferred from --output when omitted." short:"f"`
	Config      string   `help:"Path to config file. Defaults to the nearest .jsontab.yml." short:"c" type:"path"`
	Sheet       string   `help:"Sheet name for xlsx output."`
	TableName   string   `help:"Table name for sql output." name:"table-name"`
	Delimiter   string   `help:"Field delimiter for csv output. Use 'tab' for a tab."`
	HeaderStyle string   `help:"Rewrite header labels: none, snake, camel, lower_camel or kebab." name:"header-style"`
	Border      string   `help:"Border for table output: rounded, ascii or none."`
	ScalarArray string   `help:"Labels for scalars in root arrays: index or value." name:"scalar-array"`
	ValueLabel  string   `help:"Column name used by --scalar-array=value." name:"value-label"`
	Strict      bool     `help:"Fail when a label repeats within one row instead of keeping the last value."`
	PgDSN       string   `help:"Load the table into PostgreSQL using this connection string." name:"pg-dsn"`
	PgTable     string   `help:"Target table for --pg-dsn." name:"pg-table"`
	LogLevel    string   `help:"Log level: debug, info, warn or error." name:"log-level"`
	LogFormat   string   `help:"Log format: text or json." name:"log-format"`
	Debug       bool     `help:"Enable debug logging." short:"d"`
	Version     bool     `help:"Show version information." short:"v"`
	Interactive bool     `help:"Run in interactive mode, allowing direct JSON input with Ctrl+D to process." short:"I"`
}

// Context holds the runtime context
type Context struct {
	Debug  bool
	Config *config.Config
	Logger *slog.Logger
}

// Version information
const (
	Version = "0.1.0"
)

func main() {
	parser := kong.Must(&CLI,
		kong.Name("jsontab"),
		kong.Description("A tool to convert JSON documents into flat tables"),
		kong.UsageOnError(),
	)

	if len(os.Args) == 1 && stdinIsTerminal() {
		CLI.Interactive = true
	}

	if _, err := parser.Parse(os.Args[1:]); err != nil {
		// kong.UsageOnError already printed the usage
		os.Exit(1)
	}

	if CLI.Version {
		fmt.Printf("jsontab version %s\n", Version)
		return
	}

	runCtx, err := newContext()
	if err == nil {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = run(logging.WithLogger(ctx, runCtx.Logger), runCtx)
		stop()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: jsontab --help\n")
		os.Exit(1)
	}
}

// overrides collects the flags that map onto config settings.
func overrides() config.CLIOverrides {
	o := config.CLIOverrides{
		Format:        CLI.Format,
		Delimiter:     CLI.Delimiter,
		SheetName:     CLI.Sheet,
		TableName:     CLI.TableName,
		HeaderStyle:   CLI.HeaderStyle,
		Border:        CLI.Border,
		ScalarArray:   CLI.ScalarArray,
		ValueLabel:    CLI.ValueLabel,
		PostgresDSN:   CLI.PgDSN,
		PostgresTable: CLI.PgTable,
		LogLevel:      CLI.LogLevel,
		LogFormat:     CLI.LogFormat,
	}
	if o.Format == "" && CLI.Output != "" {
		if f, ok := formatter.FormatFromPath(CLI.Output); ok {
			o.Format = string(f)
		}
	}
	if CLI.Strict {
		strict := true
		o.StrictDuplicates = &strict
	}
	if CLI.Debug {
		o.LogLevel = "debug"
	}
	return o
}

// newContext loads configuration and builds the logger.
func newContext() (*Context, error) {
	configPath := CLI.Config
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	cfg, err := config.LoadConfigWithCLI(configPath, overrides())
	if err != nil {
		return nil, errors.NewConfigError("failed to load configuration", err)
	}

	if files := inputs(); cfg.Output.SheetName == "" && len(files) == 1 {
		cfg.Output.SheetName = formatter.SheetNameFromPath(files[0])
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if configPath != "" {
		logger.Debug("Loaded config file.", "path", configPath)
	}
	return &Context{Debug: CLI.Debug, Config: cfg, Logger: logger}, nil
}

// inputs returns every input file named on the command line.
func inputs() []string {
	var files []string
	if CLI.Input != "" {
		files = append(files, CLI.Input)
	}
	return append(files, CLI.Files...)
}

// run executes the main program logic
func run(ctx context.Context, rc *Context) error {
	conv := converter.New(rc.Config, rc.Logger)

	files := inputs()
	logging.FromContext(ctx).Debug("Starting conversion.", "inputs", len(files), "format", conv.Format().String())
	if len(files) > 1 || CLI.OutputDir != "" {
		return runBatch(ctx, conv, files)
	}

	// 1. Parse and flatten the input
	tbl, err := convertInput(conv, files)
	if err != nil {
		return err
	}

	// 2. Deliver the table
	if conv.LoadsToPostgres() {
		n, err := conv.Load(ctx, tbl)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Loaded %d rows into PostgreSQL\n", n)
		return nil
	}
	return writeOutput(conv, tbl)
}

// runBatch converts several files into CLI.OutputDir.
func runBatch(ctx context.Context, conv *converter.Converter, files []string) error {
	if len(files) == 0 {
		return errors.NewInputError("batch mode needs input files", errors.ErrNoInput)
	}
	if CLI.OutputDir == "" {
		return errors.NewConfigError("more than one input file requires --output-dir", nil)
	}
	if CLI.Output != "" {
		return errors.NewConfigError("--output cannot be combined with several inputs, use --output-dir", nil)
	}
	if conv.LoadsToPostgres() {
		return errors.NewConfigError("--pg-dsn loads a single input only", nil)
	}

	results, err := conv.ConvertFiles(ctx, files, CLI.OutputDir)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(os.Stderr, "%s -> %s (%d rows)\n", r.Input, r.Output, r.Rows)
	}
	return nil
}

// convertInput reads JSON from the single input file or stdin
func convertInput(conv *converter.Converter, files []string) (*models.Table, error) {
	if len(files) == 1 {
		return conv.ConvertFile(files[0])
	}

	stdinInfo, err := os.Stdin.Stat()
	if err != nil {
		return nil, errors.NewInputError("failed to access stdin", err)
	}

	if (stdinInfo.Mode() & os.ModeCharDevice) != 0 {
		if CLI.Interactive {
			return readInteractiveInput(conv)
		}
		return nil, errors.NewInputError("no input provided", errors.ErrNoInput)
	}

	return conv.Convert(bufio.NewReader(os.Stdin))
}

// writeOutput writes the table to the output file or stdout
func writeOutput(conv *converter.Converter, tbl *models.Table) error {
	if CLI.Output != "" {
		if err := conv.WriteFile(CLI.Output, tbl); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", tbl.Len(), CLI.Output)
		return nil
	}

	if conv.Format().Binary() && stdoutIsTerminal() {
		return errors.NewOutputError(
			fmt.Sprintf("refusing to write %s to a terminal", conv.Format()),
			fmt.Errorf("use --output or redirect stdout"),
		)
	}

	out := bufio.NewWriter(os.Stdout)
	if err := conv.Write(out, tbl); err != nil {
		return err
	}
	if err := out.Flush(); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// readInteractiveInput provides an interactive mode for users to paste JSON
// and signal completion with Ctrl+D (EOF)
func readInteractiveInput(conv *converter.Converter) (*models.Table, error) {
	fmt.Fprintln(os.Stderr, "jsontab Interactive Mode")
	fmt.Fprintln(os.Stderr, "Paste your JSON below and press Ctrl+D (or Ctrl+Z on Windows) when done:")

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, errors.NewInputError("error reading input", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, errors.NewInputError("empty input received", errors.ErrEmptyInput)
	}

	fmt.Fprintln(os.Stderr, "\nProcessing JSON...")
	return conv.Convert(strings.NewReader(string(data)))
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func stdoutIsTerminal() bool {
	info, err := os.Stdout.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
