// Package converter runs the JSON to table pipeline: parse, flatten, build
// the table, then hand it to a formatter or the PostgreSQL loader.
package converter

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mcncl/jsontab/internal/config"
	"github.com/mcncl/jsontab/internal/errors"
	"github.com/mcncl/jsontab/internal/flattener"
	"github.com/mcncl/jsontab/internal/formatter"
	"github.com/mcncl/jsontab/internal/models"
	"github.com/mcncl/jsontab/internal/parser"
	"github.com/mcncl/jsontab/internal/pgload"
	"github.com/mcncl/jsontab/internal/table"
)

// Converter holds no per-document state; one instance may convert many
// documents concurrently.
type Converter struct {
	cfg       *config.Config
	logger    *slog.Logger
	flattener *flattener.Flattener
	formatter *formatter.Formatter
	format    formatter.Format
}

// New creates a Converter. cfg must have passed Validate; a nil cfg means
// defaults and a nil logger discards diagnostics.
func New(cfg *config.Config, logger *slog.Logger) *Converter {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	format, err := formatter.ParseFormat(cfg.Output.Format)
	if err != nil {
		format = formatter.CSV
	}
	return &Converter{
		cfg:       cfg,
		logger:    logger,
		flattener: flattener.New(cfg.FlattenerOptions()),
		formatter: formatter.NewFormatter(cfg.FormatterOptions()),
		format:    format,
	}
}

// Format returns the output format in use
func (c *Converter) Format() formatter.Format { return c.format }

// Convert parses one JSON document from r and returns its table.
func (c *Converter) Convert(r io.Reader) (*models.Table, error) {
	doc, err := parser.ParseWithOptions(r, parser.Options{MaxDepth: c.cfg.Input.MaxDepth})
	if err != nil {
		return nil, err
	}
	return c.ConvertDocument(doc)
}

// ConvertFile parses the JSON file at path and returns its table.
func (c *Converter) ConvertFile(path string) (*models.Table, error) {
	doc, err := parser.ParseFileWithOptions(path, parser.Options{MaxDepth: c.cfg.Input.MaxDepth})
	if err != nil {
		return nil, err
	}
	return c.ConvertDocument(doc)
}

// ConvertDocument flattens an already parsed document into a table.
func (c *Converter) ConvertDocument(doc models.Document) (*models.Table, error) {
	rows := c.flattener.Flatten(doc.Root)
	tbl, dups := table.BuildWithReport(rows)

	c.logger.Debug("Table built.", "root", doc.RootKind().String(), "rows", tbl.Len(), "columns", tbl.Width())

	for _, d := range dups {
		if c.cfg.Flatten.StrictDuplicates {
			return nil, errors.NewConversionError(
				fmt.Sprintf("label %q appears more than once in row %d", d.Label, d.Row),
				errors.ErrDuplicateLabel,
			)
		}
		if c.cfg.Flatten.WarnDuplicates {
			c.logger.Warn("Duplicate label overwritten.",
				"row", d.Row,
				"label", d.Label,
				"dropped", d.Previous.String(),
				"kept", d.Current.String(),
			)
		}
	}
	return tbl, nil
}

// Write serializes t to w in the configured format.
func (c *Converter) Write(w io.Writer, t *models.Table) error {
	if err := c.formatter.Write(w, t, c.format); err != nil {
		if stderrors.Is(err, errors.ErrHeaderCollision) {
			return errors.NewConfigError("header style produces duplicate column names", err)
		}
		return errors.NewOutputError(fmt.Sprintf("failed to write %s output", c.format), err)
	}
	return nil
}

// WriteFile serializes t into the file at path. The file is closed on
// every path and removed again if writing fails.
func (c *Converter) WriteFile(path string, t *models.Table) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.NewOutputError(fmt.Sprintf("failed to create file '%s'", path), err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.NewOutputError(fmt.Sprintf("failed to close file '%s'", path), cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	return c.Write(file, t)
}

// Load copies t into PostgreSQL using the postgres section of the config.
func (c *Converter) Load(ctx context.Context, t *models.Table) (int64, error) {
	loader := pgload.NewLoader(pgload.Options{
		DSN:         c.cfg.Postgres.DSN,
		Table:       c.cfg.Postgres.Table,
		CreateTable: c.cfg.Postgres.CreateTable,
		Timeout:     c.cfg.Postgres.Timeout,
	}, c.logger)

	n, err := loader.Load(ctx, t)
	if err != nil {
		return 0, errors.NewOutputError("failed to load table into PostgreSQL", err)
	}
	return n, nil
}

// LoadsToPostgres reports whether output goes to PostgreSQL instead of a writer.
func (c *Converter) LoadsToPostgres() bool { return c.cfg.Postgres.DSN != "" }

// Run converts the document in r and delivers it to the configured sink:
// PostgreSQL when a DSN is set, otherwise w.
func (c *Converter) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	tbl, err := c.Convert(r)
	if err != nil {
		return err
	}
	if c.LoadsToPostgres() {
		_, err := c.Load(ctx, tbl)
		return err
	}
	return c.Write(w, tbl)
}

// Result is the outcome of converting one file in a batch.
type Result struct {
	Input  string
	Output string
	Rows   int
}

// OutputPath returns where ConvertFiles writes the result for input.
func (c *Converter) OutputPath(input, dir string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+extension(c.format))
}

func extension(f formatter.Format) string {
	switch f {
	case formatter.Markdown:
		return ".md"
	case formatter.Table:
		return ".txt"
	default:
		return "." + string(f)
	}
}

// outputPaths returns one output path per input. Inputs that share a base
// name get a numbered suffix, skipping names another input maps to.
func (c *Converter) outputPaths(inputs []string, dir string) []string {
	paths := make([]string, len(inputs))
	natural := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		paths[i] = c.OutputPath(in, dir)
		natural[paths[i]] = true
	}

	taken := make(map[string]bool, len(inputs))
	for i, p := range paths {
		if !taken[p] {
			taken[p] = true
			continue
		}
		ext := filepath.Ext(p)
		stem := strings.TrimSuffix(p, ext)
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
			if !taken[candidate] && !natural[candidate] {
				paths[i] = candidate
				taken[candidate] = true
				break
			}
		}
		c.logger.Warn("Output name already in use, writing to a numbered file.", "input", inputs[i], "output", paths[i])
	}
	return paths
}

// ConvertFiles converts every input into dir, in parallel. Each document is
// independent; the first failure cancels the files not yet started.
// Results keep the order of inputs, and no two inputs share an output file.
func (c *Converter) ConvertFiles(ctx context.Context, inputs []string, dir string) ([]Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewOutputError(fmt.Sprintf("failed to create directory '%s'", dir), err)
	}

	outputs := c.outputPaths(inputs, dir)
	results := make([]Result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tbl, err := c.ConvertFile(in)
			if err != nil {
				return annotate(in, err)
			}
			out := outputs[i]
			if err := c.forInput(in).WriteFile(out, tbl); err != nil {
				return annotate(in, err)
			}
			c.logger.Info("Converted file.", "input", in, "output", out, "rows", tbl.Len())
			results[i] = Result{Input: in, Output: out, Rows: tbl.Len()}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// forInput returns c, or a shallow copy whose workbook sheet is named after
// input when no sheet name is configured.
func (c *Converter) forInput(input string) *Converter {
	if c.format != formatter.XLSX || c.cfg.Output.SheetName != "" {
		return c
	}
	opts := c.cfg.FormatterOptions()
	opts.SheetName = formatter.SheetNameFromPath(input)
	clone := *c
	clone.formatter = formatter.NewFormatter(opts)
	return &clone
}

// annotate prefixes the message of err with the input it concerns.
func annotate(input string, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return &errors.AppError{Type: appErr.Type, Message: input + ": " + appErr.Message, Err: appErr.Err}
	}
	return fmt.Errorf("%s: %w", input, err)
}
