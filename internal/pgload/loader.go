package pgload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcncl/jsontab/internal/errors"
	"github.com/mcncl/jsontab/internal/models"
)

// Options configures a Loader.
type Options struct {
	DSN         string
	Table       string
	CreateTable bool
	// Timeout bounds the whole load, connect to commit. Zero means no limit.
	Timeout time.Duration
}

// Loader copies tables into PostgreSQL.
type Loader struct {
	opts   Options
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil logger discards messages.
func NewLoader(opts Options, logger *slog.Logger) *Loader {
	if opts.Table == "" {
		opts.Table = DefaultTableName
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{opts: opts, logger: logger}
}

// Load writes t into the configured table inside a single transaction and
// returns the number of rows copied. Nothing is committed on failure.
func (l *Loader) Load(ctx context.Context, t *models.Table) (n int64, err error) {
	if l.opts.DSN == "" {
		return 0, errors.ErrNoDSN
	}
	if t.Width() == 0 {
		l.logger.Info("Table has no columns, nothing to load.", "table", l.opts.Table)
		return 0, nil
	}

	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	pool, err := newPool(ctx, l.opts.DSN)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(context.Background()); rerr != nil {
				l.logger.Warn("Rollback failed.", "error", rerr)
			}
		}
	}()

	if l.opts.CreateTable {
		ddl := CreateTableSQL(t, l.opts.Table)
		l.logger.Debug("Creating table.", "sql", ddl)
		if _, err = tx.Exec(ctx, ddl); err != nil {
			return 0, fmt.Errorf("creating table %s: %w", QuoteIdent(l.opts.Table), err)
		}
	}

	n, err = tx.CopyFrom(ctx, Identifier(l.opts.Table), ColumnNames(t), pgx.CopyFromSlice(t.Len(), func(i int) ([]any, error) {
		return rowValues(t.Rows[i]), nil
	}))
	if err != nil {
		return 0, fmt.Errorf("copying rows into %s: %w", QuoteIdent(l.opts.Table), err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	l.logger.Info("Loaded table into PostgreSQL.", "table", l.opts.Table, "rows", n)
	return n, nil
}

// newPool opens a pgx pool for dsn and checks that the server answers.
func newPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	return pool, nil
}

// rowValues converts a grid row into COPY values, absent entries as NULL.
func rowValues(row []models.Value) []any {
	vals := make([]any, len(row))
	for j, v := range row {
		if v.Valid {
			vals[j] = v.Str
		}
	}
	return vals
}
