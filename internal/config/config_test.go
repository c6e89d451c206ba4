package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsontab/internal/flattener"
	"github.com/mcncl/jsontab/internal/formatter"
	"github.com/mcncl/jsontab/internal/parser"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".jsontab.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, parser.DefaultMaxDepth, cfg.Input.MaxDepth)
	assert.Equal(t, "index", cfg.Flatten.ScalarArray)
	assert.Equal(t, "value", cfg.Flatten.ValueLabel)
	assert.True(t, cfg.Flatten.WarnDuplicates)
	assert.False(t, cfg.Flatten.StrictDuplicates)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.Equal(t, ",", cfg.Output.Delimiter)
	assert.Equal(t, "none", cfg.Output.HeaderStyle)
	assert.Equal(t, "rounded", cfg.Output.Border)
	assert.True(t, cfg.Postgres.CreateTable)
	assert.Equal(t, 30*time.Second, cfg.Postgres.Timeout)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	require.NoError(t, cfg.Validate())
}

func TestConfig_LoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
input:
  max_depth: 64
flatten:
  scalar_array: value
  value_label: reading
  warn_duplicates: false
output:
  format: xlsx
  sheet_name: Orders
  header_style: snake
postgres:
  table: staging.orders
  create_table: false
  timeout: 5s
log:
  level: DEBUG
  format: json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Input.MaxDepth)
	assert.Equal(t, "value", cfg.Flatten.ScalarArray)
	assert.Equal(t, "reading", cfg.Flatten.ValueLabel)
	assert.False(t, cfg.Flatten.WarnDuplicates)
	assert.Equal(t, "xlsx", cfg.Output.Format)
	assert.Equal(t, "Orders", cfg.Output.SheetName)
	assert.Equal(t, "snake", cfg.Output.HeaderStyle)
	assert.Equal(t, "staging.orders", cfg.Postgres.Table)
	assert.False(t, cfg.Postgres.CreateTable)
	assert.Equal(t, 5*time.Second, cfg.Postgres.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// untouched settings keep their defaults
	assert.Equal(t, ",", cfg.Output.Delimiter)
	assert.False(t, cfg.Flatten.StrictDuplicates)
}

func TestConfig_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "output: [", "failed to parse config file"},
		{"unknown format", "output:\n  format: pdf\n", "output.format"},
		{"unknown policy", "flatten:\n  scalar_array: columns\n", "flatten.scalar_array"},
		{"bad delimiter", "output:\n  delimiter: ';;'\n", "output.delimiter"},
		{"bad header style", "output:\n  header_style: shouty\n", "output.header_style"},
		{"bad border", "output:\n  border: double\n", "output.border"},
		{"bad log level", "log:\n  level: trace\n", "log.level"},
		{"bad log format", "log:\n  format: xml\n", "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_LoadMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestConfig_ValidateFillsEmptyValues(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())

	defaults := NewConfig()
	assert.Equal(t, defaults.Input, cfg.Input)
	assert.Equal(t, defaults.Flatten.ScalarArray, cfg.Flatten.ScalarArray)
	assert.Equal(t, defaults.Output.Format, cfg.Output.Format)
	assert.Equal(t, defaults.Postgres.Timeout, cfg.Postgres.Timeout)
	assert.Equal(t, defaults.Log, cfg.Log)
}

func TestOutputConfig_DelimiterRune(t *testing.T) {
	tests := []struct {
		delim   string
		want    rune
		wantErr bool
	}{
		{"", ',', false},
		{",", ',', false},
		{";", ';', false},
		{"tab", '\t', false},
		{`\t`, '\t', false},
		{"|", '|', false},
		{"§", '§', false},
		{"ab", 0, true},
		{`"`, 0, true},
		{"\n", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.delim, func(t *testing.T) {
			got, err := OutputConfig{Delimiter: tt.delim}.DelimiterRune()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_Options(t *testing.T) {
	cfg := NewConfig()
	cfg.Output.Delimiter = "tab"
	cfg.Output.HeaderStyle = "kebab"
	cfg.Output.Border = "ascii"
	cfg.Output.TableName = "events"
	cfg.Flatten.ScalarArray = "value"
	cfg.Flatten.ValueLabel = "v"
	require.NoError(t, cfg.Validate())

	fopts := cfg.FormatterOptions()
	assert.Equal(t, '\t', fopts.Delimiter)
	assert.Equal(t, formatter.HeaderKebab, fopts.HeaderStyle)
	assert.Equal(t, formatter.BorderASCII, fopts.Border)
	assert.Equal(t, "events", fopts.TableName)

	assert.Equal(t, flattener.Options{ScalarArray: flattener.ScalarArrayValue, ValueLabel: "v"}, cfg.FlattenerOptions())
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Run("jsontab variable wins", func(t *testing.T) {
		t.Setenv("JSONTAB_PG_DSN", "postgres://a")
		t.Setenv("DATABASE_URL", "postgres://b")
		cfg := NewConfig()
		cfg.ApplyEnv()
		assert.Equal(t, "postgres://a", cfg.Postgres.DSN)
	})

	t.Run("falls back to DATABASE_URL", func(t *testing.T) {
		t.Setenv("JSONTAB_PG_DSN", "")
		t.Setenv("DATABASE_URL", "postgres://b")
		cfg := NewConfig()
		cfg.ApplyEnv()
		assert.Equal(t, "postgres://b", cfg.Postgres.DSN)
	})

	t.Run("configured DSN is kept", func(t *testing.T) {
		t.Setenv("JSONTAB_PG_DSN", "postgres://a")
		cfg := NewConfig()
		cfg.Postgres.DSN = "postgres://file"
		cfg.ApplyEnv()
		assert.Equal(t, "postgres://file", cfg.Postgres.DSN)
	})
}

func TestFindConfigFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	configPath := filepath.Join(root, ".jsontab.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("output:\n  format: tsv\n"), 0o644))

	t.Chdir(nested)

	found := FindConfigFile()
	// temp dirs may sit behind a symlink, compare resolved paths
	want, err := filepath.EvalSymlinks(configPath)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadConfigWithCLI(t *testing.T) {
	t.Setenv("JSONTAB_PG_DSN", "")
	t.Setenv("DATABASE_URL", "")

	path := writeConfig(t, `
output:
  format: markdown
  header_style: camel
flatten:
  scalar_array: value
`)

	strict := true
	cfg, err := LoadConfigWithCLI(path, CLIOverrides{
		Format:           "tsv",
		ValueLabel:       "reading",
		StrictDuplicates: &strict,
		LogLevel:         "INFO",
	})
	require.NoError(t, err)

	assert.Equal(t, "tsv", cfg.Output.Format, "flag beats file")
	assert.Equal(t, "camel", cfg.Output.HeaderStyle, "file beats default")
	assert.Equal(t, "value", cfg.Flatten.ScalarArray)
	assert.Equal(t, "reading", cfg.Flatten.ValueLabel)
	assert.True(t, cfg.Flatten.StrictDuplicates)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Postgres.DSN)
}

func TestLoadConfigWithCLI_NoFile(t *testing.T) {
	t.Setenv("JSONTAB_PG_DSN", "postgres://env")

	cfg, err := LoadConfigWithCLI("", CLIOverrides{PostgresTable: "imports"})
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.Equal(t, "imports", cfg.Postgres.Table)
	assert.Equal(t, "postgres://env", cfg.Postgres.DSN)

	cfg, err = LoadConfigWithCLI("", CLIOverrides{PostgresDSN: "postgres://flag"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag", cfg.Postgres.DSN)
}

func TestLoadConfigWithCLI_InvalidOverride(t *testing.T) {
	_, err := LoadConfigWithCLI("", CLIOverrides{Format: "pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.format")
}

func TestLoadConfigWithCLI_FlagReplacesBadFileValue(t *testing.T) {
	t.Setenv("JSONTAB_PG_DSN", "")
	t.Setenv("DATABASE_URL", "")

	path := writeConfig(t, "output:\n  format: pdf\nlog:\n  level: trace\n")

	cfg, err := LoadConfigWithCLI(path, CLIOverrides{Format: "csv", LogLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.Equal(t, "debug", cfg.Log.Level)

	_, err = LoadConfigWithCLI(path, CLIOverrides{Format: "csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")

	_, err = LoadConfig(path)
	require.Error(t, err, "the file alone is still invalid")
}
