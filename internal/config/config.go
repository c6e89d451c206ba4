package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/mcncl/jsontab/internal/flattener"
	"github.com/mcncl/jsontab/internal/formatter"
	"github.com/mcncl/jsontab/internal/parser"
)

// Config represents the complete configuration for jsontab
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Flatten  FlattenConfig  `yaml:"flatten"`
	Output   OutputConfig   `yaml:"output"`
	Postgres PostgresConfig `yaml:"postgres"`
	Log      LogConfig      `yaml:"log"`
}

// InputConfig controls JSON parsing
type InputConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// FlattenConfig controls row and label construction
type FlattenConfig struct {
	// ScalarArray is "index" or "value", see flattener.ScalarArrayPolicy.
	ScalarArray      string `yaml:"scalar_array"`
	ValueLabel       string `yaml:"value_label"`
	WarnDuplicates   bool   `yaml:"warn_duplicates"`
	StrictDuplicates bool   `yaml:"strict_duplicates"`
}

// OutputConfig controls serialization
type OutputConfig struct {
	Format      string `yaml:"format"`
	Delimiter   string `yaml:"delimiter"`
	SheetName   string `yaml:"sheet_name"`
	TableName   string `yaml:"table_name"`
	HeaderStyle string `yaml:"header_style"`
	Border      string `yaml:"border"`
}

// PostgresConfig controls loading the table into PostgreSQL instead of
// writing it out. Loading is enabled when a DSN is available.
type PostgresConfig struct {
	DSN         string        `yaml:"dsn"`
	Table       string        `yaml:"table"`
	CreateTable bool          `yaml:"create_table"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LogConfig controls diagnostics on stderr
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Input: InputConfig{
			MaxDepth: parser.DefaultMaxDepth,
		},
		Flatten: FlattenConfig{
			ScalarArray:      string(flattener.ScalarArrayIndex),
			ValueLabel:       flattener.DefaultValueLabel,
			WarnDuplicates:   true,
			StrictDuplicates: false,
		},
		Output: OutputConfig{
			Format:      string(formatter.CSV),
			Delimiter:   ",",
			HeaderStyle: string(formatter.HeaderAsIs),
			Border:      string(formatter.BorderRounded),
		},
		Postgres: PostgresConfig{
			CreateTable: true,
			Timeout:     30 * time.Second,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// LoadConfig loads and validates configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	cfg, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// readConfigFile decodes a YAML file over the defaults without validating it.
func readConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".jsontab.yml", ".jsontab.yaml", "jsontab.yml", "jsontab.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root directory
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks enumerated settings and fills empty ones with defaults
func (c *Config) Validate() error {
	defaults := NewConfig()

	if c.Input.MaxDepth <= 0 {
		c.Input.MaxDepth = defaults.Input.MaxDepth
	}

	if c.Flatten.ScalarArray == "" {
		c.Flatten.ScalarArray = defaults.Flatten.ScalarArray
	}
	if !validPolicy(c.Flatten.ScalarArray) {
		return fmt.Errorf("flatten.scalar_array must be one of %v, got %q", flattener.Policies(), c.Flatten.ScalarArray)
	}
	if c.Flatten.ValueLabel == "" {
		c.Flatten.ValueLabel = defaults.Flatten.ValueLabel
	}

	if c.Output.Format == "" {
		c.Output.Format = defaults.Output.Format
	}
	if _, err := formatter.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Output.Delimiter == "" {
		c.Output.Delimiter = defaults.Output.Delimiter
	}
	if _, err := c.Output.DelimiterRune(); err != nil {
		return err
	}
	if c.Output.HeaderStyle == "" {
		c.Output.HeaderStyle = defaults.Output.HeaderStyle
	}
	if _, err := formatter.ParseHeaderStyle(c.Output.HeaderStyle); err != nil {
		return fmt.Errorf("output.header_style: %w", err)
	}
	if c.Output.Border == "" {
		c.Output.Border = defaults.Output.Border
	}
	if _, err := formatter.ParseBorder(c.Output.Border); err != nil {
		return fmt.Errorf("output.border: %w", err)
	}

	if c.Postgres.Timeout <= 0 {
		c.Postgres.Timeout = defaults.Postgres.Timeout
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
	switch c.Log.Level {
	case "":
		c.Log.Level = defaults.Log.Level
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "":
		c.Log.Format = defaults.Log.Format
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func validPolicy(s string) bool {
	for _, p := range flattener.Policies() {
		if string(p) == s {
			return true
		}
	}
	return false
}

// DelimiterRune returns the configured field delimiter. "tab" and "\t" are
// accepted for a tab character.
func (o OutputConfig) DelimiterRune() (rune, error) {
	switch o.Delimiter {
	case "tab", `\t`:
		return '\t', nil
	case "":
		return ',', nil
	}
	r, size := utf8.DecodeRuneInString(o.Delimiter)
	if r == utf8.RuneError || size != len(o.Delimiter) {
		return 0, fmt.Errorf("output.delimiter must be a single character, got %q", o.Delimiter)
	}
	if r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("output.delimiter cannot be %q", r)
	}
	return r, nil
}

// FormatterOptions maps the output section onto formatter options
func (c *Config) FormatterOptions() formatter.Options {
	delim, _ := c.Output.DelimiterRune()
	style, _ := formatter.ParseHeaderStyle(c.Output.HeaderStyle)
	border, _ := formatter.ParseBorder(c.Output.Border)
	return formatter.Options{
		Delimiter:   delim,
		SheetName:   c.Output.SheetName,
		TableName:   c.Output.TableName,
		HeaderStyle: style,
		Border:      border,
	}
}

// FlattenerOptions maps the flatten section onto flattener options
func (c *Config) FlattenerOptions() flattener.Options {
	return flattener.Options{
		ScalarArray: flattener.ScalarArrayPolicy(c.Flatten.ScalarArray),
		ValueLabel:  c.Flatten.ValueLabel,
	}
}

// ApplyEnv fills in an empty PostgreSQL DSN from the environment.
// Values from the file or CLI take precedence.
func (c *Config) ApplyEnv() {
	if c.Postgres.DSN == "" {
		c.Postgres.DSN = envOr("JSONTAB_PG_DSN", "DATABASE_URL")
	}
}

// envOr returns the first non-empty value from the given env var names.
func envOr(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// CLIOverrides carries flag values. Empty strings and nil pointers mean the
// flag was not given.
type CLIOverrides struct {
	Format           string
	Delimiter        string
	SheetName        string
	TableName        string
	HeaderStyle      string
	Border           string
	ScalarArray      string
	ValueLabel       string
	StrictDuplicates *bool
	PostgresDSN      string
	PostgresTable    string
	LogLevel         string
	LogFormat        string
}

// MergeCLI applies non-empty CLI overrides on top of c.
func (c *Config) MergeCLI(o CLIOverrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Output.Format, o.Format)
	set(&c.Output.Delimiter, o.Delimiter)
	set(&c.Output.SheetName, o.SheetName)
	set(&c.Output.TableName, o.TableName)
	set(&c.Output.HeaderStyle, o.HeaderStyle)
	set(&c.Output.Border, o.Border)
	set(&c.Flatten.ScalarArray, o.ScalarArray)
	set(&c.Flatten.ValueLabel, o.ValueLabel)
	set(&c.Postgres.DSN, o.PostgresDSN)
	set(&c.Postgres.Table, o.PostgresTable)
	set(&c.Log.Level, o.LogLevel)
	set(&c.Log.Format, o.LogFormat)
	if o.StrictDuplicates != nil {
		c.Flatten.StrictDuplicates = *o.StrictDuplicates
	}
}

// LoadConfigWithCLI loads config with CLI argument precedence: defaults,
// then the config file (if any), then flags, then env fallbacks. The merged
// result is validated once, so a flag can replace a bad value from the file.
func LoadConfigWithCLI(configPath string, overrides CLIOverrides) (*Config, error) {
	cfg := NewConfig()

	if configPath != "" {
		fileConfig, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	cfg.MergeCLI(overrides)
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
