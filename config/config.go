package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alekLukanen/csv2parquet/elements"
)

const (
	DefaultPath       = "*.csv"
	DefaultDelimiter  = ","
	DefaultWorkers    = 1
	DefaultSampleSize = 100
)

type Config struct {
	Path      string `mapstructure:"path"`
	Delimiter string `mapstructure:"delimiter"`
	NoHeader  bool   `mapstructure:"no_header"`
	Worker    int    `mapstructure:"worker"`
	Sampling  int    `mapstructure:"sampling"`
	OutputDir string `mapstructure:"output_dir"`

	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Progress ProgressConfig `mapstructure:"progress"`
	S3       S3Config       `mapstructure:"s3"`
	KeyDB    KeyDBConfig    `mapstructure:"keydb"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	// File is a node exporter textfile written at the end of the run.
	File string `mapstructure:"file"`
}

type ProgressConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	AuthKey      string `mapstructure:"auth_key"`
	AuthSecret   string `mapstructure:"auth_secret"`
}

func (obj S3Config) Enabled() bool {
	return obj.Bucket != ""
}

type KeyDBConfig struct {
	Address       string        `mapstructure:"address"`
	Password      string        `mapstructure:"password"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	LockDuration  time.Duration `mapstructure:"lock_duration"`
	SkipUnchanged bool          `mapstructure:"skip_unchanged"`
}

func (obj KeyDBConfig) Enabled() bool {
	return obj.Address != ""
}

// HasHeader reports whether the first row of every input holds column names.
func (obj *Config) HasHeader() bool {
	return !obj.NoHeader
}

// DelimiterRune returns the parsed field delimiter. Only valid after
// Validate succeeded.
func (obj *Config) DelimiterRune() rune {
	delimiter, _ := ParseDelimiter(obj.Delimiter)
	return delimiter
}

func (obj *Config) Validate() error {
	delimiter, err := ParseDelimiter(obj.Delimiter)
	if err != nil {
		return err
	}
	if delimiter == '\n' || delimiter == '\r' || delimiter == '"' {
		return elements.NewStackError(fmt.Errorf("%w| %q cannot separate fields of a quoted csv file", ErrInvalidDelimiter, delimiter))
	}
	if obj.Path == "" {
		return elements.NewStackError(fmt.Errorf("%w| path is required", ErrInvalidConfig))
	}
	if obj.Worker <= 0 {
		return elements.NewStackError(fmt.Errorf("%w| worker must be positive, got %d", ErrInvalidConfig, obj.Worker))
	}
	if obj.Sampling <= 0 {
		return elements.NewStackError(fmt.Errorf("%w| sampling must be positive, got %d", ErrInvalidConfig, obj.Sampling))
	}

	switch strings.ToLower(obj.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return elements.NewStackError(fmt.Errorf("%w| unsupported logging.level: %s", ErrInvalidConfig, obj.Logging.Level))
	}
	switch strings.ToLower(obj.Logging.Format) {
	case "json", "text":
	default:
		return elements.NewStackError(fmt.Errorf("%w| unsupported logging.format: %s", ErrInvalidConfig, obj.Logging.Format))
	}

	if obj.S3.Enabled() && obj.S3.Region == "" {
		return elements.NewStackError(fmt.Errorf("%w| s3.region is required when s3.bucket is set", ErrInvalidConfig))
	}
	if (obj.S3.AuthKey == "") != (obj.S3.AuthSecret == "") {
		return elements.NewStackError(fmt.Errorf("%w| s3.auth_key and s3.auth_secret must be set together", ErrInvalidConfig))
	}
	if obj.KeyDB.Enabled() && obj.KeyDB.LockDuration <= 0 {
		return elements.NewStackError(fmt.Errorf("%w| keydb.lock_duration must be positive", ErrInvalidConfig))
	}
	if obj.KeyDB.SkipUnchanged && !obj.KeyDB.Enabled() {
		return elements.NewStackError(fmt.Errorf("%w| keydb.skip_unchanged requires keydb.address", ErrInvalidConfig))
	}

	return nil
}

// ParseDelimiter accepts a single character or one of the escapes
// \t \n \r \, \;
func ParseDelimiter(value string) (rune, error) {
	switch value {
	case "":
		return 0, elements.NewStackError(fmt.Errorf("%w| Delimiter cannot be empty", ErrInvalidDelimiter))
	case `\t`:
		return '\t', nil
	case `\n`:
		return '\n', nil
	case `\r`:
		return '\r', nil
	case `\,`:
		return ',', nil
	case `\;`:
		return ';', nil
	}

	delimiter, size := utf8.DecodeRuneInString(value)
	if size != len(value) || delimiter == utf8.RuneError {
		return 0, elements.NewStackError(fmt.Errorf("%w| Invalid delimiter: %s", ErrInvalidDelimiter, value))
	}
	return delimiter, nil
}
