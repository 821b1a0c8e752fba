package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/alekLukanen/errs"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix     = "CSV2PARQUET"
	ConfigFileEnv = EnvPrefix + "_CONFIG"
)

// Loader merges defaults, an optional yaml file, CSV2PARQUET_* environment
// variables and command line flags, in increasing precedence.
type Loader struct {
	v     *viper.Viper
	flags *pflag.FlagSet
}

func NewLoader(name string) *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.StringP("delimiter", "d", DefaultDelimiter, `field delimiter, a single character or one of \t \n \r \, \;`)
	flags.BoolP("no-header", "n", false, "the first row is data, not column names")
	flags.IntP("worker", "w", DefaultWorkers, "number of files converted at the same time")
	flags.IntP("sampling", "s", DefaultSampleSize, "number of rows sampled to infer column types")
	flags.StringP("output-dir", "o", "", "directory for the parquet files, defaults to next to each input")
	flags.String("config", "", "yaml config file (env "+ConfigFileEnv+")")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("metrics-file", "", "write prometheus metrics to this textfile at the end of the run")
	flags.Bool("progress", true, "show a progress bar")
	flags.SortFlags = false
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage: %s [flags] [path]\n\npath is a directory, a file or a glob pattern (default %q)\n\n", name, DefaultPath)
		flags.PrintDefaults()
	}

	return &Loader{v: v, flags: flags}
}

func (l *Loader) SetOutput(w io.Writer) {
	l.flags.SetOutput(w)
}

func (l *Loader) Usage() {
	l.flags.Usage()
}

// Load parses args (without the program name) and returns the validated
// config. pflag.ErrHelp is returned as is.
func (l *Loader) Load(args []string) (*Config, error) {
	l.setDefaults()

	if err := l.flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, elements.NewStackError(fmt.Errorf("%w| %w", ErrInvalidConfig, err))
	}
	if err := l.bindFlags(); err != nil {
		return nil, err
	}
	if l.flags.NArg() > 1 {
		return nil, elements.NewStackError(fmt.Errorf("%w| expected at most one path, got %d", ErrInvalidConfig, l.flags.NArg()))
	}
	if l.flags.NArg() == 1 {
		l.v.Set("path", l.flags.Arg(0))
	}

	configPath, _ := l.flags.GetString("config")
	if configPath == "" {
		configPath = os.Getenv(ConfigFileEnv)
	}
	if configPath != "" {
		l.v.SetConfigFile(configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, elements.NewStackError(fmt.Errorf("%w| failed to read config file: %w", ErrInvalidConfig, err))
		}
	}

	for _, key := range l.v.AllKeys() {
		value := l.v.GetString(key)
		if strings.Contains(value, "${") {
			l.v.Set(key, os.ExpandEnv(value))
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, elements.NewStackError(fmt.Errorf("%w| failed to unmarshal config: %w", ErrInvalidConfig, err))
	}
	if err := config.Validate(); err != nil {
		return nil, errs.Wrap(err)
	}
	return &config, nil
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("path", DefaultPath)
	l.v.SetDefault("delimiter", DefaultDelimiter)
	l.v.SetDefault("no_header", false)
	l.v.SetDefault("worker", DefaultWorkers)
	l.v.SetDefault("sampling", DefaultSampleSize)
	l.v.SetDefault("output_dir", "")

	l.v.SetDefault("logging.level", "info")
	l.v.SetDefault("logging.format", "text")
	l.v.SetDefault("logging.output", "stderr")
	l.v.SetDefault("metrics.file", "")
	l.v.SetDefault("progress.enabled", true)

	l.v.SetDefault("s3.bucket", "")
	l.v.SetDefault("s3.prefix", "")
	l.v.SetDefault("s3.region", "")
	l.v.SetDefault("s3.endpoint", "")
	l.v.SetDefault("s3.use_path_style", false)
	l.v.SetDefault("s3.auth_key", "")
	l.v.SetDefault("s3.auth_secret", "")

	l.v.SetDefault("keydb.address", "")
	l.v.SetDefault("keydb.password", "")
	l.v.SetDefault("keydb.key_prefix", "csv2parquet")
	l.v.SetDefault("keydb.lock_duration", 10*time.Minute)
	l.v.SetDefault("keydb.skip_unchanged", false)
}

// flags only take effect when set on the command line
func (l *Loader) bindFlags() error {
	bindings := map[string]string{
		"delimiter":        "delimiter",
		"no_header":        "no-header",
		"worker":           "worker",
		"sampling":         "sampling",
		"output_dir":       "output-dir",
		"logging.level":    "log-level",
		"metrics.file":     "metrics-file",
		"progress.enabled": "progress",
	}
	for key, flagName := range bindings {
		if err := l.v.BindPFlag(key, l.flags.Lookup(flagName)); err != nil {
			return elements.NewStackError(err)
		}
	}
	return nil
}
