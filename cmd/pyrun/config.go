package main

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/python-bridge/errors"
	"github.com/wippyai/python-bridge/runtime"
)

// Config is the pyrun configuration. Values come from an optional YAML file
// and are overridden by command line flags.
type Config struct {
	ProgramName string   `yaml:"program_name"`
	LogLevel    string   `yaml:"log_level"`
	LogFile     string   `yaml:"log_file"`
	Startup     string   `yaml:"startup"`
	SysPath     []string `yaml:"sys_path"`
	QuietErrors bool     `yaml:"quiet_errors"`
}

func defaultConfig() Config {
	return Config{
		ProgramName: "pyrun",
		LogLevel:    "warn",
	}
}

// loadConfig reads a YAML config file over the defaults. ${VAR} references
// are expanded from the environment, so values loaded from a dotenv file
// apply. An empty path returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration
	if err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "load config")
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse config")
	}
	return cfg, nil
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
// Variables already set in the environment win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if stderrors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// overrides holds flag values; nil means the flag was not given.
type overrides struct {
	programName *string
	logLevel    *string
	logFile     *string
	sysPath     *string
	quiet       *bool
}

func (c *Config) apply(o overrides) {
	if o.programName != nil {
		c.ProgramName = *o.programName
	}
	if o.logLevel != nil {
		c.LogLevel = *o.logLevel
	}
	if o.logFile != nil {
		c.LogFile = *o.logFile
	}
	if o.sysPath != nil {
		c.SysPath = append(splitList(*o.sysPath), c.SysPath...)
	}
	if o.quiet != nil {
		c.QuietErrors = *o.quiet
	}
}

// options converts the config into runtime options.
func (c Config) options() []runtime.Option {
	opts := []runtime.Option{
		runtime.WithErrorPrinting(!c.QuietErrors),
	}
	if c.ProgramName != "" {
		opts = append(opts, runtime.WithProgramName(c.ProgramName))
	}
	if len(c.SysPath) > 0 {
		opts = append(opts, runtime.WithSysPath(c.SysPath...))
	}
	return opts
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
