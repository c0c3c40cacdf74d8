// Package config loads the server configuration. Sources are layered, each
// overriding the previous: defaults, an optional YAML file, CALC_*
// environment variables, then explicitly set command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/calc/pkg/api"
)

// Config is the server configuration.
type Config struct {
	HTTPAddr            string `yaml:"http_addr"`
	GRPCAddr            string `yaml:"grpc_addr"`
	HistoryLimit        int    `yaml:"history_limit"`
	MaxExpressionLength int    `yaml:"max_expression_length"`
	Strict              bool   `yaml:"strict"`
	LogLevel            string `yaml:"log_level"`
	LogFormat           string `yaml:"log_format"`
	LogFile             string `yaml:"log_file"`
}

// Environment variable names.
const (
	EnvHTTPAddr            = "CALC_HTTP_ADDR"
	EnvGRPCAddr            = "CALC_GRPC_ADDR"
	EnvHistoryLimit        = "CALC_HISTORY_LIMIT"
	EnvMaxExpressionLength = "CALC_MAX_EXPRESSION_LENGTH"
	EnvStrict              = "CALC_STRICT"
	EnvLogLevel            = "CALC_LOG_LEVEL"
	EnvLogFormat           = "CALC_LOG_FORMAT"
	EnvLogFile             = "CALC_LOG_FILE"
)

// Flag names.
const (
	FlagConfig              = "config"
	FlagHTTPAddr            = "http-addr"
	FlagGRPCAddr            = "grpc-addr"
	FlagHistoryLimit        = "history-limit"
	FlagMaxExpressionLength = "max-expression-length"
	FlagStrict              = "strict"
	FlagLogLevel            = "log-level"
	FlagLogFormat           = "log-format"
	FlagLogFile             = "log-file"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:            ":8787",
		GRPCAddr:            ":8788",
		HistoryLimit:        100,
		MaxExpressionLength: api.DefaultMaxExpressionLength,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// RegisterFlags adds the configuration flags to fs. Flag defaults are the
// built-in defaults; only flags the user sets override other sources.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagConfig, "", "YAML configuration file")
	fs.String(FlagHTTPAddr, d.HTTPAddr, "REST and web UI listen address (env "+EnvHTTPAddr+")")
	fs.String(FlagGRPCAddr, d.GRPCAddr, "gRPC listen address (env "+EnvGRPCAddr+")")
	fs.Int(FlagHistoryLimit, d.HistoryLimit, "number of evaluations kept, 0 for unlimited (env "+EnvHistoryLimit+")")
	fs.Int(FlagMaxExpressionLength, d.MaxExpressionLength, "longest accepted expression in characters (env "+EnvMaxExpressionLength+")")
	fs.Bool(FlagStrict, d.Strict, "reject tokens left after the expression (env "+EnvStrict+")")
	fs.String(FlagLogLevel, d.LogLevel, "log level: debug, info, warn or error (env "+EnvLogLevel+")")
	fs.String(FlagLogFormat, d.LogFormat, "log format: text or json (env "+EnvLogFormat+")")
	fs.String(FlagLogFile, d.LogFile, "also write JSON logs to this file (env "+EnvLogFile+")")
}

// Load builds the configuration from every source. fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	cfg := Default()

	var path string
	if fs != nil {
		path, _ = fs.GetString(FlagConfig)
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if fs != nil {
		if err := cfg.ApplyFlags(fs); err != nil {
			return Config{}, err
		}
	}
	return cfg, cfg.Validate()
}

// LoadFile overlays the keys present in a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return c.LoadYAML(data)
}

// LoadYAML overlays the keys present in a YAML document. Unknown keys are
// rejected.
func (c *Config) LoadYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ApplyEnv overlays the CALC_* variables that lookup reports as set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", key, v)
		}
		*dst = n
		return nil
	}

	str(EnvHTTPAddr, &c.HTTPAddr)
	str(EnvGRPCAddr, &c.GRPCAddr)
	if err := num(EnvHistoryLimit, &c.HistoryLimit); err != nil {
		return err
	}
	if err := num(EnvMaxExpressionLength, &c.MaxExpressionLength); err != nil {
		return err
	}
	if v, ok := lookup(EnvStrict); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a boolean", EnvStrict, v)
		}
		c.Strict = b
	}
	str(EnvLogLevel, &c.LogLevel)
	str(EnvLogFormat, &c.LogFormat)
	str(EnvLogFile, &c.LogFile)
	return nil
}

// ApplyFlags overlays the flags that were set on the command line.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagHTTPAddr:
			c.HTTPAddr, err = fs.GetString(f.Name)
		case FlagGRPCAddr:
			c.GRPCAddr, err = fs.GetString(f.Name)
		case FlagHistoryLimit:
			c.HistoryLimit, err = fs.GetInt(f.Name)
		case FlagMaxExpressionLength:
			c.MaxExpressionLength, err = fs.GetInt(f.Name)
		case FlagStrict:
			c.Strict, err = fs.GetBool(f.Name)
		case FlagLogLevel:
			c.LogLevel, err = fs.GetString(f.Name)
		case FlagLogFormat:
			c.LogFormat, err = fs.GetString(f.Name)
		case FlagLogFile:
			c.LogFile, err = fs.GetString(f.Name)
		}
	})
	return err
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.HTTPAddr == "":
		return errors.New("http address is required")
	case c.GRPCAddr == "":
		return errors.New("grpc address is required")
	case c.HistoryLimit < 0:
		return fmt.Errorf("history limit must not be negative, got %d", c.HistoryLimit)
	case c.MaxExpressionLength <= 0:
		return fmt.Errorf("max expression length must be positive, got %d", c.MaxExpressionLength)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
