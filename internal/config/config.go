// SPDX-License-Identifier: Apache-2.0

// Package config loads scanner settings from flags, environment and an
// optional config file, and validates them against a CUE schema.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/gemaraproj/credsniff/internal/content"
	"github.com/gemaraproj/credsniff/internal/token"
)

// EnvPrefix prefixes environment overrides, e.g. CREDSNIFF_MAX_DECODE_LAYERS.
const EnvPrefix = "CREDSNIFF"

// Keys shared by flags, environment and config files.
const (
	KeyEncoding        = "encoding"
	KeyMaxDecodeLayers = "max-decode-layers"
	KeyLogLevel        = "log-level"
	KeyWorkers         = "workers"
	KeyTokenPrefixes   = "token-prefixes"
)

const (
	defaultMaxDecodeLayers = 3
	defaultLogLevel        = "info"
	defaultWorkers         = 4
)

//go:embed schema.cue
var schemaSource string

// Config holds the settings of the normalization driver.
type Config struct {
	// Encoding is the declared text encoding of scanned buffers.
	Encoding string `json:"encoding" mapstructure:"encoding"`
	// MaxDecodeLayers bounds how many nested base64 layers are unwrapped.
	MaxDecodeLayers int `json:"max_decode_layers" mapstructure:"max-decode-layers"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" mapstructure:"log-level"`
	// Workers bounds the files scanned concurrently.
	Workers int `json:"workers" mapstructure:"workers"`
	// TokenPrefixes are the family prefixes of the access key id matcher.
	TokenPrefixes []string `json:"token_prefixes" mapstructure:"token-prefixes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Encoding:        content.DefaultEncoding,
		MaxDecodeLayers: defaultMaxDecodeLayers,
		LogLevel:        defaultLogLevel,
		Workers:         defaultWorkers,
		TokenPrefixes:   append([]string(nil), token.AWSKeyIDPrefixes...),
	}
}

// NewViper returns a viper instance with defaults and environment binding.
// A separate instance avoids interfering with global viper state.
func NewViper() *viper.Viper {
	v := viper.New()
	def := Default()
	v.SetDefault(KeyEncoding, def.Encoding)
	v.SetDefault(KeyMaxDecodeLayers, def.MaxDecodeLayers)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyWorkers, def.Workers)
	v.SetDefault(KeyTokenPrefixes, def.TokenPrefixes)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at path into v and returns the
// validated configuration.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config file not found at %s: %w", path, err)
			}
			return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the #Config schema and the supported encodings.
func (c Config) Validate() error {
	if c.TokenPrefixes == nil {
		c.TokenPrefixes = []string{}
	}
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := content.ValidateEncoding(c.Encoding); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
