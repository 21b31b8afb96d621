// Package config loads the refer configuration using Viper: a YAML file
// (refer.yaml in the working directory, --config or REFER_CONFIG_FILE)
// with REFER_ prefixed environment overrides such as REFER_STORE_DSN.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lehigh-university-libraries/refer/convert"
	"github.com/lehigh-university-libraries/refer/crosswalk"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REFER"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	// TemplatesDir is the base directory of relative template paths.
	TemplatesDir string               `mapstructure:"templates_dir"`
	Crosswalks   []CrosswalkConfig    `mapstructure:"crosswalks"`
	Vocabulary   crosswalk.Vocabulary `mapstructure:"vocabulary"`
	// Discovery is the path of the search configurations file.
	Discovery string       `mapstructure:"discovery"`
	Store     StoreConfig  `mapstructure:"store"`
	Server    ServerConfig `mapstructure:"server"`
}

type CrosswalkConfig struct {
	Name                  string   `mapstructure:"name" yaml:"name"`
	Template              string   `mapstructure:"template" yaml:"template"`
	MultipleItemsTemplate string   `mapstructure:"multiple_items_template" yaml:"multiple_items_template,omitempty"`
	MIMEType              string   `mapstructure:"mime_type" yaml:"mime_type,omitempty"`
	FileName              string   `mapstructure:"file_name" yaml:"file_name,omitempty"`
	Converters            []string `mapstructure:"converters" yaml:"converters,omitempty"`
	PostProcessors        []string `mapstructure:"post_processors" yaml:"post_processors,omitempty"`
	StrictGroups          bool     `mapstructure:"strict_groups" yaml:"strict_groups,omitempty"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	// Path is the records file read by the memory driver.
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	PageSize int    `mapstructure:"page_size"`
}

type ServerConfig struct {
	Addr     string        `mapstructure:"addr"`
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce"`
}

var defaults = map[string]any{
	"templates_dir":   ".",
	"discovery":       "",
	"store.driver":    DriverMemory,
	"store.path":      "",
	"store.dsn":       "",
	"store.page_size": 20,
	"server.addr":     ":8080",
	"server.watch":    false,
	"server.debounce": "250ms",
}

// New returns a Viper instance with defaults and environment overrides set.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads the configuration file into v. An explicit file (cfgFile,
// then REFER_CONFIG_FILE) must exist; the default refer.yaml may be absent.
func ReadFile(v *viper.Viper, cfgFile string) error {
	explicit := true
	switch {
	case cfgFile != "":
		v.SetConfigFile(cfgFile)
	case os.Getenv(EnvPrefix+"_CONFIG_FILE") != "":
		v.SetConfigFile(os.Getenv(EnvPrefix + "_CONFIG_FILE"))
	default:
		explicit = false
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("refer")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load decodes and validates the configuration held by v. Relative paths
// are resolved against the directory of the configuration file.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	base := "."
	if used := v.ConfigFileUsed(); used != "" {
		base = filepath.Dir(used)
	}
	cfg.resolve(base)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) resolve(base string) {
	c.TemplatesDir = resolvePath(base, c.TemplatesDir)
	c.Discovery = resolvePath(base, c.Discovery)
	c.Store.Path = resolvePath(base, c.Store.Path)
	for i := range c.Crosswalks {
		cw := &c.Crosswalks[i]
		cw.Template = resolvePath(c.TemplatesDir, cw.Template)
		cw.MultipleItemsTemplate = resolvePath(c.TemplatesDir, cw.MultipleItemsTemplate)
	}
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]bool)
	for i, cw := range c.Crosswalks {
		if cw.Name == "" {
			errs = append(errs, fmt.Errorf("crosswalks[%d]: name is required", i))
			continue
		}
		key := strings.ToLower(cw.Name)
		if seen[key] {
			errs = append(errs, fmt.Errorf("crosswalk %s: duplicate name", cw.Name))
		}
		seen[key] = true
		if cw.Template == "" {
			errs = append(errs, fmt.Errorf("crosswalk %s: template is required", cw.Name))
		}
		if _, err := convert.Build(cw.Converters); err != nil {
			errs = append(errs, fmt.Errorf("crosswalk %s: %w", cw.Name, err))
		}
		if _, err := convert.BuildPostProcessor(cw.PostProcessors); err != nil {
			errs = append(errs, fmt.Errorf("crosswalk %s: %w", cw.Name, err))
		}
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store: dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store: unknown driver %q", c.Store.Driver))
	}
	if c.Store.PageSize < 0 {
		errs = append(errs, fmt.Errorf("store: negative page_size %d", c.Store.PageSize))
	}

	return errors.Join(errs...)
}

// Crosswalk returns the configuration of the named crosswalk.
func (c *Config) Crosswalk(name string) (CrosswalkConfig, bool) {
	for _, cw := range c.Crosswalks {
		if strings.EqualFold(cw.Name, name) {
			return cw, true
		}
	}
	return CrosswalkConfig{}, false
}

// CrosswalkConfig converts a crosswalk entry into its engine configuration.
func (c *Config) CrosswalkConfig(cw CrosswalkConfig) crosswalk.Config {
	return crosswalk.Config{
		Name:                  cw.Name,
		Template:              cw.Template,
		MultipleItemsTemplate: cw.MultipleItemsTemplate,
		MIMEType:              cw.MIMEType,
		FileName:              cw.FileName,
		StrictGroups:          cw.StrictGroups,
		Vocabulary:            c.Vocabulary,
	}
}
