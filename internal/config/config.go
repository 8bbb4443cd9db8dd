// Package config loads the client configuration from a YAML file with
// environment overrides.
//
// YAML example:
//
//	api:
//	  base_url: http://localhost:8080/api/v1
//	  timeout: 30s
//	list:
//	  page_size: 10
//	  sort: name,asc
//	suggest:
//	  delay: 300ms
//	  limit: 10
//	token_store:
//	  backend: file
//	  path: ""
//	logging:
//	  level: warn
//	  development: false
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/fileutils"
	"gopkg.in/yaml.v3"

	"github.com/omelentjeff/product-management-app/internal/logging"
	"github.com/omelentjeff/product-management-app/internal/model"
)

// Environment overrides.
const (
	EnvAPIURL     = "PM_API_URL"
	EnvAPITimeout = "PM_API_TIMEOUT"
)

const appDir = "pmcli"

// Config is the full client configuration.
type Config struct {
	API        apiConf        `yaml:"api"`
	List       listConf       `yaml:"list"`
	Suggest    suggestConf    `yaml:"suggest"`
	TokenStore tokenStoreConf `yaml:"token_store"`
	Logging    loggingConf    `yaml:"logging"`
}

type apiConf struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

func (c *apiConf) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.Wrap(err, "error in api conf: base_url")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("error in api conf: base_url '%s' must be an absolute http(s) URL", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return errors.New("error in api conf: timeout must be positive")
	}
	return nil
}

type listConf struct {
	PageSize int    `yaml:"page_size"`
	Sort     string `yaml:"sort"`
}

// SortKey and SortDir split Sort; call only after validation.
func (c listConf) SortKey() string {
	k, _, _ := model.ParseSort(c.Sort)
	return k
}

func (c listConf) SortDir() model.SortDirection {
	_, d, _ := model.ParseSort(c.Sort)
	return d
}

func (c *listConf) validate() error {
	if c.PageSize <= 0 {
		return errors.New("error in list conf: page_size must be positive")
	}
	if _, _, err := model.ParseSort(c.Sort); err != nil {
		return errors.Wrap(err, "error in list conf")
	}
	return nil
}

type suggestConf struct {
	Delay time.Duration `yaml:"delay"`
	Limit int           `yaml:"limit"`
}

func (c *suggestConf) validate() error {
	if c.Delay < 0 {
		return errors.New("error in suggest conf: delay must not be negative")
	}
	if c.Limit <= 0 {
		return errors.New("error in suggest conf: limit must be positive")
	}
	return nil
}

type loggingConf struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func (c *loggingConf) validate() error {
	if _, err := logging.ParseLevel(c.Level); err != nil {
		return errors.Wrap(err, "error in logging conf")
	}
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: apiConf{
			BaseURL: "http://localhost:8080/api/v1",
			Timeout: 30 * time.Second,
		},
		List: listConf{
			PageSize: 10,
			Sort:     "name,asc",
		},
		Suggest: suggestConf{
			Delay: 300 * time.Millisecond,
			Limit: 10,
		},
		TokenStore: tokenStoreConf{
			Backend: BackendFile,
		},
		Logging: loggingConf{
			Level: logging.DefaultLevel,
		},
	}
}

// Dir is the per-user configuration directory.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, appDir)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appDir)
}

// DefaultPath is used when no config file is named.
func DefaultPath() string { return filepath.Join(Dir(), "config.yaml") }

// Load reads path (DefaultPath when empty). A missing file yields the
// defaults; environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	if !fileutils.FileExists(path) {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, applies the environment and
// validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, errors.Wrap(err, "could not parse config")
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvAPITimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvAPITimeout)
		}
		c.API.Timeout = d
	}
	return nil
}

func (c *Config) validate() error {
	if err := c.API.validate(); err != nil {
		return err
	}
	if err := c.List.validate(); err != nil {
		return err
	}
	if err := c.Suggest.validate(); err != nil {
		return err
	}
	if err := c.TokenStore.validate(); err != nil {
		return err
	}
	return c.Logging.validate()
}
