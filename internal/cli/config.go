package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kroma-labs/courier-go/httpclient"
)

// Config is the courier configuration file.
//
//	base_url: https://uploads.example.com/api
//	charset: ISO-8859-1
//	timeout: 5m
//	headers:
//	  Authorization: Bearer token
type Config struct {
	// BaseURL is joined with relative request paths such as "/files".
	BaseURL string `yaml:"base_url,omitempty"`

	// Headers are sent with every request; request items override them.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Charset encodes text and JSON parts. Defaults to UTF-8.
	Charset string `yaml:"charset,omitempty"`

	// Timeout bounds the whole exchange. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	Debug   bool `yaml:"debug,omitempty"`
	NoColor bool `yaml:"no_color,omitempty"`

	// ServiceName names the client in span attributes.
	ServiceName string `yaml:"service_name,omitempty"`
}

// ConfigFilenames are searched, in order, when no --config is given.
var ConfigFilenames = []string{
	".courier.yaml",
	".courier.yml",
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Charset: httpclient.UTF8.Name(),
		Headers: map[string]string{},
	}
}

// LoadConfig loads the file at path, or searches the working directory when
// path is empty.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig loads the first of ConfigFilenames present in dir, or
// the defaults when there is none.
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the charset, timeout and base URL.
func (c *Config) Validate() error {
	if c.Charset != "" {
		if _, err := httpclient.LookupCharset(c.Charset); err != nil {
			return err
		}
	}
	if c.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}
	if c.BaseURL != "" {
		if _, err := httpclient.ParseEndpoint(c.BaseURL); err != nil {
			return fmt.Errorf("base_url: %w", err)
		}
	}
	return nil
}

// ResolveURL turns a command line URL into an absolute one. Relative paths
// are joined onto BaseURL when it is set; otherwise ":8080/x" and "/x" mean
// localhost and a missing scheme means http.
func (c *Config) ResolveURL(raw string) (string, error) {
	if c.BaseURL != "" && strings.HasPrefix(raw, "/") {
		return strings.TrimSuffix(c.BaseURL, "/") + raw, nil
	}

	if strings.HasPrefix(raw, ":") || strings.HasPrefix(raw, "/") {
		raw = "localhost" + raw
	}
	if !reScheme.MatchString(raw) {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %s", raw)
	}
	u.Host = strings.TrimSuffix(u.Host, ":")
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}
