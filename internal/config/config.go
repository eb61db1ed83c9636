// Package config loads and validates the CLI configuration from an HCL
// file. Config is the only layer that touches the process environment;
// everything below it receives credentials and settings explicitly.
package config

import (
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/postmanlabs/postman-code-examples/pkg/notion"
	"github.com/postmanlabs/postman-code-examples/pkg/traverse"
)

// Config is the root of the configuration file.
//
// Example:
//
//	workspace {
//	  auth_token_env = "NOTION_TOKEN"
//	  page_size      = 100
//	  boundary_kinds = ["child_page", "child_database"]
//
//	  retry {
//	    enabled          = true
//	    initial_interval = "500ms"
//	  }
//	}
type Config struct {
	Workspace *Workspace `hcl:"workspace,block"`
}

// Workspace configures the API connection and the traversal engine.
type Workspace struct {
	// BaseURL of the API. Defaults to the production endpoint.
	BaseURL string `hcl:"base_url,optional"`

	// APIVersion pins the Notion-Version header.
	APIVersion string `hcl:"api_version,optional"`

	// AuthToken is the integration token. Prefer AuthTokenEnv so the
	// secret stays out of the file.
	AuthToken string `hcl:"auth_token,optional"`

	// AuthTokenEnv names the environment variable holding the token.
	// Used when AuthToken is empty. Defaults to NOTION_TOKEN.
	AuthTokenEnv string `hcl:"auth_token_env,optional"`

	// PageSize requested per listing call, at most 100. Zero lets the
	// server choose.
	PageSize int `hcl:"page_size,optional"`

	// MaxConcurrentFetches caps sibling subtree fan-out per level.
	// Zero means no cap.
	MaxConcurrentFetches int `hcl:"max_concurrent_fetches,optional"`

	// BoundaryKinds lists the block kinds the traversal must never
	// auto-expand. Defaults to child_page and child_database.
	BoundaryKinds []string `hcl:"boundary_kinds,optional"`

	// Retry configures the optional backoff policy around the API
	// client.
	Retry *Retry `hcl:"retry,block"`
}

// Retry mirrors notion.RetryConfig with file-friendly duration strings.
type Retry struct {
	Enabled         bool    `hcl:"enabled,optional"`
	InitialInterval string  `hcl:"initial_interval,optional"`
	MaxInterval     string  `hcl:"max_interval,optional"`
	MaxElapsedTime  string  `hcl:"max_elapsed_time,optional"`
	Multiplier      float64 `hcl:"multiplier,optional"`
}

// NewConfig returns a config with defaults applied and no file loaded.
func NewConfig() *Config {
	cfg := &Config{Workspace: &Workspace{}}
	cfg.applyDefaults()
	return cfg
}

// FromFile parses an HCL config file and applies defaults.
func FromFile(path string) (*Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workspace == nil {
		c.Workspace = &Workspace{}
	}
	w := c.Workspace
	if w.BaseURL == "" {
		w.BaseURL = notion.DefaultBaseURL
	}
	if w.APIVersion == "" {
		w.APIVersion = notion.DefaultAPIVersion
	}
	if w.AuthTokenEnv == "" {
		w.AuthTokenEnv = "NOTION_TOKEN"
	}
	if w.BoundaryKinds == nil {
		w.BoundaryKinds = []string{
			string(notion.BlockTypeChildPage),
			string(notion.BlockTypeChildDatabase),
		}
	}
}

// Validate checks every section, collecting all problems rather than
// stopping at the first.
func (c *Config) Validate() error {
	var result *multierror.Error

	w := c.Workspace
	if err := validation.ValidateStruct(w,
		validation.Field(&w.PageSize, validation.Min(0), validation.Max(notion.MaxPageSize)),
		validation.Field(&w.MaxConcurrentFetches, validation.Min(0)),
		validation.Field(&w.BoundaryKinds, validation.Each(validation.Required)),
	); err != nil {
		result = multierror.Append(result, fmt.Errorf("workspace: %w", err))
	}

	if w.Retry != nil {
		if err := w.Retry.validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("workspace.retry: %w", err))
		}
	}

	return result.ErrorOrNil()
}

func (r *Retry) validate() error {
	var result *multierror.Error

	for name, value := range map[string]string{
		"initial_interval": r.InitialInterval,
		"max_interval":     r.MaxInterval,
		"max_elapsed_time": r.MaxElapsedTime,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
		}
	}
	if r.Multiplier < 0 {
		result = multierror.Append(result, fmt.Errorf("multiplier cannot be negative, got %v", r.Multiplier))
	}

	return result.ErrorOrNil()
}

// ResolveToken returns the auth token, falling back to the configured
// environment variable.
func (c *Config) ResolveToken() (string, error) {
	w := c.Workspace
	if w.AuthToken != "" {
		return w.AuthToken, nil
	}
	if token := os.Getenv(w.AuthTokenEnv); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("no auth token: set auth_token in the config file or export %s", w.AuthTokenEnv)
}

// ClientConfig builds the API client config, resolving the token.
func (c *Config) ClientConfig() (notion.Config, error) {
	token, err := c.ResolveToken()
	if err != nil {
		return notion.Config{}, err
	}

	cfg := notion.Config{
		BaseURL:    c.Workspace.BaseURL,
		APIVersion: c.Workspace.APIVersion,
		AuthToken:  token,
	}
	if r := c.Workspace.Retry; r != nil && r.Enabled {
		cfg.Retry = r.toRetryConfig()
	}
	return cfg, nil
}

func (r *Retry) toRetryConfig() *notion.RetryConfig {
	out := notion.DefaultRetryConfig()
	if d, err := time.ParseDuration(r.InitialInterval); err == nil && d > 0 {
		out.InitialInterval = d
	}
	if d, err := time.ParseDuration(r.MaxInterval); err == nil && d > 0 {
		out.MaxInterval = d
	}
	if d, err := time.ParseDuration(r.MaxElapsedTime); err == nil && d > 0 {
		out.MaxElapsedTime = d
	}
	if r.Multiplier > 0 {
		out.Multiplier = r.Multiplier
	}
	return out
}

// BoundaryKindSet converts the configured boundary kinds for the walker.
func (c *Config) BoundaryKindSet() traverse.KindSet {
	kinds := make([]notion.BlockType, 0, len(c.Workspace.BoundaryKinds))
	for _, k := range c.Workspace.BoundaryKinds {
		kinds = append(kinds, notion.BlockType(k))
	}
	return traverse.NewKindSet(kinds...)
}
