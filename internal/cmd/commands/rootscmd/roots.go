// Package rootscmd implements the `roots` subcommand: list the entry
// points of the workspace reachable by the configured integration.
package rootscmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/postmanlabs/postman-code-examples/internal/cmd/base"
	"github.com/postmanlabs/postman-code-examples/internal/config"
	"github.com/postmanlabs/postman-code-examples/pkg/notion"
	"github.com/postmanlabs/postman-code-examples/pkg/traverse"
)

type Command struct {
	*base.Command

	flagConfig  string
	flagRaw     bool
	flagQuery   string
	flagObject  string
	flagTimeout time.Duration
}

func New(b *base.Command) *Command {
	return &Command{Command: b}
}

func (c *Command) Synopsis() string {
	return "Infer the workspace entry points visible to the integration"
}

func (c *Command) Help() string {
	return `Usage: workspace-map roots [options]

  Lists every page or database that is an effective entry point for the
  configured integration: true top-level objects, plus objects whose
  parent page is outside the integration's grant. The API cannot tell
  "parent does not exist" from "parent is not shared", so both count.

` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet("roots")
	f.StringVar(&c.flagConfig, "config", "", "Path to an HCL config file.")
	f.BoolVar(&c.flagRaw, "raw", false, "Print the result as JSON instead of a listing.")
	f.StringVar(&c.flagQuery, "query", "", "Title search passed through to the API verbatim.")
	f.StringVar(&c.flagObject, "object", "", "Restrict to one object type: page or database.")
	f.DurationVar(&c.flagTimeout, "timeout", 0, "Overall deadline for the listing (0 means none).")
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if len(f.Args()) != 0 {
		c.UI.Error("roots takes no positional arguments")
		return 1
	}
	if c.flagObject != "" && c.flagObject != "page" && c.flagObject != "database" {
		c.UI.Error(fmt.Sprintf("invalid -object value %q: must be page or database", c.flagObject))
		return 1
	}

	cfg, err := loadConfig(c.flagConfig)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	clientCfg.Logger = c.Log

	client, err := notion.NewClient(clientCfg)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	inference, err := traverse.NewRootInference(traverse.RootInferenceConfig{
		Client:   client,
		PageSize: cfg.Workspace.PageSize,
		Logger:   c.Log,
	})
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	query := notion.SearchQuery{Query: c.flagQuery}
	if c.flagObject != "" {
		query.Filter = &notion.SearchFilter{Property: "object", Value: c.flagObject}
	}

	ctx := context.Background()
	if c.flagTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.flagTimeout)
		defer cancel()
	}

	roots, err := inference.InferRoots(ctx, query)
	if err != nil {
		c.UI.Error(fmt.Sprintf("root inference failed: %v", err))
		return 1
	}

	if c.flagRaw {
		out, err := json.MarshalIndent(roots, "", "  ")
		if err != nil {
			c.UI.Error(fmt.Sprintf("failed to encode result: %v", err))
			return 1
		}
		c.UI.Output(string(out))
		return 0
	}

	c.UI.Output(renderRoots(roots))
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.FromFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func renderRoots(roots traverse.RootSet) string {
	if len(roots) == 0 {
		return "(nothing is shared with this integration)"
	}

	var sb strings.Builder
	for _, r := range roots {
		title := r.Entity.Title
		if title == "" {
			title = "(untitled)"
		}
		marker := "top-level"
		if r.Reason == traverse.RootReasonHiddenParent {
			marker = "parent not visible"
		}
		fmt.Fprintf(&sb, "%-10s %s  %s  [%s]\n", r.Entity.Object, r.Entity.ID, title, marker)
	}
	return strings.TrimRight(sb.String(), "\n")
}
