// Package treecmd implements the `tree` subcommand: fetch and print the
// full block tree of one page, stopping at child pages and databases.
package treecmd

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
	flagTimeout time.Duration
}

func New(b *base.Command) *Command {
	return &Command{Command: b}
}

func (c *Command) Synopsis() string {
	return "Fetch the content tree of a page"
}

func (c *Command) Help() string {
	return `Usage: workspace-map tree [options] <page-id>

  Fetches every block under the given page, expanding nested structure
  (toggles, list items, ...) but stopping at child pages and child
  databases, which are listed with their IDs so they can be mapped with
  a separate invocation.

` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet("tree")
	f.StringVar(&c.flagConfig, "config", "", "Path to an HCL config file.")
	f.BoolVar(&c.flagRaw, "raw", false, "Print the result as JSON instead of an indented outline.")
	f.DurationVar(&c.flagTimeout, "timeout", 0, "Overall deadline for the traversal (0 means none).")
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if len(f.Args()) != 1 {
		c.UI.Error("exactly one page ID argument is required")
		c.UI.Output(c.Help())
		return 1
	}
	pageID := f.Args()[0]

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

	walker, err := traverse.NewWalker(traverse.WalkerConfig{
		Client:        client,
		Boundaries:    cfg.BoundaryKindSet(),
		PageSize:      cfg.Workspace.PageSize,
		MaxConcurrent: cfg.Workspace.MaxConcurrentFetches,
		Logger:        c.Log,
	})
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx := context.Background()
	if c.flagTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.flagTimeout)
		defer cancel()
	}

	result, err := walker.FetchTree(ctx, pageID)
	if err != nil {
		c.UI.Error(fmt.Sprintf("traversal failed: %v", err))
		return 1
	}

	if c.flagRaw {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			c.UI.Error(fmt.Sprintf("failed to encode result: %v", err))
			return 1
		}
		c.UI.Output(string(out))
		return 0
	}

	c.UI.Output(renderOutline(result, cfg.BoundaryKindSet()))
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

// renderOutline prints one line per entry, indented by depth. Boundary
// nodes get a hint that a separate invocation descends into them.
func renderOutline(result traverse.TraversalResult, boundaries traverse.KindSet) string {
	var sb strings.Builder
	for _, e := range result {
		text, err := e.Block.PlainText()
		if err != nil || text == "" {
			text = "-"
		}

		indent := strings.Repeat("  ", e.Depth)
		fmt.Fprintf(&sb, "%s[%s] %s", indent, e.Block.Type, text)
		if boundaries.Contains(e.Block.Type) {
			fmt.Fprintf(&sb, " (id: %s, not expanded)", e.Block.ID)
		}
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "(page has no content)"
	}
	return strings.TrimRight(sb.String(), "\n")
}
