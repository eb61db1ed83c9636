// Package versioncmd implements the `version` subcommand.
package versioncmd

import (
	"github.com/postmanlabs/postman-code-examples/internal/cmd/base"
	"github.com/postmanlabs/postman-code-examples/internal/version"
)

type Command struct {
	*base.Command
}

func New(b *base.Command) *Command {
	return &Command{Command: b}
}

func (c *Command) Synopsis() string {
	return "Print the version"
}

func (c *Command) Help() string {
	return "Usage: workspace-map version"
}

func (c *Command) Run(args []string) int {
	c.UI.Output("workspace-map " + version.Version)
	return 0
}
