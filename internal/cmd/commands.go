package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/postmanlabs/postman-code-examples/internal/cmd/base"
	"github.com/postmanlabs/postman-code-examples/internal/cmd/commands/rootscmd"
	"github.com/postmanlabs/postman-code-examples/internal/cmd/commands/treecmd"
	"github.com/postmanlabs/postman-code-examples/internal/cmd/commands/versioncmd"
)

// Commands is the registry consumed by the CLI runner.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := base.NewCommand(ui, log)

	Commands = map[string]cli.CommandFactory{
		"tree": func() (cli.Command, error) {
			return treecmd.New(b), nil
		},
		"roots": func() (cli.Command, error) {
			return rootscmd.New(b), nil
		},
		"version": func() (cli.Command, error) {
			return versioncmd.New(b), nil
		},
	}
}
