// Package base carries the pieces shared by every CLI command: the UI,
// the logger, and a flag set that renders its own help text.
package base

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

// Command is embedded by every subcommand.
type Command struct {
	UI  cli.Ui
	Log hclog.Logger
}

// NewCommand builds the shared command core.
func NewCommand(ui cli.Ui, log hclog.Logger) *Command {
	return &Command{UI: ui, Log: log}
}

// FlagSet wraps the standard flag set with help rendering suitable for
// embedding in a command's Help output.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet creates a named flag set that reports errors instead of
// exiting the process.
func NewFlagSet(name string) *FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.SetOutput(io.Discard)
	return &FlagSet{FlagSet: f}
}

// Help renders the registered flags as an indented options block.
func (f *FlagSet) Help() string {
	var sb strings.Builder
	sb.WriteString("Options:\n")
	f.VisitAll(func(fl *flag.Flag) {
		if fl.DefValue != "" && fl.DefValue != "false" {
			fmt.Fprintf(&sb, "\n  -%s=%s\n", fl.Name, fl.DefValue)
		} else {
			fmt.Fprintf(&sb, "\n  -%s\n", fl.Name)
		}
		fmt.Fprintf(&sb, "      %s\n", fl.Usage)
	})
	return sb.String()
}
