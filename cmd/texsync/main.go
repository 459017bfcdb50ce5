package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/texsync/cmd/texsync/commands"
	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/version"

	_ "time/tzdata"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{}

	parser := kong.Parse(cli,
		kong.Name("texsync"),
		kong.Description("Compile Notion pages into PDF publications with pandoc and xelatex."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	err := parser.Run(global, cli)
	if err == nil {
		return
	}

	adapter := errors.NewCLIErrorAdapter(cli.Verbose, global.Logger)
	adapter.Log(err)
	os.Exit(adapter.ExitCodeFor(err))
}
