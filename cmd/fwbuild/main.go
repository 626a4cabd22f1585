package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/fwbuild/cmd/fwbuild/commands"
	"git.home.luguber.info/inful/fwbuild/internal/version"
)

func main() {
	cli := commands.CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("fwbuild"),
		kong.Description("Cross-compiles firmware applications and installs raw binaries into the kernel's appbins directory."),
		kong.Vars{"version": fmt.Sprintf("fwbuild %s (commit %s, built %s)", version.Version, version.GitCommit, version.BuildTime)},
	)

	err := ctx.Run(&commands.Global{})
	ctx.FatalIfErrorf(err)
}
