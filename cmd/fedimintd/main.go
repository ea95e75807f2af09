// Command fedimintd runs one federation peer: module registry, submission
// queue, consensus engine, and JSON-RPC API server, all sharing a single
// task group and database.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Git SHA1 commit hash of the release (set via linker flags).
var gitCommit = ""
var gitDate = ""

var app *cli.App

func init() {
	app = &cli.App{
		Name:      "fedimintd",
		Usage:     "run a federation consensus peer",
		ArgsUsage: "<data-dir>",
		Version:   versionString(),
		Action:    run,
		Flags: []cli.Flag{
			passwordFlag,
			listenAPIFlag,
			genConfigFlag,
		},
		Commands: []*cli.Command{
			versionHashCommand,
		},
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var versionHashCommand = &cli.Command{
	Name:      "version-hash",
	Usage:     "print the git commit hash this binary was built from",
	ArgsUsage: " ",
	Action: func(ctx *cli.Context) error {
		fmt.Println(gitCommit)
		return nil
	},
}

func versionString() string {
	if gitCommit == "" {
		return "dev"
	}
	if len(gitCommit) > 8 {
		return gitCommit[:8]
	}
	return gitCommit
}
