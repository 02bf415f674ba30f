// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// authCommand runs the OAuth2 authorization flow without saving anything.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize access to your Spotify account and persist tokens",
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: r.Auth,
	}
}

// initCommand writes a starter configuration file.
func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a starter config.toml in the working directory",
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: r.Init,
	}
}
