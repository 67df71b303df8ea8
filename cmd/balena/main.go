// Package main is the entry point for the balena CLI.
//
// balena is a command-line tool for provisioning balenaOS disk images:
// it injects a device or fleet configuration into an image so the device
// joins the right fleet on first boot, and discovers local devices on
// the network.
//
// Commands: os configure, scan.
//
// For detailed usage information, run:
//
//	balena --help
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/aniongithub/balena-cli/cmd/balena/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Credentials such as BALENA_TOKEN may live in a local .env file.
	_ = godotenv.Load()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
