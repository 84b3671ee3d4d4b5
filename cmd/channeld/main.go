package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/promeg/multichannel/internal/channel"
	"github.com/promeg/multichannel/internal/daemon"
	"github.com/promeg/multichannel/internal/profile"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	archiveFlag := flag.String("archive", "", "path to the application package archive")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	settings, err := profile.Load(name, *archiveFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}
	if settings.Archive == "" {
		fmt.Fprintf(os.Stderr, "warning: no archive configured for profile %q; channel will be %s unless cached\n", name, channel.DefaultChannel)
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			Profile:            name,
			Archive:            settings.Archive,
			KeepCarriageReturn: settings.KeepCarriageReturn,
			LogLevel:           *logLevel,
		}),
	)

	app.Run()
}
