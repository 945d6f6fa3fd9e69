package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gangwaylabs/gangway/cmd/gangway/run"
	"github.com/gangwaylabs/gangway/wasi"
)

var version = "<unknown>"

func configureCLI() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "gangway",
		Short:         "gangway WASI runtime",
		Long:          "gangway - a capability-based WASI preview 1 runtime",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCommand.AddCommand(run.Command())

	return rootCommand
}

func main() {
	rootCommand := configureCLI()

	if err := rootCommand.Execute(); err != nil {
		var exit *wasi.ExitError
		if errors.As(err, &exit) {
			os.Exit(int(exit.Code))
		}

		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
