package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// GlobalFlags holds the persistent flags shared by every command
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	NoColor    bool
}

var globalFlags GlobalFlags

// AddGlobalFlags registers the persistent flags on the root command
func AddGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&globalFlags.ConfigFile, "config", "",
		"config file (default is $HOME/.config/sigrename/config.yaml)")
	flags.BoolVarP(&globalFlags.Verbose, "verbose", "v", false,
		"log every file at debug level")
	flags.BoolVarP(&globalFlags.Quiet, "quiet", "q", false,
		"suppress non-error output")
	flags.BoolVar(&globalFlags.NoColor, "no-color", false,
		"disable colored output (also honors NO_COLOR)")

	cmd.PersistentPreRun = func(*cobra.Command, []string) {
		applyColor()
	}
}

func applyColor() {
	if globalFlags.NoColor {
		color.NoColor = true
	}
}
