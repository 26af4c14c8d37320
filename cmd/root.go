package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/screener/screener-go/cmd/benchmark"
	"github.com/screener/screener-go/cmd/realtime"
	"github.com/screener/screener-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "screener",
		Short: "Screener CLI",
		Long:  "Automatic two-source camera switching for golf simulator broadcasts.",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		realtime.Command(settings),
		benchmark.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines global flags and binds them to viper.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	//nolint:errcheck // flags were just defined above
	viper.BindPFlags(rootCmd.PersistentFlags())
}
