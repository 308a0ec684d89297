package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "relay-cli",
	Short: "relay-cli is the command-line interface for Review-Relay.",
	Long:  `A CLI for operating the Review-Relay service: inspecting stored review outcomes and replaying payloads onto the task stream.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)
}

// initConfig reads in ENV variables if set.
func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
