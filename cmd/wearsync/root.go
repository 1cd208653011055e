package main

import (
	"fmt"
	"os"
	"path/filepath"
	"wearsync/internal/structures"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

var flags structures.CliFlags

var rootCmd = &cobra.Command{
	Use:   "wearsync",
	Short: "Incremental wearable health data sync",
	Long: `wearsync pulls intraday metrics, workout sessions and profile values from a
wearable provider and forwards only what changed since the previous sync.

Run "wearsync serve" for the scheduled daemon with its HTTP API, or
"wearsync sync" for a single invocation.`,
	SilenceUsage: true,
}

func defaultConfigPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".wearsync", "config.yaml")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", defaultConfigPath(), "config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.DebugMode, "debug", "d", false, "mirror logs to stdout")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
}
