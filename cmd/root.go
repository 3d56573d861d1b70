// Package cmd wires the protocol engine into a small CLI: serve the
// three channels, connect to a peer, send a file, list peers.
package cmd

import (
	"fmt"
	"os"

	"deskhop/internal/config"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "deskhop",
	Short: "View and control another machine's screen over the LAN",
	Long: `deskhop streams the local screen to LAN viewers, executes remote
input commands, and accepts file transfers. No authentication: intended
for closed networks only.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./deskhop.yaml or ~/deskhop.yaml)")
}
