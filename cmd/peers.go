package cmd

import (
	"context"
	"fmt"
	"time"

	"deskhop/internal/discovery"

	"github.com/spf13/cobra"
)

var browseFor time.Duration

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List deskhop instances discovered on the LAN",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), browseFor)
		defer cancel()

		found := 0
		err := discovery.Browse(ctx, func(p discovery.Peer) {
			found++
			fmt.Printf("%s\t%s\t%s\n", p.Hostname, p.Address, p.Name)
		})
		if err != nil {
			return err
		}
		if found == 0 {
			fmt.Println("no peers found")
		}
		return nil
	},
}

func init() {
	peersCmd.Flags().DurationVar(&browseFor, "timeout", 5*time.Second, "how long to browse")
	rootCmd.AddCommand(peersCmd)
}
