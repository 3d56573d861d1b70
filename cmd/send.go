package cmd

import (
	"fmt"
	"net"
	"strconv"

	"deskhop/internal/transfer"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <address> <file>",
	Short: "Send a file to a remote instance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := net.JoinHostPort(args[0], strconv.Itoa(cfg.FilePort))
		sender := transfer.NewSender(cfg.DialTimeout, cfg.WriteTimeout)
		if err := sender.Send(addr, args[1]); err != nil {
			return fmt.Errorf("send %s: %w", args[1], err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
