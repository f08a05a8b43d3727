package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for portvapt.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portvapt",
		Short: "TCP port scanner with banner identification and risk assessment",
		Long: `portvapt scans a range of TCP ports on one host, grabs banners from the
open ports and produces a vulnerability assessment report with a risk level
for every open port.

Only scan hosts you are authorized to test.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
