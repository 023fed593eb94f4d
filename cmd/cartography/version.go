package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/cartography"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cartography",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cartography version %s\n", strings.TrimSpace(cartography.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
