package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/voxsync/internal/appconfig"
)

func newInitCmd() *cobra.Command {
	var (
		path      string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := appconfig.WriteDefault(path, overwrite)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", written)
			return err
		},
	}
	cmd.Flags().StringVar(&path, "config", "", "target config file path")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing config file")
	return cmd
}
