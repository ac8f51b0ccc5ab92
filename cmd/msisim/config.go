package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	var writePath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective timing configuration, or write it to a file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := root.loadConfig()
			if err != nil {
				return err
			}

			if writePath != "" {
				if err := config.SaveConfig(writePath); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", writePath)
				return nil
			}

			data, err := json.MarshalIndent(config, "", "  ")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))

			return nil
		},
	}

	cmd.Flags().StringVar(&writePath, "write", "", "Write the configuration to a file")

	return cmd
}
