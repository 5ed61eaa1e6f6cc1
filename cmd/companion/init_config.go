package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/pet-companion/companion/config"
)

func init() {
	register(func(a *app) *cobra.Command {
		return &cobra.Command{
			Use:         "init-config <path>",
			Short:       "Write a config file with the default settings",
			Args:        cobra.ExactArgs(1),
			Annotations: map[string]string{"skipConfig": "true"},
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.WriteDefault(args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
				return err
			},
		}
	})
}
