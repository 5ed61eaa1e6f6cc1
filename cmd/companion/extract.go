package main

import (
	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/pet-companion/companion"
)

func init() {
	register(func(a *app) *cobra.Command {
		var petName string
		cmd := &cobra.Command{
			Use:   "extract [message...]",
			Short: "Propose long-term memories found in a message",
			Long:  "Prints a JSON array of proposed memories. An empty array means nothing was worth remembering or extraction failed (see the log).",
			RunE: func(cmd *cobra.Command, args []string) error {
				msg, err := messageArg(cmd, args)
				if err != nil {
					return err
				}
				ex, err := a.extractor()
				if err != nil {
					return err
				}
				mems, _ := ex.Extract(cmd.Context(), msg, petName)
				if mems == nil {
					mems = []companion.PetMemory{}
				}
				return printJSON(cmd.OutOrStdout(), mems)
			},
		}
		cmd.Flags().StringVarP(&petName, "pet-name", "p", "", "The pet's name, used in the extraction instructions")
		return cmd
	})
}
