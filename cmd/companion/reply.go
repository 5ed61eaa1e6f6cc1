package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/pet-companion/companion"
)

func init() {
	register(func(a *app) *cobra.Command {
		var userID, petID string
		cmd := &cobra.Command{
			Use:   "reply [text...]",
			Short: "Record the pet persona's reply to the last turn",
			RunE: func(cmd *cobra.Command, args []string) error {
				text, err := messageArg(cmd, args)
				if err != nil {
					return err
				}
				s, err := a.openStore()
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer s.Close()

				o := companion.NewTurnOrchestrator(nil, nil, companion.WithStore(s), companion.WithTurnLogger(a.log))
				return o.RecordReply(cmd.Context(), userID, petID, text)
			},
		}
		cmd.Flags().StringVarP(&userID, "user-id", "u", "", "User ID (required)")
		cmd.Flags().StringVar(&petID, "pet-id", "", "Pet ID (required)")
		cmd.MarkFlagRequired("user-id")
		cmd.MarkFlagRequired("pet-id")
		return cmd
	})
}
