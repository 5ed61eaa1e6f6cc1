package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/pet-companion/companion"
)

func init() {
	register(func(a *app) *cobra.Command {
		var (
			petID string
			limit int
		)
		cmd := &cobra.Command{
			Use:   "history",
			Short: "Show the most recent conversation messages for a pet, oldest first",
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := a.openStore()
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer s.Close()

				msgs, err := s.RecentMessages(cmd.Context(), petID, limit)
				if err != nil {
					return err
				}
				if msgs == nil {
					msgs = []companion.Message{}
				}
				return printJSON(cmd.OutOrStdout(), msgs)
			},
		}
		cmd.Flags().StringVar(&petID, "pet-id", "", "Pet ID (required)")
		cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Most recent messages to show (0 = all)")
		cmd.MarkFlagRequired("pet-id")
		return cmd
	})
}
