package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/pet-companion/companion"
)

func init() {
	register(func(a *app) *cobra.Command {
		var (
			userID string
			petID  string
			limit  int
		)
		cmd := &cobra.Command{
			Use:   "trajectory",
			Short: "Show the recorded grief readings for a user and pet, oldest first",
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := a.openStore()
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer s.Close()

				readings, err := s.GriefTrajectory(cmd.Context(), userID, petID, limit)
				if err != nil {
					return err
				}
				if readings == nil {
					readings = []companion.GriefReading{}
				}
				return printJSON(cmd.OutOrStdout(), readings)
			},
		}
		cmd.Flags().StringVarP(&userID, "user-id", "u", "", "User ID (required)")
		cmd.Flags().StringVar(&petID, "pet-id", "", "Pet ID (required)")
		cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Most recent readings to show (0 = all)")
		cmd.MarkFlagRequired("user-id")
		cmd.MarkFlagRequired("pet-id")
		return cmd
	})
}
