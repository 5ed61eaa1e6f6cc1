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
			Use:   "context",
			Short: "Render a pet's most important stored memories as prompt context",
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := a.openStore()
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer s.Close()

				if limit <= 0 {
					limit = a.cfg.Memory.ContextLimit
				}
				mems, err := s.TopMemories(cmd.Context(), petID, limit)
				if err != nil {
					return err
				}
				out := companion.ToContext(mems)
				if out == "" {
					return nil
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
				return err
			},
		}
		cmd.Flags().StringVar(&petID, "pet-id", "", "Pet ID (required)")
		cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum memories (default: memory.context_limit)")
		cmd.MarkFlagRequired("pet-id")
		return cmd
	})
}
