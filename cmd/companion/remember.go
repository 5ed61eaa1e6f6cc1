package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/pet-companion/companion"
)

func init() {
	register(func(a *app) *cobra.Command {
		var (
			userID     string
			petID      string
			memType    string
			title      string
			content    string
			importance int
			recurrence string
			clock      string
		)
		cmd := &cobra.Command{
			Use:   "remember",
			Short: "Store a memory by hand",
			RunE: func(cmd *cobra.Command, _ []string) error {
				m := companion.PetMemory{
					MemoryType: companion.MemoryType(memType),
					Title:      strings.TrimSpace(title),
					Content:    strings.TrimSpace(content),
					Importance: importance,
				}
				if !m.MemoryType.Valid() {
					return fmt.Errorf("unknown memory type %q", memType)
				}
				if m.Title == "" || m.Content == "" {
					return fmt.Errorf("title and content are required")
				}
				if recurrence != "" {
					r := companion.Recurrence(recurrence)
					if !r.Valid() {
						return fmt.Errorf("unknown recurrence %q", recurrence)
					}
					m.TimeInfo = &companion.TimeInfo{Type: r}
					if clock != "" {
						hhmm, ok := companion.NormalizeClock(clock)
						if !ok {
							return fmt.Errorf("cannot read time %q", clock)
						}
						m.TimeInfo.Time = hhmm
					}
				}

				s, err := a.openStore()
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer s.Close()

				stored, err := s.AppendMemory(cmd.Context(), userID, petID, m)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stored)
			},
		}
		cmd.Flags().StringVarP(&userID, "user-id", "u", "", "User ID (required)")
		cmd.Flags().StringVar(&petID, "pet-id", "", "Pet ID (required)")
		cmd.Flags().StringVarP(&memType, "type", "t", string(companion.EpisodeMemory), "Memory type")
		cmd.Flags().StringVar(&title, "title", "", "Short title (required)")
		cmd.Flags().StringVar(&content, "content", "", "One-sentence fact (required)")
		cmd.Flags().IntVarP(&importance, "importance", "i", 5, "Importance 1-10")
		cmd.Flags().StringVar(&recurrence, "recurrence", "", "daily, weekly, monthly or once")
		cmd.Flags().StringVar(&clock, "time", "", `Time of day, e.g. "08:00", "아침 8시", "7:30pm"`)
		cmd.MarkFlagRequired("user-id")
		cmd.MarkFlagRequired("pet-id")
		return cmd
	})
}
