package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/pet-companion/companion"
)

func init() {
	register(func(a *app) *cobra.Command {
		var (
			emotion string
			stage   string
			mode    string
			primary bool
		)
		cmd := &cobra.Command{
			Use:         "guide",
			Short:       "Print the reply tone guide for an emotion and grief stage",
			Annotations: map[string]string{"skipConfig": "true"},
			RunE: func(cmd *cobra.Command, _ []string) error {
				e := companion.Emotion(emotion)
				if !e.Valid() {
					return fmt.Errorf("unknown emotion %q", emotion)
				}
				g := companion.GriefStage(stage)
				if stage != "" && !g.Valid() {
					return fmt.Errorf("unknown grief stage %q", stage)
				}
				guidance := companion.SelectGuide(companion.EmotionAnalysis{Emotion: e, GriefStage: g}, companion.ParseMode(mode))
				if primary {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), guidance.Primary())
					return err
				}
				return printJSON(cmd.OutOrStdout(), guidance)
			},
		}
		cmd.Flags().StringVarP(&emotion, "emotion", "e", string(companion.Neutral), "Emotion label")
		cmd.Flags().StringVarP(&stage, "grief-stage", "g", "", "Grief stage label (memorial mode only)")
		cmd.Flags().StringVarP(&mode, "mode", "m", string(companion.DailyMode), "Conversation mode: daily or memorial")
		cmd.Flags().BoolVar(&primary, "primary", false, "Print only the guide the reply should follow")
		return cmd
	})
}
