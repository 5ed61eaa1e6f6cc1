package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/pet-companion/companion"
)

func init() {
	register(func(a *app) *cobra.Command {
		var (
			in      companion.TurnInput
			mode    string
			guest   bool
			offline bool
		)
		cmd := &cobra.Command{
			Use:   "turn [message...]",
			Short: "Run one conversation turn: quota, analysis, extraction, storage and reply guidance",
			RunE: func(cmd *cobra.Command, args []string) error {
				msg, err := messageArg(cmd, args)
				if err != nil {
					return err
				}
				in.Message = msg
				in.Mode = companion.ParseMode(mode)
				in.Authenticated = !guest
				if in.Identifier == "" {
					in.Identifier = in.UserID
				}

				an, err := a.analyzer(offline)
				if err != nil {
					return err
				}
				var ext companion.MemoryExtraction
				if !offline {
					e, err := a.extractor()
					if err != nil {
						return err
					}
					ext = e
				}

				s, err := a.openStore()
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer s.Close()

				usage, closeUsage, err := a.usage()
				if err != nil {
					return fmt.Errorf("quota: %w", err)
				}
				defer closeUsage()

				o := companion.NewTurnOrchestrator(an, ext,
					companion.WithStore(s),
					companion.WithGriefLog(s),
					companion.WithUsageChecker(usage),
					companion.WithContextLimit(a.cfg.Memory.ContextLimit),
					companion.WithTurnLogger(a.log),
				)
				return printJSON(cmd.OutOrStdout(), o.Prepare(cmd.Context(), in))
			},
		}
		cmd.Flags().StringVarP(&in.UserID, "user-id", "u", "", "User ID (required)")
		cmd.Flags().StringVar(&in.PetID, "pet-id", "", "Pet ID (required)")
		cmd.Flags().StringVarP(&in.PetName, "pet-name", "p", "", "The pet's name")
		cmd.Flags().StringVar(&in.Identifier, "identifier", "", "Quota identifier (default: user ID)")
		cmd.Flags().StringVarP(&mode, "mode", "m", string(companion.DailyMode), "Conversation mode: daily or memorial")
		cmd.Flags().BoolVar(&guest, "guest", false, "Count usage against the anonymous limit")
		cmd.Flags().BoolVar(&offline, "offline", false, "Keyword classification only; no model calls and no extraction")
		cmd.MarkFlagRequired("user-id")
		cmd.MarkFlagRequired("pet-id")
		return cmd
	})
}
