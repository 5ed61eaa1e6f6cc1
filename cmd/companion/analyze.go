package main

import (
	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/pet-companion/companion"
)

func init() {
	register(func(a *app) *cobra.Command {
		var (
			mode    string
			offline bool
		)
		cmd := &cobra.Command{
			Use:   "analyze [message...]",
			Short: "Classify the emotion (and grief stage in memorial mode) of a message",
			RunE: func(cmd *cobra.Command, args []string) error {
				msg, err := messageArg(cmd, args)
				if err != nil {
					return err
				}
				an, err := a.analyzer(offline)
				if err != nil {
					return err
				}
				res := an.Analyze(cmd.Context(), msg, companion.ParseMode(mode) == companion.MemorialMode)
				return printJSON(cmd.OutOrStdout(), res)
			},
		}
		cmd.Flags().StringVarP(&mode, "mode", "m", string(companion.DailyMode), "Conversation mode: daily or memorial")
		cmd.Flags().BoolVar(&offline, "offline", false, "Keyword classification only; never call the model")
		return cmd
	})
}
