package cmds

import (
	"strings"

	"github.com/go-go-golems/beauty-bot/pkg/dialogue"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewAskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask one question, or one per line on stdin when no question is given",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile()
			if err != nil {
				return errors.Wrap(err, "could not load profile")
			}

			options, err := controllerOptions(p)
			if err != nil {
				return err
			}
			c := dialogue.NewController(p, append(options,
				dialogue.WithRenderer(dialogue.NewWriterRenderer(cmd.OutOrStdout())))...)

			if len(args) == 0 {
				err = runLines(cmd.Context(), c, cmd.InOrStdin(), cmd.OutOrStdout(), true)
				return saveTranscript(c.Store(), err)
			}

			res, err := c.HandleSubmit(cmd.Context(), strings.Join(args, " "))
			if err == nil && res.Err != nil {
				err = res.Err
			}
			return saveTranscript(c.Store(), err)
		},
	}

	cmd.Flags().String("save", "", "Save the conversation to this file (.json or .yaml)")
	cmd.Flags().String("resume", "", "Continue a conversation saved with --save")

	return cmd
}
