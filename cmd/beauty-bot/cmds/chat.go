package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/beauty-bot/pkg/conversation"
	"github.com/go-go-golems/beauty-bot/pkg/dialogue"
	"github.com/go-go-golems/beauty-bot/pkg/events"
	"github.com/go-go-golems/beauty-bot/pkg/profile"
	"github.com/go-go-golems/beauty-bot/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the beauty advisor",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := loadProfile()
			if err != nil {
				return errors.Wrap(err, "could not load profile")
			}

			options, err := controllerOptions(p)
			if err != nil {
				return err
			}

			interactive := isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
			if viper.GetBool("line-mode") || !interactive {
				c := dialogue.NewController(p, append(options,
					dialogue.WithRenderer(dialogue.NewWriterRenderer(cmd.OutOrStdout())))...)
				err = runLines(ctx, c, cmd.InOrStdin(), cmd.OutOrStdout(), !interactive)
				return saveTranscript(c.Store(), err)
			}

			c, err := runTUI(ctx, p, options)
			if c == nil {
				return err
			}
			return saveTranscript(c.Store(), err)
		},
	}

	cmd.Flags().String("save", "", "Save the conversation to this file on exit (.json or .yaml)")
	cmd.Flags().String("resume", "", "Resume a conversation saved with --save")
	cmd.Flags().Bool("line-mode", false, "Read questions line by line instead of starting the terminal UI")
	cmd.Flags().String("markdown-style", "auto", "Glamour style for answers (auto, dark, light, notty, or a path; empty disables)")

	return cmd
}

func controllerOptions(p *profile.Profile) ([]dialogue.Option, error) {
	var options []dialogue.Option

	client, err := newChatClient()
	if err != nil {
		return nil, err
	}
	if client != nil {
		options = append(options, dialogue.WithClient(client))
	}

	if path := viper.GetString("resume"); path != "" {
		store, err := conversation.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		if store.SystemPrompt() != p.SystemPrompt {
			log.Warn().Str("file", path).Msg("resumed conversation uses a different system prompt")
		}
		log.Info().
			Str("file", path).
			Str("conversation_id", store.ID().String()).
			Int("turns", store.Len()).
			Msg("resuming conversation")
		options = append(options, dialogue.WithStore(store))
	}

	return options, nil
}

func runTUI(ctx context.Context, p *profile.Profile, options []dialogue.Option) (*dialogue.Controller, error) {
	bus := events.NewBus(events.WithVerbose(viper.GetBool("verbose")))
	defer func() {
		_ = bus.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := bus.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	c := dialogue.NewController(p, append(options, dialogue.WithRenderer(events.NewRenderer(bus)))...)
	c.Start()

	backend := ui.NewBackend(c, ch)
	modelOptions := []ui.ModelOption{ui.WithMarkdownStyle(viper.GetString("markdown-style"))}
	if p.Title != "" {
		modelOptions = append(modelOptions, ui.WithTitle(p.Title))
	}
	model := ui.NewModel(ctx, backend, modelOptions...)

	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}

	// abort a completion still in flight and let its turn settle before the
	// store is read
	cancel()
	backend.Close()

	return c, err
}

// runLines answers one question per input line until EOF.
func runLines(ctx context.Context, c *dialogue.Controller, in io.Reader, out io.Writer, quiet bool) error {
	c.Start()

	scanner := bufio.NewScanner(in)
	for {
		if !quiet {
			_, _ = fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		res, err := c.HandleSubmit(ctx, line)
		if err != nil {
			return err
		}
		log.Debug().
			Str("decision", res.Decision.String()).
			Str("state", res.State.String()).
			Bool("appended", res.Appended).
			Msg("turn handled")
	}

	return scanner.Err()
}

func saveTranscript(store *conversation.Store, runErr error) error {
	path := viper.GetString("save")
	if path == "" {
		return runErr
	}

	if err := store.SaveToFile(path); err != nil {
		log.Error().Err(err).Str("file", path).Msg("could not save conversation")
		if runErr == nil {
			return err
		}
		return runErr
	}
	log.Info().Str("file", path).Int("turns", store.Len()).Msg("saved conversation")
	for _, t := range store.FullHistory() {
		log.Debug().Str("conversation_id", store.ID().String()).Msg(t.View())
	}
	return runErr
}
