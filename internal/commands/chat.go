package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/diogo/chatclient/internal/history"
	"github.com/diogo/chatclient/internal/render"
	"github.com/diogo/chatclient/internal/tui"
)

// chatFlags are the local flags of the chat command
type chatFlags struct {
	plain  bool
	export string
}

// NewChatCmd creates the interactive chat command
func NewChatCmd(deps *Dependencies, global *globalFlags) *cobra.Command {
	flags := &chatFlags{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session.

The conversation is kept in memory and sent with every message.
Press Ctrl+S or type /stream to switch between whole and streamed replies.
Type 'exit', 'quit', or press Esc to end the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, deps, global)
			if err != nil {
				return err
			}
			defer env.close()

			return runChat(cmd, env, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.plain, "plain", false, "Line-mode chat without the full screen interface")
	cmd.Flags().StringVar(&flags.export, "export", "", "Write the transcript to this file (.md or .json) on exit")

	return cmd
}

func runChat(cmd *cobra.Command, env *runEnv, flags *chatFlags) error {
	deps := env.deps
	store := history.NewStore()

	var runErr error
	if flags.plain {
		runErr = runREPL(commandContext(cmd), env, store)
	} else {
		if !tui.ApplyTheme(env.cfg.TUITheme) {
			fmt.Fprintf(deps.Stderr, "Warning: unknown theme %q, using %s\n", env.cfg.TUITheme, render.DefaultTUITheme)
		}

		runErr = deps.TUI.RunChat(env.client,
			tui.WithStore(store),
			tui.WithStreaming(env.cfg.Stream),
			tui.WithRenderOptions(render.LoadOptions(env.cfg)),
			tui.WithLogger(env.logger.Logger),
			tui.WithAutoCopy(env.cfg.CopyToClipboard),
			tui.WithClipboard(deps.Clipboard),
		)
	}

	if err := exportTranscript(deps, store, flags.export); err != nil {
		return err
	}
	return runErr
}

// exportTranscript writes the conversation to path when one was requested
func exportTranscript(deps *Dependencies, store *history.Store, path string) error {
	if path == "" || store.Len() == 0 {
		return nil
	}
	if err := store.WriteExport(path); err != nil {
		return err
	}
	msg := lipgloss.NewStyle().Foreground(colorSuccess).Render(
		fmt.Sprintf("✓ Transcript saved to %s", path),
	)
	fmt.Fprintln(deps.Stderr, msg)
	return nil
}
