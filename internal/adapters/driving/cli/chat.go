package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/kacey/internal/adapters/driving/tui"
)

var chatScope string

// isTerminal reports whether stdin is interactive.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Opens a terminal chat over the knowledge base.

Answers stream as they are generated and cite their sources.

Controls:
  Enter    - Send question
  Ctrl+N   - New conversation
  Ctrl+O   - Browse past conversations
  Ctrl+S   - Show or hide sources
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatScope, "scope", "", "only use artifacts in this scope")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) (err error) {
	if !isTerminal() {
		return errors.New("chat needs an interactive terminal; use 'kacey ask' instead")
	}

	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("chat crashed: %v", r)
		}
	}()

	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{Chat: svc.Chat}, chatScope)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	if err := app.WithContext(commandContext(cmd)).Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}
