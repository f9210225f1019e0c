package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/shelfsync/internal/shared"
	"github.com/desertthunder/shelfsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive bookmark browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/shelfsync-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	model := ui.NewModel(ctx, s.queue, s.bookmarks)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
