package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned by Run when the user quits before the build finishes.
var ErrInterrupted = errors.New("interrupted")

// StartFunc runs the wait, reporting progress through send. Its return value
// becomes the DoneMsg that ends the program.
type StartFunc func(ctx context.Context, send func(tea.Msg)) error

// Run shows model until start returns, the user quits or ctx is done.
// It returns start's error, ErrInterrupted, or ctx's error.
func Run(ctx context.Context, model BuildModel, start StartFunc, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(model, opts...)

	go func() {
		err := start(ctx, p.Send)
		p.Send(DoneMsg{Err: err})
	}()
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	m, ok := final.(BuildModel)
	if !ok {
		return fmt.Errorf("unexpected TUI model %T", final)
	}
	switch {
	case m.Done():
		return m.Err()
	case m.Interrupted():
		return ErrInterrupted
	default:
		return ctx.Err()
	}
}
