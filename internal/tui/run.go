package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Veraticus/plaid-connect/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrCanceled is returned when the user leaves the form without submitting.
var ErrCanceled = errors.New("credential entry canceled")

// Option customizes the credential prompt.
type Option func(*options)

type options struct {
	input  io.Reader
	output io.Writer
	theme  Theme
}

// WithIO sets the terminal streams, mostly for tests.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(o *options) {
		o.input = in
		o.output = out
	}
}

// WithTheme sets the form theme.
func WithTheme(theme Theme) Option {
	return func(o *options) {
		o.theme = theme
	}
}

// PromptCredentials shows the credential form for inst and blocks until the
// user submits, cancels, or ctx is done.
func PromptCredentials(ctx context.Context, inst model.Institution, opts ...Option) (Credentials, error) {
	o := options{theme: DefaultTheme}
	for _, opt := range opts {
		opt(&o)
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if o.input != nil {
		programOpts = append(programOpts, tea.WithInput(o.input))
	}
	if o.output != nil {
		programOpts = append(programOpts, tea.WithOutput(o.output))
	}

	final, err := tea.NewProgram(NewFormModel(inst, o.theme), programOpts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return Credentials{}, ctx.Err()
		}
		return Credentials{}, fmt.Errorf("credential form failed: %w", err)
	}

	form, ok := final.(FormModel)
	if !ok || !form.Submitted() {
		return Credentials{}, ErrCanceled
	}
	return form.Credentials(), nil
}
