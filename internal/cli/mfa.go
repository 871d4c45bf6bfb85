package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/plaid-connect/internal/plaid"
	"github.com/samber/lo"
)

// MFAAnswer is the user's response to one challenge, ready to submit.
type MFAAnswer struct {
	Answer  string
	Options []plaid.MFAOption
}

// MFAPrompter asks the user to answer MFA challenges on a terminal.
type MFAPrompter struct {
	reader *NonBlockingReader
	writer io.Writer
}

// NewMFAPrompter creates a prompter reading answers from reader.
func NewMFAPrompter(reader io.Reader, writer io.Writer) *MFAPrompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &MFAPrompter{
		reader: NewNonBlockingReader(reader),
		writer: writer,
	}
}

// Answer renders the challenge and collects a response. Unknown challenge
// types fall back to showing the raw prompt and reading a free-form answer.
func (p *MFAPrompter) Answer(ctx context.Context, challenge *plaid.MFAChallenge) (MFAAnswer, error) {
	if challenge == nil {
		return MFAAnswer{}, fmt.Errorf("no challenge to answer")
	}

	switch challenge.Type {
	case "questions":
		if questions := challenge.Questions(); len(questions) > 0 {
			return p.answerQuestions(ctx, questions)
		}
	case "list":
		if devices := challenge.Devices(); len(devices) > 0 {
			return p.chooseDevice(ctx, devices)
		}
	case "selections":
		if selections := challenge.Selections(); len(selections) > 0 {
			return p.answerSelections(ctx, selections)
		}
	}

	if message := challenge.Message(); message != "" {
		if err := p.show("Verification code", message); err != nil {
			return MFAAnswer{}, err
		}
		code, err := p.readLine(ctx, "Code")
		return MFAAnswer{Answer: code}, err
	}

	if err := p.show("Verification required ("+challenge.Type+")", string(challenge.Prompts)); err != nil {
		return MFAAnswer{}, err
	}
	answer, err := p.readLine(ctx, "Answer")
	return MFAAnswer{Answer: answer}, err
}

func (p *MFAPrompter) answerQuestions(ctx context.Context, questions []string) (MFAAnswer, error) {
	if err := p.show("Security question", strings.Join(questions, "\n")); err != nil {
		return MFAAnswer{}, err
	}
	answer, err := p.readLine(ctx, "Answer")
	return MFAAnswer{Answer: answer}, err
}

func (p *MFAPrompter) chooseDevice(ctx context.Context, devices []plaid.MFADevice) (MFAAnswer, error) {
	lines := lo.Map(devices, func(d plaid.MFADevice, i int) string {
		return fmt.Sprintf("  [%d] %s %s", i+1, d.Type, SubtleStyle.Render(d.Mask))
	})
	if err := p.show("Where should the code be sent?", strings.Join(lines, "\n")); err != nil {
		return MFAAnswer{}, err
	}

	choice, err := p.promptChoice(ctx, "Device", len(devices))
	if err != nil {
		return MFAAnswer{}, err
	}

	return MFAAnswer{
		Options: []plaid.MFAOption{plaid.WithSendMethod("type", devices[choice].Type)},
	}, nil
}

// answerSelections asks every multiple choice question and submits the
// answers as a JSON array in question order.
func (p *MFAPrompter) answerSelections(ctx context.Context, selections []plaid.MFASelection) (MFAAnswer, error) {
	answers := make([]string, 0, len(selections))
	for _, selection := range selections {
		lines := lo.Map(selection.Answers, func(a string, i int) string {
			return fmt.Sprintf("  [%d] %s", i+1, a)
		})
		if err := p.show(selection.Question, strings.Join(lines, "\n")); err != nil {
			return MFAAnswer{}, err
		}

		choice, err := p.promptChoice(ctx, "Choice", len(selection.Answers))
		if err != nil {
			return MFAAnswer{}, err
		}
		answers = append(answers, selection.Answers[choice])
	}

	encoded, err := json.Marshal(answers)
	if err != nil {
		return MFAAnswer{}, fmt.Errorf("failed to encode selections: %w", err)
	}
	return MFAAnswer{Answer: string(encoded)}, nil
}

func (p *MFAPrompter) show(title, content string) error {
	if _, err := fmt.Fprintln(p.writer, RenderBox(LockIcon+" "+title, content)); err != nil {
		return fmt.Errorf("failed to write challenge: %w", err)
	}
	return nil
}

func (p *MFAPrompter) readLine(ctx context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	line, err := p.reader.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("input terminated")
		}
		return "", err
	}
	return line, nil
}

// promptChoice reads a 1-based choice until it is within range and returns it 0-based.
func (p *MFAPrompter) promptChoice(ctx context.Context, prompt string, count int) (int, error) {
	if count == 0 {
		return 0, fmt.Errorf("no options to choose from")
	}

	for {
		input, err := p.readLine(ctx, prompt)
		if err != nil {
			return 0, err
		}

		choice, convErr := strconv.Atoi(input)
		if convErr == nil && choice >= 1 && choice <= count {
			return choice - 1, nil
		}

		if _, err := fmt.Fprintln(p.writer, FormatError(fmt.Sprintf("Enter a number from 1 to %d.", count))); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}
