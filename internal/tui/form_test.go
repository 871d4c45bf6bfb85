package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Veraticus/plaid-connect/internal/model"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	withPIN = model.Institution{
		ID:          "usaa",
		Name:        "USAA",
		Type:        "usaa",
		Credentials: model.CredentialFields{Username: "Online ID", Password: "Password", PIN: "PIN"},
	}
	withoutPIN = model.Institution{
		ID:          "chase",
		Name:        "Chase",
		Type:        "chase",
		Credentials: model.CredentialFields{Username: "User ID", Password: "Password"},
	}
)

func typeText(t *testing.T, m FormModel, s string) FormModel {
	t.Helper()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return updated.(FormModel)
}

func press(t *testing.T, m FormModel, k tea.KeyType) (FormModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(tea.KeyMsg{Type: k})
	return updated.(FormModel), cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestNewFormModel_Fields(t *testing.T) {
	tests := []struct {
		inst       model.Institution
		name       string
		wantLabels []string
	}{
		{name: "pin required", inst: withPIN, wantLabels: []string{"Online ID", "Password", "PIN"}},
		{name: "no pin", inst: withoutPIN, wantLabels: []string{"User ID", "Password"}},
		{name: "labels default", inst: model.Institution{Name: "Mystery Bank"}, wantLabels: []string{"Username", "Password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFormModel(tt.inst, DefaultTheme)
			assert.Equal(t, tt.wantLabels, m.labels)
			assert.Equal(t, 0, m.focus)
			assert.True(t, m.inputs[0].Focused())
		})
	}
}

func TestFormModel_FillAndSubmit(t *testing.T) {
	m := NewFormModel(withPIN, DefaultTheme)

	m = typeText(t, m, "plaid_test")
	m, cmd := press(t, m, tea.KeyEnter)
	assert.False(t, isQuit(cmd), "enter on a middle field moves on")
	assert.Equal(t, 1, m.focus)

	m = typeText(t, m, "plaid_good")
	m, _ = press(t, m, tea.KeyTab)
	m = typeText(t, m, "1234")

	m, cmd = press(t, m, tea.KeyEnter)
	require.True(t, isQuit(cmd))
	assert.True(t, m.Submitted())
	assert.Equal(t, Credentials{Username: "plaid_test", Password: "plaid_good", PIN: "1234"}, m.Credentials())
}

func TestFormModel_NoPINLeavesItEmpty(t *testing.T) {
	m := NewFormModel(withoutPIN, DefaultTheme)
	m = typeText(t, m, "user")
	m, _ = press(t, m, tea.KeyTab)
	m = typeText(t, m, "pass")

	m, cmd := press(t, m, tea.KeyEnter)
	require.True(t, isQuit(cmd))
	assert.Equal(t, Credentials{Username: "user", Password: "pass"}, m.Credentials())
}

func TestFormModel_FocusWraps(t *testing.T) {
	m := NewFormModel(withoutPIN, DefaultTheme)

	m, _ = press(t, m, tea.KeyShiftTab)
	assert.Equal(t, 1, m.focus)

	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, 0, m.focus)
	assert.True(t, m.inputs[0].Focused())
	assert.False(t, m.inputs[1].Focused())
}

func TestFormModel_MissingFieldBlocksSubmit(t *testing.T) {
	m := NewFormModel(withoutPIN, DefaultTheme)
	m, _ = press(t, m, tea.KeyTab)
	m = typeText(t, m, "pass")

	m, cmd := press(t, m, tea.KeyEnter)
	assert.False(t, isQuit(cmd))
	assert.False(t, m.Submitted())
	assert.Equal(t, 0, m.focus)
	assert.Contains(t, m.View(), "User ID is required")
}

func TestFormModel_Cancel(t *testing.T) {
	m := NewFormModel(withPIN, DefaultTheme)
	m, cmd := press(t, m, tea.KeyEsc)
	assert.True(t, isQuit(cmd))
	assert.True(t, m.Canceled())
	assert.False(t, m.Submitted())
}

func TestFormModel_ViewMasksSecrets(t *testing.T) {
	m := NewFormModel(withPIN, DefaultTheme)
	m = typeText(t, m, "visible")
	m, _ = press(t, m, tea.KeyTab)
	m = typeText(t, m, "hunter2")

	view := m.View()
	assert.Contains(t, view, "Link USAA")
	assert.Contains(t, view, "visible")
	assert.NotContains(t, view, "hunter2")
}

func TestPromptCredentials_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := PromptCredentials(ctx, withoutPIN, WithIO(strings.NewReader(""), &bytes.Buffer{}))
	assert.Error(t, err)
}
