package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tarmac/internal/gate"
)

// SecretPrompter implements gate.Prompter by handing each challenge to the
// running program and waiting for the operator's answer. The gate calls it
// from a command goroutine, never from Update.
type SecretPrompter struct {
	requests chan promptRequest
}

type promptRequest struct {
	challenge gate.Challenge
	reply     chan<- promptReply
}

type promptReply struct {
	value string
	ok    bool
}

type promptRequestMsg promptRequest

// NewSecretPrompter returns a prompter with no pending requests.
func NewSecretPrompter() *SecretPrompter {
	return &SecretPrompter{requests: make(chan promptRequest)}
}

// PromptSecret implements gate.Prompter.
func (p *SecretPrompter) PromptSecret(ctx context.Context, c gate.Challenge) (string, bool, error) {
	reply := make(chan promptReply, 1)
	select {
	case p.requests <- promptRequest{challenge: c, reply: reply}:
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.value, r.ok, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// wait returns a command that delivers the next prompt request.
func (p *SecretPrompter) wait(ctx context.Context) tea.Cmd {
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case req := <-p.requests:
			return promptRequestMsg(req)
		case <-ctx.Done():
			return nil
		}
	}
}

// secretModal asks for the shared secret with masked input.
type secretModal struct {
	input textinput.Model
	req   promptRequest
}

func newSecretModal(req promptRequest) *secretModal {
	ti := textinput.New()
	ti.Placeholder = "shared secret"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 128
	ti.Width = 30
	ti.Focus()
	return &secretModal{input: ti, req: req}
}

func (s *secretModal) answer(value string, ok bool) {
	s.req.reply <- promptReply{value: value, ok: ok}
}

// Update implements Modal.
func (s *secretModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil, false
	}
	switch {
	case key.Matches(keyMsg, keys.Escape), keyMsg.String() == "ctrl+c":
		s.answer("", false)
		return s, nil, true
	case key.Matches(keyMsg, keys.Confirm):
		s.answer(s.input.Value(), true)
		return s, nil, true
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(keyMsg)
	return s, cmd, false
}

// View implements Modal.
func (s *secretModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.MutedText.Render("Changes to flights require the shared secret."))
	b.WriteString("\n\n")
	if s.req.challenge.Rejected {
		b.WriteString(styles.DangerText.Render(fmt.Sprintf("Incorrect secret (attempt %d)", s.req.challenge.Attempt-1)))
		b.WriteString("\n\n")
	}
	b.WriteString(styles.AccentText.Render("Secret: "))
	b.WriteString(s.input.View())
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("Enter: Unlock  •  Esc: Cancel"))
	return renderModal(theme, width, height, 54, "Authentication required", b.String())
}
