package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// field is one row of a modal form: either free text or a fixed set of
// choices cycled with the arrow keys.
type field struct {
	key   string
	label string
	input textinput.Model

	choices []string // values; nil for text fields
	labels  []string // display labels, parallel to choices
	choice  int
}

func textField(key, label, placeholder string, limit int) *field {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 28
	ti.Prompt = ""
	return &field{key: key, label: label, input: ti}
}

func choiceField(key, label string, choices, labels []string) *field {
	if labels == nil {
		labels = choices
	}
	return &field{key: key, label: label, choices: choices, labels: labels}
}

func (f *field) isChoice() bool {
	return f.choices != nil
}

func (f *field) value() string {
	if f.isChoice() {
		if len(f.choices) == 0 {
			return ""
		}
		return f.choices[f.choice]
	}
	return f.input.Value()
}

func (f *field) setValue(v string) {
	if !f.isChoice() {
		f.input.SetValue(v)
		f.input.CursorEnd()
		return
	}
	for i, c := range f.choices {
		if strings.EqualFold(c, v) {
			f.choice = i
			return
		}
	}
	f.choice = 0
}

func (f *field) cycle(step int) {
	n := len(f.choices)
	if n == 0 {
		return
	}
	f.choice = ((f.choice+step)%n + n) % n
}

func (f *field) display() string {
	if f.isChoice() {
		if len(f.labels) == 0 {
			return ""
		}
		return "‹ " + f.labels[f.choice] + " ›"
	}
	return f.input.View()
}

// fieldSet handles focus movement and key routing for a list of fields.
type fieldSet struct {
	fields []*field
	focus  int
}

func newFieldSet(fields ...*field) fieldSet {
	fs := fieldSet{fields: fields}
	fs.setFocus(0)
	return fs
}

func (fs *fieldSet) focused() *field {
	return fs.fields[fs.focus]
}

func (fs *fieldSet) byKey(k string) *field {
	for _, f := range fs.fields {
		if f.key == k {
			return f
		}
	}
	return nil
}

func (fs *fieldSet) setFocus(idx int) {
	n := len(fs.fields)
	fs.focus = ((idx % n) + n) % n
	for i, f := range fs.fields {
		if f.isChoice() {
			continue
		}
		if i == fs.focus {
			f.input.Focus()
		} else {
			f.input.Blur()
		}
	}
}

// handleKey routes navigation and editing keys. It reports whether the
// focused choice changed so callers can react.
func (fs *fieldSet) handleKey(msg tea.KeyMsg, keys keyMap) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.NextField):
		fs.setFocus(fs.focus + 1)
		return nil, false
	case key.Matches(msg, keys.PrevField):
		fs.setFocus(fs.focus - 1)
		return nil, false
	}

	f := fs.focused()
	if f.isChoice() {
		switch {
		case key.Matches(msg, keys.CycleForward):
			f.cycle(1)
			return nil, true
		case key.Matches(msg, keys.CycleBack):
			f.cycle(-1)
			return nil, true
		}
		return nil, false
	}

	if key.Matches(msg, keys.ClearField) {
		f.input.SetValue("")
		return nil, false
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return cmd, false
}

// render draws every field with its label and an optional error line.
func (fs *fieldSet) render(styles Styles, labelWidth int, errFor func(key string) string) string {
	var b strings.Builder
	for i, f := range fs.fields {
		label := padRight(f.label+":", labelWidth)
		if i == fs.focus {
			b.WriteString(styles.AccentText.Render(label))
		} else {
			b.WriteString(styles.MutedText.Render(label))
		}
		b.WriteString(styles.Text.Render(f.display()))
		b.WriteString("\n")
		if errFor != nil {
			if msg := errFor(f.key); msg != "" {
				b.WriteString(strings.Repeat(" ", labelWidth))
				b.WriteString(styles.DangerText.Render(msg))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}
