package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// field describes one input in a form
type field struct {
	label       string
	placeholder string
	required    bool
	value       string
}

// form is a vertical stack of labelled text inputs. Tab and shift+tab move
// between inputs.
type form struct {
	title  string
	labels []string
	req    []bool
	inputs []textinput.Model
	focus  int
}

func newForm(title string, fields ...field) form {
	f := form{title: title}
	for i, fd := range fields {
		ti := textinput.New()
		ti.Placeholder = fd.placeholder
		ti.CharLimit = 200
		ti.Width = 40
		ti.Prompt = ""
		ti.SetValue(fd.value)
		if i == 0 {
			ti.Focus()
		}
		f.labels = append(f.labels, fd.label)
		f.req = append(f.req, fd.required)
		f.inputs = append(f.inputs, ti)
	}
	return f
}

func (f form) Update(msg tea.Msg) (form, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyTab, tea.KeyDown:
			return f.move(1), textinput.Blink
		case tea.KeyShiftTab, tea.KeyUp:
			return f.move(-1), textinput.Blink
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f form) move(delta int) form {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
	return f
}

// onLast reports whether the last input has focus
func (f form) onLast() bool {
	return f.focus == len(f.inputs)-1
}

func (f form) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

// float parses input i, treating an empty input as zero
func (f form) float(i int) (float64, error) {
	v := f.value(i)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", f.labels[i], v)
	}
	return n, nil
}

// yes parses a y/n answer
func (f form) yes(i int) bool {
	switch strings.ToLower(f.value(i)) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}

// missing returns the label of the first empty required input
func (f form) missing() string {
	for i, req := range f.req {
		if req && f.value(i) == "" {
			return f.labels[i]
		}
	}
	return ""
}

func (f form) View() string {
	width := 0
	for _, l := range f.labels {
		if len(l) > width {
			width = len(l)
		}
	}
	label := labelStyle.Width(width + 3)

	var rows []string
	rows = append(rows, boxHeaderStyle.Render(f.title))
	for i, in := range f.inputs {
		name := f.labels[i]
		if f.req[i] {
			name += " *"
		}
		marker := "  "
		if i == f.focus {
			marker = activeMarkerStyle.Render("▸ ")
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, marker, label.Render(name), in.View()))
	}
	return sectionBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
