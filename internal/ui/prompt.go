package ui

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/fcmirror/internal/mirror"
)

// Prompt asks the user for a destination directory on a terminal.
type Prompt struct {
	In      io.Reader
	Out     io.Writer
	NoColor bool
}

// AskDestination shows an editable path, prefilled with suggested.
// Escape, Ctrl+C and an empty answer cancel with mirror.ErrCancelled.
func (p Prompt) AskDestination(ctx context.Context, suggested string) (string, error) {
	m := newPromptModel(suggested, GetStyles(p.NoColor || DetectNoColor()))

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.In != nil {
		opts = append(opts, tea.WithInput(p.In))
	}
	if p.Out != nil {
		opts = append(opts, tea.WithOutput(p.Out))
	}

	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return final.(*promptModel).result()
}

type promptModel struct {
	input     textinput.Model
	styles    Styles
	submitted bool
	cancelled bool
}

func newPromptModel(suggested string, styles Styles) *promptModel {
	ti := textinput.New()
	ti.Placeholder = "path/to/mirror"
	ti.SetValue(suggested)
	ti.CursorEnd()
	ti.Width = 60
	ti.Focus()
	return &promptModel{input: ti, styles: styles}
}

func (m *promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.submitted = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *promptModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render("Download into which directory?"),
		m.input.View(),
		m.styles.Dim.Render("enter to confirm • esc to cancel"),
	) + "\n"
}

func (m *promptModel) result() (string, error) {
	if m.cancelled || !m.submitted {
		return "", mirror.ErrCancelled
	}
	path := strings.TrimSpace(m.input.Value())
	if path == "" {
		return "", mirror.ErrCancelled
	}
	return path, nil
}
