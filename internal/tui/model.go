package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bookworm/internal/domain"
)

// Model is the Bubble Tea model that lists bookmarks and lets the user pick one by index.
type Model struct {
	bookmarks   []domain.Bookmark
	input       textinput.Model
	viewport    viewport.Model
	status      string
	warning     bool
	cursor      int
	ready       bool
	showSources bool
	chosen      *domain.Bookmark
}

// New creates a picker over bookmarks. showSources adds each bookmark's source line.
func New(bookmarks []domain.Bookmark, showSources bool) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Press a number to open the bookmark"
	ti.Focus()
	ti.CharLimit = 6
	vp := viewport.New(0, 0)
	return Model{
		bookmarks:   bookmarks,
		input:       ti,
		viewport:    vp,
		showSources: showSources,
		status:      "Type an index and press Enter, or use up/down. Esc quits.",
	}
}

// Chosen returns the selected bookmark, or nil when the user quit without picking.
func (m Model) Chosen() *domain.Bookmark { return m.chosen }

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, lh := listBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-lh)
		m.viewport.SetContent(m.renderList())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			raw := strings.TrimSpace(m.input.Value())
			if raw == "" {
				if len(m.bookmarks) == 0 {
					return m, tea.Quit
				}
				return m.choose(m.cursor)
			}
			idx, err := strconv.Atoi(raw)
			if err != nil {
				m.warn(fmt.Sprintf("Invalid input: '%s'. Please enter a number.", raw))
				return m, nil
			}
			if idx < 0 || idx >= len(m.bookmarks) {
				m.warn(fmt.Sprintf("Invalid index: '%d'. Please select a valid index.", idx))
				return m, nil
			}
			return m.choose(idx)
		case "down":
			if len(m.bookmarks) > 0 {
				m.cursor = (m.cursor + 1) % len(m.bookmarks)
				m.viewport.SetContent(m.renderList())
				return m, nil
			}
		case "up":
			if len(m.bookmarks) > 0 {
				m.cursor = (m.cursor - 1 + len(m.bookmarks)) % len(m.bookmarks)
				m.viewport.SetContent(m.renderList())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) warn(status string) {
	m.status = status
	m.warning = true
	m.input.SetValue("")
}

func (m Model) choose(idx int) (tea.Model, tea.Cmd) {
	b := m.bookmarks[idx]
	m.chosen = &b
	m.cursor = idx
	m.warning = false
	m.status = fmt.Sprintf("Opening %s", b.URL)
	return m, tea.Quit
}

// View renders the list, the index prompt and the status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Bookworm results")
	input := queryBoxStyle.Render(m.input.View())
	statusStyle := okStyle
	if m.warning {
		statusStyle = warnStyle
	}
	list := listBoxStyle.Render(m.viewport.View())
	return header + "\n" + list + "\n" + input + "\n" + statusStyle.Render(m.status)
}

func (m Model) renderList() string {
	if len(m.bookmarks) == 0 {
		return "No bookmarks found."
	}
	var b strings.Builder
	for i, bm := range m.bookmarks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatBookmark(i, bm, m.showSources, i == m.cursor))
	}
	return b.String()
}

// FormatBookmark renders one numbered result line.
func FormatBookmark(idx int, bm domain.Bookmark, showSource, selected bool) string {
	line := fmt.Sprintf("%s %s - %s", indexStyle.Render(fmt.Sprintf("[%d]", idx)), bm.Title, urlStyle.Render(bm.URL))
	if showSource && bm.Source != "" {
		line += " " + sourceStyle.Render("("+bm.Source+")")
	}
	if selected {
		line = selectedStyle.Render(line)
	}
	return line
}

var (
	listBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	indexStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	urlStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true)
	sourceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle = lipgloss.NewStyle().Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)
