// Package tui is a terminal front end for the notes API built on the
// client controller.
package tui

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kuitang/quicknotes/internal/client"
	"github.com/kuitang/quicknotes/internal/notes"
)

const (
	requestTimeout = 15 * time.Second
	previewLines   = 2
)

type mode int

const (
	modeList mode = iota
	modeForm
	modeSearch
	modeConfirm
)

// loadedMsg is sent after the controller reloaded its list.
type loadedMsg struct{}

// submittedMsg is sent after a create or update finished.
type submittedMsg struct{ err error }

// removedMsg is sent after a delete finished.
type removedMsg struct{ err error }

// Model is the bubbletea model for the notes screen.
type Model struct {
	ctrl *client.Controller

	mode    mode
	cursor  int
	width   int
	height  int
	confirm *confirmModal
	// pendingDelete is the note awaiting confirmation.
	pendingDelete string

	title   textinput.Model
	content textarea.Model
	search  textinput.Model
	// contentFocused tracks which form field has focus.
	contentFocused bool
}

// New creates the model around ctrl.
func New(ctrl *client.Controller) Model {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = client.MaxTitleRunes

	content := textarea.New()
	content.Placeholder = "Write markdown..."
	content.ShowLineNumbers = false
	content.SetHeight(8)

	search := textinput.New()
	search.Placeholder = "Search notes"
	search.Prompt = "/ "

	return Model{
		ctrl:    ctrl,
		title:   title,
		content: content,
		search:  search,
	}
}

// Init loads the list.
func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) loadCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		ctrl.Load(ctx)
		return loadedMsg{}
	}
}

func (m Model) submitCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return submittedMsg{err: ctrl.Submit(ctx)}
	}
}

func (m Model) removeCmd(id string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		// The modal already asked.
		return removedMsg{err: ctrl.Remove(ctx, id, func() bool { return true })}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.title.Width = max(msg.Width-8, 10)
		m.content.SetWidth(max(msg.Width-6, 10))
		return m, nil

	case loadedMsg:
		m.clampCursor()
		return m, nil

	case submittedMsg:
		if msg.err == nil {
			m.title.SetValue("")
			m.content.SetValue("")
			m.blurForm()
			m.mode = modeList
			m.clampCursor()
		}
		return m, nil

	case removedMsg:
		m.clampCursor()
		return m, nil

	case confirmResultMsg:
		id := m.pendingDelete
		m.pendingDelete = ""
		m.confirm = nil
		m.mode = modeList
		if msg.confirmed && id != "" {
			return m, m.removeCmd(id)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeForm:
			return m.updateForm(msg)
		case modeSearch:
			return m.updateSearch(msg)
		case modeConfirm:
			if m.confirm != nil {
				return m, m.confirm.Update(msg)
			}
			m.mode = modeList
			return m, nil
		default:
			return m.updateList(msg)
		}
	}

	// Forward everything else (cursor blink etc.) to the focused input.
	var cmd tea.Cmd
	switch {
	case m.mode == modeForm && m.contentFocused:
		m.content, cmd = m.content.Update(msg)
	case m.mode == modeForm:
		m.title, cmd = m.title.Update(msg)
	case m.mode == modeSearch:
		m.search, cmd = m.search.Update(msg)
	}
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.ctrl.Filtered()
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(visible)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "n":
		m.ctrl.CancelEdit()
		m.title.CharLimit = client.MaxTitleRunes
		m.title.SetValue("")
		m.content.SetValue("")
		return m, m.openForm()
	case "e", "enter":
		if n, ok := m.selected(visible); ok {
			m.ctrl.BeginEdit(n)
			st := m.ctrl.State()
			// Stored titles may be longer than the form allows for new input.
			m.title.CharLimit = max(client.MaxTitleRunes, utf8.RuneCountInString(st.FormTitle))
			m.title.SetValue(st.FormTitle)
			m.title.CursorEnd()
			m.content.SetValue(st.FormContent)
			return m, m.openForm()
		}
	case "d", "x":
		if n, ok := m.selected(visible); ok {
			m.pendingDelete = n.ID
			m.confirm = newConfirmModal("Delete this note?", n.Title, min(max(m.width-4, 30), 60))
			m.mode = modeConfirm
		}
	case "/":
		m.mode = modeSearch
		return m, m.search.Focus()
	case "r":
		return m, m.loadCmd()
	case "esc":
		m.ctrl.DismissNotice()
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.ctrl.SetSearch("")
			m.clampCursor()
		}
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.ctrl.CancelEdit()
		m.blurForm()
		m.mode = modeList
		return m, nil
	case "tab", "shift+tab":
		m.contentFocused = !m.contentFocused
		if m.contentFocused {
			m.title.Blur()
			return m, m.content.Focus()
		}
		m.content.Blur()
		return m, m.title.Focus()
	case "ctrl+s":
		if title := m.title.Value(); title != m.ctrl.State().FormTitle {
			m.ctrl.SetTitle(title)
		}
		m.ctrl.SetContent(m.content.Value())
		return m, m.submitCmd()
	}

	var cmd tea.Cmd
	if m.contentFocused {
		m.content, cmd = m.content.Update(msg)
	} else {
		m.title, cmd = m.title.Update(msg)
	}
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		if msg.String() == "esc" {
			m.search.SetValue("")
			m.ctrl.SetSearch("")
		}
		m.search.Blur()
		m.mode = modeList
		m.clampCursor()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.ctrl.SetSearch(m.search.Value())
	m.cursor = 0
	return m, cmd
}

func (m *Model) openForm() tea.Cmd {
	m.mode = modeForm
	m.contentFocused = false
	m.content.Blur()
	return m.title.Focus()
}

func (m *Model) blurForm() {
	m.title.Blur()
	m.content.Blur()
	m.contentFocused = false
}

func (m *Model) clampCursor() {
	n := len(m.ctrl.Filtered())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected(visible []notes.Note) (notes.Note, bool) {
	if m.cursor < 0 || m.cursor >= len(visible) {
		return notes.Note{}, false
	}
	return visible[m.cursor], true
}

// View implements tea.Model.
func (m Model) View() string {
	st := m.ctrl.State()
	var b strings.Builder

	b.WriteString(titleStyle.Render("Quick Notes"))
	if st.Loading {
		b.WriteString(mutedStyle.Render("  loading..."))
	}
	b.WriteString("\n")

	if st.Notice != "" {
		b.WriteString(noticeStyle.Render(st.Notice) + "\n")
	}

	if m.mode == modeConfirm && m.confirm != nil {
		b.WriteString("\n" + m.confirm.View() + "\n")
		return b.String()
	}

	if m.mode == modeForm {
		b.WriteString("\n" + m.formView(st) + "\n")
		return b.String()
	}

	if m.mode == modeSearch || st.SearchQuery != "" {
		b.WriteString(m.search.View() + "\n")
	}
	b.WriteString("\n")

	visible := m.ctrl.Filtered()
	if len(visible) == 0 {
		if len(st.Notes) == 0 {
			b.WriteString(mutedStyle.Render("No notes yet. Press n to write one.") + "\n")
		} else {
			b.WriteString(mutedStyle.Render("No notes match your search.") + "\n")
		}
	}
	for i, n := range visible {
		b.WriteString(m.noteView(n, i == m.cursor))
	}

	b.WriteString("\n" + mutedStyle.Render("n new  e edit  d delete  / search  r reload  q quit") + "\n")
	return b.String()
}

func (m Model) formView(st client.State) string {
	heading := "New note"
	if st.Editing() {
		heading = "Edit note"
	}

	var b strings.Builder
	b.WriteString(subtitleStyle.Render(heading) + "\n\n")
	b.WriteString(m.title.View() + "\n\n")
	b.WriteString(m.content.View() + "\n")
	if st.LastError != "" {
		b.WriteString("\n" + errorStyle.Render(st.LastError) + "\n")
	}
	action := "ctrl+s save"
	if st.Submitting {
		action = "saving..."
	}
	b.WriteString("\n" + mutedStyle.Render(action+"  tab switch field  esc cancel"))
	return formBoxStyle.Render(b.String())
}

func (m Model) noteView(n notes.Note, selected bool) string {
	title := n.Title
	prefix := "  "
	if selected {
		title = selectedStyle.Render(title)
		prefix = selectedStyle.Render(">") + " "
	}
	lines := []string{title + "  " + mutedStyle.Render(n.UpdatedAt.Local().Format("Jan 2 15:04"))}
	if body := notes.ContentPreview(n.Content, previewLines); body != "" {
		lines = append(lines, mutedStyle.Render(indent(body, "  ")))
	}
	return prefix + lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// Run starts the program against the API at apiURL and blocks until quit.
func Run(apiURL string) error {
	ctrl := client.NewController(client.New(apiURL, nil))
	_, err := tea.NewProgram(New(ctrl), tea.WithAltScreen()).Run()
	return err
}
