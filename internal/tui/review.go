// Package tui implements the interactive curation screen: it walks the
// review backlog and applies approvals, renames, recategorizations, and
// merges through the curation service.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/feirante/feirante/internal/curation"
	"github.com/feirante/feirante/internal/model"
)

// mode selects which input the review screen is currently capturing.
type mode int

const (
	modeBrowse mode = iota
	modeRename
	modeCategory
)

// pageSize is how many pending products are loaded per fetch.
const pageSize = 50

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7CB342"))
	flagStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	subtleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	selectedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	reviewedCounter = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
)

type itemsLoadedMsg struct {
	err   error
	items []curation.ReviewItem
	total int
}

type actionDoneMsg struct {
	err error
}

// Model is the bubbletea model for the review screen.
type Model struct {
	ctx        context.Context
	curator    *curation.Service
	categories []model.Category

	keys   KeyMap
	help   help.Model
	input  textinput.Model
	mode   mode
	errMsg string

	queue     []curation.ReviewItem
	remaining int
	reviewed  int

	cursor         int
	categoryCursor int

	loading bool
	done    bool
}

// New creates a review model over the given curation service. The category
// slice feeds the recategorize picker.
func New(ctx context.Context, curator *curation.Service, categories []model.Category) Model {
	input := textinput.New()
	input.CharLimit = 120
	input.Width = 50

	return Model{
		ctx:        ctx,
		curator:    curator,
		categories: categories,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		input:      input,
		loading:    true,
	}
}

// Init loads the first page of the review backlog.
func (m Model) Init() tea.Cmd {
	return m.loadItems()
}

func (m Model) loadItems() tea.Cmd {
	return func() tea.Msg {
		items, total, err := m.curator.ListPendingReview(m.ctx, 1, pageSize)
		return itemsLoadedMsg{items: items, total: total, err: err}
	}
}

func (m Model) current() *curation.ReviewItem {
	if len(m.queue) == 0 {
		return nil
	}
	return &m.queue[0]
}

// Update handles input and action results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case itemsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			m.done = true
			return m, tea.Quit
		}
		m.queue = msg.items
		m.remaining = msg.total
		if len(m.queue) == 0 {
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case actionDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.reviewed++
		return m.advance()

	case tea.KeyMsg:
		switch m.mode {
		case modeRename:
			return m.updateRename(msg)
		case modeCategory:
			return m.updateCategory(msg)
		default:
			return m.updateBrowse(msg)
		}
	}

	return m, nil
}

// advance drops the settled head of the queue, reloading when it runs dry.
func (m Model) advance() (tea.Model, tea.Cmd) {
	m.queue = m.queue[1:]
	m.cursor = 0
	if m.remaining > 0 {
		m.remaining--
	}
	if len(m.queue) == 0 {
		if m.remaining == 0 {
			m.done = true
			return m, tea.Quit
		}
		m.loading = true
		return m, m.loadItems()
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item := m.current()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.done = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case item == nil || m.loading:
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(item.Suggestions)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Approve):
		m.loading = true
		return m, m.approve(item.Product.ID, curation.Corrections{})

	case key.Matches(msg, m.keys.Rename):
		m.mode = modeRename
		m.input.SetValue(item.Product.Name)
		m.input.CursorEnd()
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Category):
		m.mode = modeCategory
		m.categoryCursor = 0
		return m, nil

	case key.Matches(msg, m.keys.Merge):
		if len(item.Suggestions) == 0 {
			m.errMsg = "no merge candidates for this product"
			return m, nil
		}
		target := item.Suggestions[m.cursor].Product
		m.loading = true
		return m, m.approve(item.Product.ID, curation.Corrections{MergeIntoProductID: target.ID})

	case key.Matches(msg, m.keys.Skip):
		return m.advance()
	}

	return m, nil
}

func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		item := m.current()
		newName := strings.TrimSpace(m.input.Value())
		m.mode = modeBrowse
		m.input.Blur()
		if item == nil || newName == "" || newName == item.Product.Name {
			return m, nil
		}
		m.loading = true
		return m, m.approve(item.Product.ID, curation.Corrections{NewName: newName})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateCategory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.categoryCursor > 0 {
			m.categoryCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.categoryCursor < len(m.categories)-1 {
			m.categoryCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		item := m.current()
		m.mode = modeBrowse
		if item == nil || len(m.categories) == 0 {
			return m, nil
		}
		category := m.categories[m.categoryCursor]
		m.loading = true
		return m, m.approve(item.Product.ID, curation.Corrections{NewCategoryID: category.ID})
	}

	return m, nil
}

func (m Model) approve(productID string, corrections curation.Corrections) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{err: m.curator.ApproveWithCorrections(m.ctx, productID, corrections)}
	}
}

// View renders the current review item.
func (m Model) View() string {
	if m.done {
		return ""
	}
	if m.loading && len(m.queue) == 0 {
		return "Loading review backlog...\n"
	}

	item := m.current()
	if item == nil {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("🥬 Product review"))
	b.WriteString(subtleStyle.Render(fmt.Sprintf("  %d remaining", m.remaining)))
	if m.reviewed > 0 {
		b.WriteString(reviewedCounter.Render(fmt.Sprintf("  %d reviewed", m.reviewed)))
	}
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %s", selectedStyle.Render(item.Product.Name)))
	b.WriteString(flagStyle.Render(reviewFlags(item.Product)))
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(fmt.Sprintf("  category: %s   store code: %s\n\n",
		m.categoryName(item.Product.CategoryID), orDash(item.Product.StoreCode))))

	switch m.mode {
	case modeRename:
		b.WriteString("  New name: " + m.input.View() + "\n")

	case modeCategory:
		b.WriteString("  Pick a category:\n")
		for i, category := range m.categories {
			marker := "   "
			name := category.Name
			if i == m.categoryCursor {
				marker = " > "
				name = selectedStyle.Render(name)
			}
			b.WriteString(fmt.Sprintf("%s%s\n", marker, name))
		}

	default:
		if len(item.Suggestions) == 0 {
			b.WriteString(subtleStyle.Render("  No similar products.\n"))
		} else {
			b.WriteString("  Similar products:\n")
			for i, suggestion := range item.Suggestions {
				marker := "   "
				line := fmt.Sprintf("%s (%d%%)", suggestion.Product.Name, suggestion.Score)
				if i == m.cursor {
					marker = " > "
					line = selectedStyle.Render(line)
				}
				b.WriteString(fmt.Sprintf("%s%s\n", marker, line))
			}
		}
	}

	if m.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render("  "+m.errMsg) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys) + "\n")

	return b.String()
}

func (m Model) categoryName(id int) string {
	for _, category := range m.categories {
		if category.ID == id {
			return category.Name
		}
	}
	return fmt.Sprintf("#%d", id)
}

func reviewFlags(product model.Product) string {
	flags := ""
	if product.NeedsNameReview {
		flags += "  [name?]"
	}
	if product.NeedsCategoryReview {
		flags += "  [category?]"
	}
	return flags
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
