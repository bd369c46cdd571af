package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MarcoPoloResearchLab/homestock/internal/inventory"
	"github.com/MarcoPoloResearchLab/homestock/internal/view"
)

// Modes the app can be in. Browse is the default; the others are transient
// overlays that capture keyboard input.
const (
	modeBrowse = iota
	modeSearch
	modePasscode
	modeForm
	modeConfirmDelete
)

const toastDuration = 3 * time.Second

// FrameMsg delivers a fresh frame from the controller. Every frame fully
// replaces the list; the selection is re-clamped, not preserved, when a
// remote update shrinks it.
type FrameMsg struct {
	Frame view.Frame
}

// NotifyMsg delivers a user-facing message from the controller.
type NotifyMsg struct {
	Text string
}

type clearToastMsg struct{}

// App is the root TUI model. All state changes flow through the controller;
// the model only holds the latest frame plus input-capture state.
type App struct {
	controller *view.Controller
	categories []string

	frame     view.Frame
	haveFrame bool

	mode      int
	cursor    int
	locCursor int

	searchInput    string
	passcodeInput  string
	categoryCursor int // 0 = all, 1..n = categories
	sortCursor     int

	form      itemForm
	confirmID string

	toast  string
	width  int
	height int
}

// NewApp constructs the root model.
func NewApp(controller *view.Controller, categories []string) *App {
	return &App{
		controller: controller,
		categories: categories,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil
	case FrameMsg:
		a.frame = msg.Frame
		a.haveFrame = true
		a.clampCursor()
		return a, nil
	case NotifyMsg:
		a.toast = msg.Text
		return a, tea.Tick(toastDuration, func(time.Time) tea.Msg { return clearToastMsg{} })
	case clearToastMsg:
		a.toast = ""
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.mode {
	case modeSearch:
		return a.handleSearchKey(msg)
	case modePasscode:
		return a.handlePasscodeKey(msg)
	case modeForm:
		return a.handleFormKey(msg)
	case modeConfirmDelete:
		return a.handleConfirmKey(msg)
	default:
		return a.handleBrowseKey(msg)
	}
}

func (a *App) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.frame.Cards)-1 {
			a.cursor++
		}
	case "left", "h":
		if a.locCursor > 0 {
			a.locCursor--
		}
	case "right", "l":
		if a.locCursor < len(inventory.AllLocations())-1 {
			a.locCursor++
		}
	case "+", "=":
		a.adjustSelected(1)
	case "-", "_":
		a.adjustSelected(-1)
	case "/":
		a.mode = modeSearch
	case "c":
		a.cycleCategory()
	case "o":
		a.cycleSort()
	case "a":
		if a.frame.Admin {
			a.controller.ExitAdminMode()
		} else {
			a.passcodeInput = ""
			a.mode = modePasscode
		}
	case "n":
		if a.frame.Admin {
			a.controller.BeginAdd()
			a.form = newItemForm(a.categories, "", nil)
			a.mode = modeForm
		}
	case "e":
		if card, ok := a.selectedCard(); ok && a.frame.Admin {
			a.controller.BeginEdit(card.ID)
			a.form = newItemForm(a.categories, card.ID, &card)
			a.mode = modeForm
		}
	case "d":
		if card, ok := a.selectedCard(); ok && a.frame.Admin {
			a.confirmID = card.ID
			a.mode = modeConfirmDelete
		}
	}
	return a, nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		a.mode = modeBrowse
	case "backspace":
		if len(a.searchInput) > 0 {
			a.searchInput = trimLastRune(a.searchInput)
			a.controller.SetSearch(a.searchInput)
		}
	default:
		if text := printableInput(msg); text != "" {
			a.searchInput += text
			a.controller.SetSearch(a.searchInput)
		}
	}
	return a, nil
}

func (a *App) handlePasscodeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeBrowse
	case "enter":
		a.mode = modeBrowse
		// The controller reports a wrong passcode through the notify sink;
		// the next frame carries the unlocked controls when it matched.
		a.controller.EnterAdminMode(a.passcodeInput)
		a.passcodeInput = ""
	case "backspace":
		a.passcodeInput = trimLastRune(a.passcodeInput)
	default:
		if text := printableInput(msg); text != "" {
			a.passcodeInput += text
		}
	}
	return a, nil
}

func (a *App) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		a.controller.DeleteItem(a.confirmID)
		a.confirmID = ""
		a.mode = modeBrowse
	case "n", "N", "esc":
		a.confirmID = ""
		a.mode = modeBrowse
	}
	return a, nil
}

func (a *App) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.controller.EndEdit()
		a.mode = modeBrowse
	case "enter":
		if a.form.atLastField() {
			a.controller.SaveItem(a.form.draft())
			a.mode = modeBrowse
		} else {
			a.form.next()
		}
	case "tab", "down":
		a.form.next()
	case "shift+tab", "up":
		a.form.prev()
	case "left":
		a.form.cycleCategory(-1)
	case "right":
		a.form.cycleCategory(1)
	case "backspace":
		a.form.backspace()
	default:
		if text := printableInput(msg); text != "" {
			a.form.input(text)
		}
	}
	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	var sections []string
	sections = append(sections, a.headerView())

	switch a.mode {
	case modePasscode:
		sections = append(sections, promptStyle.Render(
			"Enter admin passcode:\n\n"+strings.Repeat("•", len(a.passcodeInput))+"▌"))
	case modeConfirmDelete:
		sections = append(sections, promptStyle.Render(
			"Are you sure you want to delete this item? (y/n)"))
	case modeForm:
		sections = append(sections, a.form.view())
	default:
		sections = append(sections, a.listView())
	}

	if a.toast != "" {
		sections = append(sections, toastStyle.Render(a.toast))
	}
	sections = append(sections, helpStyle.Render(a.helpView()))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a *App) headerView() string {
	title := titleStyle.Render("Homestock")
	if a.frame.Admin {
		title = lipgloss.JoinHorizontal(lipgloss.Top, title, " ", adminBadgeStyle.Render("ADMIN"))
	}

	category := "all"
	if a.categoryCursor > 0 {
		category = a.categories[a.categoryCursor-1]
	}
	filters := filterBarStyle.Render(fmt.Sprintf(
		"search: %q  category: %s  sort: %s",
		a.searchInput, category, view.SortModes()[a.sortCursor]))

	return lipgloss.JoinVertical(lipgloss.Left, title, filters)
}

func (a *App) listView() string {
	if !a.haveFrame {
		return emptyStateStyle.Render("Connecting…")
	}
	if a.frame.Empty {
		text := "No items found."
		if a.frame.AddHint {
			text += " Press 'n' to add one."
		}
		return emptyStateStyle.Render(text)
	}

	cards := make([]string, 0, len(a.frame.Cards))
	for index, card := range a.frame.Cards {
		cards = append(cards, a.cardView(card, index == a.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func (a *App) cardView(card view.Card, selected bool) string {
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		cardNameStyle.Render(card.Name), "  ",
		cardCategoryStyle.Render(card.Category))

	locations := make([]string, 0, len(card.Rows))
	for index, row := range card.Rows {
		control := fmt.Sprintf("- %d +", row.Quantity)
		if !row.CanIncrement && !row.CanDecrement {
			control = disabledControlStyle.Render(fmt.Sprintf("  %d  ", row.Quantity))
		} else if !row.CanDecrement {
			control = disabledControlStyle.Render("-") + fmt.Sprintf(" %d +", row.Quantity)
		}
		line := fmt.Sprintf("%-10s %s", row.Location, control)
		if selected && index == a.locCursor {
			line = selectedLocationStyle.Render(line)
		}
		locations = append(locations, line)
	}

	lines := []string{
		header,
		fmt.Sprintf("Total: %d", card.Total),
		strings.Join(locations, "\n"),
	}
	if card.HasNote {
		lines = append(lines, noteStyle.Render("Note: "+card.Note))
	}
	footer := "Last edited: " + card.LastEdited
	if card.ShowActions {
		footer += "   [e]dit [d]elete"
	}
	lines = append(lines, filterBarStyle.Render(footer))

	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (a *App) helpView() string {
	if a.frame.Admin {
		return "↑/↓ item  ←/→ location  +/- adjust  / search  c category  o sort  n new  e edit  d delete  a exit admin  q quit"
	}
	return "↑/↓ item  / search  c category  o sort  a admin  q quit"
}

func (a *App) adjustSelected(delta int) {
	card, ok := a.selectedCard()
	if !ok {
		return
	}
	locations := inventory.AllLocations()
	a.controller.AdjustQuantity(card.ID, locations[a.locCursor], delta)
}

func (a *App) cycleCategory() {
	a.categoryCursor = (a.categoryCursor + 1) % (len(a.categories) + 1)
	if a.categoryCursor == 0 {
		a.controller.SetCategory("")
	} else {
		a.controller.SetCategory(a.categories[a.categoryCursor-1])
	}
}

func (a *App) cycleSort() {
	modes := view.SortModes()
	a.sortCursor = (a.sortCursor + 1) % len(modes)
	a.controller.SetSort(modes[a.sortCursor])
}

func (a *App) selectedCard() (view.Card, bool) {
	if a.frame.Empty || a.cursor >= len(a.frame.Cards) {
		return view.Card{}, false
	}
	return a.frame.Cards[a.cursor], true
}

func (a *App) clampCursor() {
	if a.cursor >= len(a.frame.Cards) {
		a.cursor = len(a.frame.Cards) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func trimLastRune(value string) string {
	runes := []rune(value)
	if len(runes) == 0 {
		return value
	}
	return string(runes[:len(runes)-1])
}

func printableInput(msg tea.KeyMsg) string {
	if msg.Type != tea.KeyRunes && msg.Type != tea.KeySpace {
		return ""
	}
	if msg.Type == tea.KeySpace {
		return " "
	}
	return string(msg.Runes)
}
