package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MarcoPoloResearchLab/homestock/internal/inventory"
	"github.com/MarcoPoloResearchLab/homestock/internal/view"
)

// Form field indices. Category is cycled with left/right rather than typed.
const (
	fieldName = iota
	fieldCategory
	fieldQtyBasement
	fieldQtyGarage
	fieldQtyToilet
	fieldQtyElsewhere
	fieldNote
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Name", "Category", "Basement", "Garage", "Toilet", "Elsewhere", "Note",
}

// itemForm captures input for the add/edit modal. Quantity fields hold raw
// text; unparsable input coerces to zero on save, matching the store's
// leniency.
type itemForm struct {
	editingID  string
	categories []string

	name          string
	categoryIndex int
	quantities    [4]string
	note          string

	cursor int
}

func newItemForm(categories []string, editingID string, card *view.Card) itemForm {
	form := itemForm{
		editingID:  editingID,
		categories: categories,
	}
	if card == nil {
		return form
	}

	form.name = card.Name
	form.note = card.Note
	for index, category := range categories {
		if category == card.Category {
			form.categoryIndex = index
			break
		}
	}
	for index, row := range card.Rows {
		if index < len(form.quantities) {
			form.quantities[index] = strconv.Itoa(row.Quantity)
		}
	}
	return form
}

func (f *itemForm) next() {
	if f.cursor < fieldCount-1 {
		f.cursor++
	}
}

func (f *itemForm) prev() {
	if f.cursor > 0 {
		f.cursor--
	}
}

func (f *itemForm) atLastField() bool {
	return f.cursor == fieldCount-1
}

func (f *itemForm) cycleCategory(step int) {
	if f.cursor != fieldCategory || len(f.categories) == 0 {
		return
	}
	f.categoryIndex = (f.categoryIndex + step + len(f.categories)) % len(f.categories)
}

func (f *itemForm) input(text string) {
	switch f.cursor {
	case fieldName:
		f.name += text
	case fieldNote:
		f.note += text
	case fieldCategory:
		// cycled, not typed
	default:
		f.quantities[f.cursor-fieldQtyBasement] += text
	}
}

func (f *itemForm) backspace() {
	switch f.cursor {
	case fieldName:
		f.name = trimLastRune(f.name)
	case fieldNote:
		f.note = trimLastRune(f.note)
	case fieldCategory:
	default:
		index := f.cursor - fieldQtyBasement
		f.quantities[index] = trimLastRune(f.quantities[index])
	}
}

func (f *itemForm) draft() inventory.ItemDraft {
	category := ""
	if len(f.categories) > 0 {
		category = f.categories[f.categoryIndex]
	}

	var quantities inventory.Quantities
	for index, location := range inventory.AllLocations() {
		quantities.Set(location, inventory.ParseQuantity(f.quantities[index]))
	}

	return inventory.ItemDraft{
		Name:       strings.TrimSpace(f.name),
		Category:   category,
		Quantities: quantities,
		Note:       strings.TrimSpace(f.note),
	}
}

func (f *itemForm) view() string {
	title := "Add New Item"
	if f.editingID != "" {
		title = "Edit Item"
	}

	values := [fieldCount]string{
		f.name,
		f.categoryValue(),
		f.quantities[0], f.quantities[1], f.quantities[2], f.quantities[3],
		f.note,
	}

	lines := make([]string, 0, fieldCount+2)
	lines = append(lines, cardNameStyle.Render(title), "")
	for index := 0; index < fieldCount; index++ {
		label := formLabelStyle.Render(fieldLabels[index])
		value := values[index]
		if index == f.cursor {
			value = formActiveStyle.Render(value + "▌")
		}
		lines = append(lines, fmt.Sprintf("%s %s", label, value))
	}
	lines = append(lines, "", helpStyle.Render("enter next/save  tab/↑/↓ move  esc cancel"))

	return promptStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (f *itemForm) categoryValue() string {
	if len(f.categories) == 0 {
		return ""
	}
	value := f.categories[f.categoryIndex]
	if f.cursor == fieldCategory {
		value = "◀ " + value + " ▶"
	}
	return value
}
