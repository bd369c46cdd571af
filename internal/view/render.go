package view

import (
	"github.com/MarcoPoloResearchLab/homestock/internal/inventory"
)

// Row describes one location line on a card. The increment control is live
// only in admin mode; the decrement control additionally requires a positive
// count so a quantity can never display or store a negative value.
type Row struct {
	Location     inventory.Location
	Quantity     int
	CanIncrement bool
	CanDecrement bool
}

// Card is the declarative description of one rendered item.
type Card struct {
	ID          string
	Name        string
	Category    string
	Total       int
	Rows        []Row
	Note        string
	HasNote     bool
	LastEdited  string
	ShowActions bool
}

// Frame is a complete rendering of the view: either a list of cards or the
// distinct empty presentation. AddHint accompanies the empty state only in
// admin mode. Admin mirrors the mode the frame was rendered under so display
// surfaces never track it separately.
type Frame struct {
	Cards   []Card
	Empty   bool
	AddHint bool
	Admin   bool
}

// Render materializes the projected sequence into a frame. Each call fully
// replaces the previous frame; consumers redraw from scratch, so focus and
// scroll position do not survive a remote update.
func Render(entries []Entry, adminMode bool) Frame {
	if len(entries) == 0 {
		return Frame{Empty: true, AddHint: adminMode, Admin: adminMode}
	}

	cards := make([]Card, 0, len(entries))
	for _, entry := range entries {
		item := entry.Item
		rows := make([]Row, 0, len(inventory.AllLocations()))
		for _, location := range inventory.AllLocations() {
			quantity := item.Quantities.Get(location)
			rows = append(rows, Row{
				Location:     location,
				Quantity:     quantity,
				CanIncrement: adminMode,
				CanDecrement: adminMode && quantity > 0,
			})
		}
		cards = append(cards, Card{
			ID:          entry.ID,
			Name:        item.Name,
			Category:    item.Category,
			Total:       item.Quantities.Total(),
			Rows:        rows,
			Note:        item.Note,
			HasNote:     item.Note != "",
			LastEdited:  item.LastEdited,
			ShowActions: adminMode,
		})
	}

	return Frame{Cards: cards, Admin: adminMode}
}
