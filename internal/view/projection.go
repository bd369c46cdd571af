package view

import (
	"sort"
	"strings"

	"github.com/MarcoPoloResearchLab/homestock/internal/inventory"
)

// Entry pairs an item with its store key for display.
type Entry struct {
	ID   string
	Item inventory.Item
}

// Project derives the filtered, sorted display sequence from the item mirror.
// It is pure: the same inputs always yield the same ordered output, and the
// mirror is never modified.
//
// An item passes the filter when its name contains the search text
// case-insensitively and the category filter is empty or equals the item's
// category exactly. Sorting is stable, so ties keep insertion order.
func Project(items map[string]inventory.Item, search, category string, mode SortMode) []Entry {
	needle := strings.ToLower(search)

	entries := make([]Entry, 0, len(items))
	for id, item := range items {
		if !strings.Contains(strings.ToLower(item.Name), needle) {
			continue
		}
		if category != "" && item.Category != category {
			continue
		}
		entries = append(entries, Entry{ID: id, Item: item})
	}

	// Key order is insertion order, which anchors both the unordered mode
	// and tie-breaking for the stable sorts below.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})

	switch mode {
	case SortDateDesc:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[j].Item.LastEdited < entries[i].Item.LastEdited
		})
	case SortDateAsc:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Item.LastEdited < entries[j].Item.LastEdited
		})
	case SortQtyDesc:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[j].Item.Quantities.Total() < entries[i].Item.Quantities.Total()
		})
	case SortQtyAsc:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Item.Quantities.Total() < entries[j].Item.Quantities.Total()
		})
	}

	return entries
}
