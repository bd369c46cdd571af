package view

import (
	"github.com/MarcoPoloResearchLab/homestock/internal/inventory"
)

// SortMode selects the ordering of the projected item list.
type SortMode string

const (
	// SortUnordered keeps the collection's insertion order (store keys sort
	// lexicographically in creation order).
	SortUnordered SortMode = "unordered"
	SortDateDesc  SortMode = "date-desc"
	SortDateAsc   SortMode = "date-asc"
	SortQtyDesc   SortMode = "qty-desc"
	SortQtyAsc    SortMode = "qty-asc"
)

// SortModes returns every mode in control-cycling order.
func SortModes() []SortMode {
	return []SortMode{SortUnordered, SortDateDesc, SortDateAsc, SortQtyDesc, SortQtyAsc}
}

// State is the process-local mirror of the remote snapshot plus transient UI
// controls. It is owned by one controller and changed only through the
// transition methods below; nothing here is persisted.
type State struct {
	Items         map[string]inventory.Item
	Search        string
	Category      string
	Sort          SortMode
	AdminMode     bool
	EditingItemID string

	passcode string
}

// NewState builds an empty state gated by the configured admin passcode.
func NewState(passcode string) *State {
	return &State{
		Items:    map[string]inventory.Item{},
		Sort:     SortUnordered,
		passcode: passcode,
	}
}

// ReplaceSnapshot swaps the whole item mirror for the delivered snapshot.
// There is no incremental merge; a nil snapshot means the collection is
// absent and clears the mirror.
func (s *State) ReplaceSnapshot(items map[string]inventory.Item) {
	if items == nil {
		items = map[string]inventory.Item{}
	}
	s.Items = items
	if s.EditingItemID != "" {
		if _, ok := s.Items[s.EditingItemID]; !ok {
			s.EditingItemID = ""
		}
	}
}

// SetSearch updates the free-text name filter.
func (s *State) SetSearch(search string) {
	s.Search = search
}

// SetCategory updates the category filter; empty means all categories.
func (s *State) SetCategory(category string) {
	s.Category = category
}

// SetSort updates the sort mode.
func (s *State) SetSort(mode SortMode) {
	s.Sort = mode
}

// EnterAdminMode unlocks mutation controls when the supplied passcode
// matches. A wrong passcode leaves the mode unchanged and returns false.
// This is a UI convenience, not an authorization boundary.
func (s *State) EnterAdminMode(passcode string) bool {
	if passcode != s.passcode {
		return false
	}
	s.AdminMode = true
	return true
}

// ExitAdminMode leaves admin mode. Exiting never asks for the passcode.
func (s *State) ExitAdminMode() {
	s.AdminMode = false
	s.EditingItemID = ""
}

// BeginEdit opens the edit form for an existing item. It reports whether the
// form opened; outside admin mode or for an unknown key it does nothing.
func (s *State) BeginEdit(id string) bool {
	if !s.AdminMode {
		return false
	}
	if _, ok := s.Items[id]; !ok {
		return false
	}
	s.EditingItemID = id
	return true
}

// BeginAdd opens a fresh add form, discarding any edit session so the next
// save creates a new item. It reports whether the form opened.
func (s *State) BeginAdd() bool {
	if !s.AdminMode {
		return false
	}
	s.EditingItemID = ""
	return true
}

// EndEdit closes the edit form; the next save goes through add mode again.
func (s *State) EndEdit() {
	s.EditingItemID = ""
}
