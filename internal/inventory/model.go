package inventory

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	maxIdentifierLength = 190
	dateStampLayout     = "2006-01-02"
)

var (
	// ErrInvalidItemID indicates that an item identifier is empty or exceeds storage bounds.
	ErrInvalidItemID = errors.New("inventory: invalid item id")
	// ErrUnknownLocation indicates a location name outside the fixed set.
	ErrUnknownLocation = errors.New("inventory: unknown location")
	// ErrInvalidDateStamp indicates a stamp that is not a zero-padded calendar date.
	ErrInvalidDateStamp = errors.New("inventory: invalid date stamp")
	// ErrEmptyName indicates a draft without a usable item name.
	ErrEmptyName = errors.New("inventory: item name must not be empty")
)

// Location names one of the four fixed storage areas tracked per item.
type Location string

const (
	LocationBasement  Location = "basement"
	LocationGarage    Location = "garage"
	LocationToilet    Location = "toilet"
	LocationElsewhere Location = "elsewhere"
)

// AllLocations returns the fixed location set in display order.
func AllLocations() []Location {
	return []Location{LocationBasement, LocationGarage, LocationToilet, LocationElsewhere}
}

// ParseLocation validates raw input against the fixed location set.
func ParseLocation(rawInput string) (Location, error) {
	candidate := Location(strings.ToLower(strings.TrimSpace(rawInput)))
	switch candidate {
	case LocationBasement, LocationGarage, LocationToilet, LocationElsewhere:
		return candidate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLocation, rawInput)
	}
}

// String returns the location name.
func (l Location) String() string {
	return string(l)
}

// Quantities holds one non-negative count per storage location. The set of
// locations is fixed; there is no runtime add/remove of location types.
type Quantities struct {
	Basement  int `gorm:"column:qty_basement;not null;default:0" json:"basement"`
	Garage    int `gorm:"column:qty_garage;not null;default:0" json:"garage"`
	Toilet    int `gorm:"column:qty_toilet;not null;default:0" json:"toilet"`
	Elsewhere int `gorm:"column:qty_elsewhere;not null;default:0" json:"elsewhere"`
}

// Get returns the count stored at the given location.
func (q Quantities) Get(location Location) int {
	switch location {
	case LocationBasement:
		return q.Basement
	case LocationGarage:
		return q.Garage
	case LocationToilet:
		return q.Toilet
	case LocationElsewhere:
		return q.Elsewhere
	default:
		return 0
	}
}

// Set stores a count at the given location, flooring negatives to zero.
func (q *Quantities) Set(location Location, value int) {
	if value < 0 {
		value = 0
	}
	switch location {
	case LocationBasement:
		q.Basement = value
	case LocationGarage:
		q.Garage = value
	case LocationToilet:
		q.Toilet = value
	case LocationElsewhere:
		q.Elsewhere = value
	}
}

// Adjust applies a signed delta to one location, flooring the result at zero.
func (q *Quantities) Adjust(location Location, delta int) {
	q.Set(location, q.Get(location)+delta)
}

// Clamp floors every location count at zero.
func (q *Quantities) Clamp() {
	for _, location := range AllLocations() {
		if q.Get(location) < 0 {
			q.Set(location, 0)
		}
	}
}

// Total returns the sum of all location counts.
func (q Quantities) Total() int {
	return q.Basement + q.Garage + q.Toilet + q.Elsewhere
}

// ParseQuantity interprets raw user input as a non-negative count.
// Unparsable or negative input coerces to zero; this is deliberate leniency,
// not an error.
func ParseQuantity(rawInput string) int {
	value, err := strconv.Atoi(strings.TrimSpace(rawInput))
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// ItemID represents a validated item identifier.
type ItemID string

// NewItemID validates raw input and returns an ItemID.
func NewItemID(rawInput string) (ItemID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidItemID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidItemID, maxIdentifierLength)
	}
	return ItemID(trimmed), nil
}

// String returns the underlying string identifier.
func (id ItemID) String() string {
	return string(id)
}

// DateStamp is a zero-padded calendar date (YYYY-MM-DD, no time component).
// The fixed width makes lexicographic order equal chronological order.
type DateStamp string

// NewDateStamp validates raw input and returns a DateStamp.
func NewDateStamp(rawInput string) (DateStamp, error) {
	trimmed := strings.TrimSpace(rawInput)
	if _, err := time.Parse(dateStampLayout, trimmed); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDateStamp, rawInput)
	}
	return DateStamp(trimmed), nil
}

// Today builds the stamp for the local calendar date reported by clock.
func Today(clock func() time.Time) DateStamp {
	return DateStamp(clock().Format(dateStampLayout))
}

// String returns the stamp text.
func (d DateStamp) String() string {
	return string(d)
}

// Item models a tracked household item. The identity is the store-assigned
// key; it travels in the snapshot map key rather than the record body.
type Item struct {
	ItemID     string     `gorm:"column:item_id;primaryKey;size:190;not null" json:"-"`
	Name       string     `gorm:"column:name;size:320;not null" json:"name"`
	Category   string     `gorm:"column:category;size:190;not null" json:"category"`
	Quantities Quantities `gorm:"embedded" json:"locations"`
	Note       string     `gorm:"column:note;type:text" json:"note,omitempty"`
	LastEdited string     `gorm:"column:last_edited;size:10;not null;index:idx_items_last_edited" json:"lastEdited"`
}

// TableName provides the explicit table binding for GORM.
func (Item) TableName() string {
	return "items"
}

// ItemDraft is the fully-populated mutation payload supplied for create and
// full-replace writes. The last-edited stamp is never part of the draft; the
// service assigns it on every write.
type ItemDraft struct {
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Quantities Quantities `json:"locations"`
	Note       string     `json:"note"`
}

// Validate checks the draft and normalizes quantity counts in place.
func (d *ItemDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	d.Quantities.Clamp()
	return nil
}

// ChangeOp enumerates the audited mutation kinds.
type ChangeOp string

const (
	ChangeOpCreate  ChangeOp = "create"
	ChangeOpReplace ChangeOp = "replace"
	ChangeOpDelete  ChangeOp = "delete"
	ChangeOpAdjust  ChangeOp = "adjust"
	ChangeOpSet     ChangeOp = "set"
)

// ItemChange captures an append-only audit trail for item mutations.
type ItemChange struct {
	ChangeID         string   `gorm:"column:change_id;primaryKey;size:190;not null"`
	ItemID           string   `gorm:"column:item_id;size:190;not null;index:idx_item_changes_item_time,priority:1"`
	Op               ChangeOp `gorm:"column:op;size:32;not null"`
	AppliedAtSeconds int64    `gorm:"column:applied_at_s;not null;index:idx_item_changes_item_time,priority:2"`
	PayloadJSON      string   `gorm:"column:payload_json;type:text;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ItemChange) TableName() string {
	return "item_changes"
}
