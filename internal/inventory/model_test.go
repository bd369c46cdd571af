package inventory

import (
	"encoding/json"
	"testing"
	"time"
)

func TestQuantitiesTotal(t *testing.T) {
	quantities := Quantities{Basement: 2, Garage: 0, Toilet: 0, Elsewhere: 1}
	if total := quantities.Total(); total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
}

func TestQuantitiesAdjustFloorsAtZero(t *testing.T) {
	quantities := Quantities{Toilet: 0}
	quantities.Adjust(LocationToilet, -1)
	if quantities.Toilet != 0 {
		t.Fatalf("expected toilet quantity to floor at 0, got %d", quantities.Toilet)
	}

	quantities.Adjust(LocationToilet, 3)
	quantities.Adjust(LocationToilet, -5)
	if quantities.Toilet != 0 {
		t.Fatalf("expected cumulative negative delta to floor at 0, got %d", quantities.Toilet)
	}
}

func TestQuantitiesAdjustNeverGoesNegative(t *testing.T) {
	quantities := Quantities{Garage: 2}
	deltas := []int{-1, -1, -1, 5, -10, 2, -4}
	for _, delta := range deltas {
		quantities.Adjust(LocationGarage, delta)
		if quantities.Garage < 0 {
			t.Fatalf("quantity went negative after delta %d", delta)
		}
	}
}

func TestParseQuantityCoercesToZero(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "plain number", input: "4", expected: 4},
		{name: "whitespace", input: " 7 ", expected: 7},
		{name: "empty", input: "", expected: 0},
		{name: "garbage", input: "abc", expected: 0},
		{name: "negative", input: "-3", expected: 0},
		{name: "float", input: "2.5", expected: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if value := ParseQuantity(tc.input); value != tc.expected {
				t.Fatalf("expected %d, got %d", tc.expected, value)
			}
		})
	}
}

func TestParseLocation(t *testing.T) {
	for _, location := range AllLocations() {
		parsed, err := ParseLocation(location.String())
		if err != nil {
			t.Fatalf("expected %q to parse: %v", location, err)
		}
		if parsed != location {
			t.Fatalf("expected %q, got %q", location, parsed)
		}
	}

	if _, err := ParseLocation("attic"); err == nil {
		t.Fatal("expected unknown location to be rejected")
	}
}

func TestQuantitiesJSONUsesFixedLocationKeys(t *testing.T) {
	encoded, err := json.Marshal(Quantities{Basement: 2, Elsewhere: 1})
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	expected := `{"basement":2,"garage":0,"toilet":0,"elsewhere":1}`
	if string(encoded) != expected {
		t.Fatalf("expected %s, got %s", expected, encoded)
	}
}

func TestDateStampFormat(t *testing.T) {
	stamp := Today(fixedClock(time.Date(2024, time.March, 5, 23, 30, 0, 0, time.UTC)))
	if stamp.String() != "2024-03-05" {
		t.Fatalf("expected zero-padded calendar date, got %q", stamp)
	}

	if _, err := NewDateStamp("2024-03-05"); err != nil {
		t.Fatalf("expected valid stamp to parse: %v", err)
	}
	if _, err := NewDateStamp("03/05/2024"); err == nil {
		t.Fatal("expected non-ISO stamp to be rejected")
	}
}

func TestDateStampOrderIsLexicographic(t *testing.T) {
	older := Today(fixedClock(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
	newer := Today(fixedClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
	if !(older.String() < newer.String()) {
		t.Fatalf("expected %q < %q", older, newer)
	}
}

func TestItemDraftValidate(t *testing.T) {
	draft := ItemDraft{Name: "  ", Category: "sauce"}
	if err := draft.Validate(); err == nil {
		t.Fatal("expected blank name to be rejected")
	}

	draft = ItemDraft{
		Name:       "Soy Sauce",
		Category:   "sauce",
		Quantities: Quantities{Basement: -2, Garage: 1},
	}
	if err := draft.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if draft.Quantities.Basement != 0 {
		t.Fatalf("expected negative quantity to clamp to 0, got %d", draft.Quantities.Basement)
	}
	if draft.Quantities.Garage != 1 {
		t.Fatalf("expected positive quantity to survive, got %d", draft.Quantities.Garage)
	}
}

func TestNewItemID(t *testing.T) {
	if _, err := NewItemID("   "); err == nil {
		t.Fatal("expected blank id to be rejected")
	}
	id, err := NewItemID(" item-1 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() != "item-1" {
		t.Fatalf("expected trimmed id, got %q", id)
	}
}
