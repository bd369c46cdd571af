package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/homestock/internal/inventory"
)

type recordedWrite struct {
	id    string
	draft inventory.ItemDraft
}

// fakeStore implements store.Adapter in-process. Snapshots pushed through the
// snapshots channel reach the controller the way websocket frames would.
type fakeStore struct {
	mu      sync.Mutex
	writes  []recordedWrite
	creates []inventory.ItemDraft
	deletes []string

	writeErr error

	snapshots chan map[string]inventory.Item
	failure   chan error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		snapshots: make(chan map[string]inventory.Item, 8),
		failure:   make(chan error, 1),
	}
}

func (f *fakeStore) Subscribe(ctx context.Context, onSnapshot func(map[string]inventory.Item)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-f.failure:
			return err
		case snapshot := <-f.snapshots:
			onSnapshot(snapshot)
		}
	}
}

func (f *fakeStore) Write(ctx context.Context, id string, draft inventory.ItemDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, recordedWrite{id: id, draft: draft})
	return nil
}

func (f *fakeStore) CreateWithGeneratedKey(ctx context.Context, draft inventory.ItemDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.creates = append(f.creates, draft)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeStore) callCounts() (writes, creates, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes), len(f.creates), len(f.deletes)
}

type controllerHarness struct {
	controller *Controller
	store      *fakeStore
	frames     chan Frame
	notes      chan string
	cancel     context.CancelFunc
	runDone    chan error
}

func newControllerHarness(t *testing.T, passcode string) *controllerHarness {
	t.Helper()

	harness := &controllerHarness{
		store:   newFakeStore(),
		frames:  make(chan Frame, 32),
		notes:   make(chan string, 32),
		runDone: make(chan error, 1),
	}

	controller, err := NewController(ControllerConfig{
		Store:    harness.store,
		Passcode: passcode,
		Frames:   func(frame Frame) { harness.frames <- frame },
		Notify:   func(text string) { harness.notes <- text },
	})
	if err != nil {
		t.Fatalf("failed to construct controller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	harness.cancel = cancel
	go func() { harness.runDone <- controller.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-harness.runDone:
		case <-time.After(2 * time.Second):
			t.Error("controller did not stop")
		}
	})

	harness.controller = controller
	return harness
}

func (h *controllerHarness) nextFrame(t *testing.T) Frame {
	t.Helper()
	select {
	case frame := <-h.frames:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return Frame{}
	}
}

func (h *controllerHarness) nextNote(t *testing.T) string {
	t.Helper()
	select {
	case note := <-h.notes:
		return note
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a notification")
		return ""
	}
}

func (h *controllerHarness) unlockAdmin(t *testing.T, passcode string) {
	t.Helper()
	h.controller.EnterAdminMode(passcode)
	if frame := h.nextFrame(t); !frame.Admin {
		t.Fatal("expected admin mode to unlock")
	}
}

func TestControllerSnapshotRendersOneFrame(t *testing.T) {
	harness := newControllerHarness(t, "1234")

	harness.store.snapshots <- map[string]inventory.Item{
		"item-1": {Name: "Soy Sauce", Category: "sauce", Quantities: inventory.Quantities{Basement: 2, Elsewhere: 1}},
	}

	frame := harness.nextFrame(t)
	if frame.Empty {
		t.Fatal("expected a populated frame")
	}
	if len(frame.Cards) != 1 || frame.Cards[0].Total != 3 {
		t.Fatalf("expected one card with total 3, got %+v", frame.Cards)
	}

	// A second snapshot fully replaces the first; no merge, no extra frames.
	harness.store.snapshots <- map[string]inventory.Item{}
	frame = harness.nextFrame(t)
	if !frame.Empty {
		t.Fatal("expected empty snapshot to replace the mirror")
	}
	select {
	case extra := <-harness.frames:
		t.Fatalf("expected exactly one frame per snapshot, got extra %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestControllerWrongPasscodeNotifies(t *testing.T) {
	harness := newControllerHarness(t, "1234")

	harness.controller.EnterAdminMode("9999")
	if note := harness.nextNote(t); note != "Incorrect passcode!" {
		t.Fatalf("unexpected notification %q", note)
	}
	if frame := harness.nextFrame(t); frame.Admin {
		t.Fatal("expected admin mode to stay locked")
	}

	harness.unlockAdmin(t, "1234")
}

func TestControllerMutationsAreSilentNoOpsOutsideAdminMode(t *testing.T) {
	harness := newControllerHarness(t, "1234")

	harness.store.snapshots <- map[string]inventory.Item{
		"item-1": {Name: "Soy Sauce", Category: "sauce", Quantities: inventory.Quantities{Basement: 2}},
	}
	harness.nextFrame(t)

	harness.controller.SaveItem(inventory.ItemDraft{Name: "Rice", Category: "noodles/rice"})
	harness.controller.DeleteItem("item-1")
	harness.controller.AdjustQuantity("item-1", inventory.LocationBasement, 1)
	harness.controller.SetQuantity("item-1", inventory.LocationBasement, "9")
	for i := 0; i < 4; i++ {
		harness.nextFrame(t)
	}

	writes, creates, deletes := harness.store.callCounts()
	if writes != 0 || creates != 0 || deletes != 0 {
		t.Fatalf("expected no store traffic outside admin mode, got %d/%d/%d", writes, creates, deletes)
	}
	select {
	case note := <-harness.notes:
		t.Fatalf("expected silent no-ops, got notification %q", note)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestControllerSaveItemCreatesWithGeneratedKey(t *testing.T) {
	harness := newControllerHarness(t, "1234")
	harness.unlockAdmin(t, "1234")

	harness.controller.SaveItem(inventory.ItemDraft{Name: "Rice", Category: "noodles/rice", Quantities: inventory.Quantities{Garage: 5}})
	harness.nextFrame(t)

	harness.store.mu.Lock()
	defer harness.store.mu.Unlock()
	if len(harness.store.creates) != 1 {
		t.Fatalf("expected one create, got %d", len(harness.store.creates))
	}
	if harness.store.creates[0].Name != "Rice" {
		t.Fatalf("unexpected create payload %+v", harness.store.creates[0])
	}
}

func TestControllerSaveItemWritesToEditedKey(t *testing.T) {
	harness := newControllerHarness(t, "1234")
	harness.unlockAdmin(t, "1234")

	harness.store.snapshots <- map[string]inventory.Item{
		"item-1": {Name: "Soy Sauce", Category: "sauce"},
	}
	harness.nextFrame(t)

	harness.controller.BeginEdit("item-1")
	harness.nextFrame(t)
	harness.controller.SaveItem(inventory.ItemDraft{Name: "Dark Soy Sauce", Category: "sauce"})
	harness.nextFrame(t)

	harness.store.mu.Lock()
	defer harness.store.mu.Unlock()
	if len(harness.store.writes) != 1 {
		t.Fatalf("expected one write, got %d", len(harness.store.writes))
	}
	if harness.store.writes[0].id != "item-1" {
		t.Fatalf("expected write to edited key, got %q", harness.store.writes[0].id)
	}
	if len(harness.store.creates) != 0 {
		t.Fatal("expected no create while editing")
	}
}

func TestControllerSaveItemRejectsBlankName(t *testing.T) {
	harness := newControllerHarness(t, "1234")
	harness.unlockAdmin(t, "1234")

	harness.controller.SaveItem(inventory.ItemDraft{Name: "   "})
	if note := harness.nextNote(t); note != "Item name is required." {
		t.Fatalf("unexpected notification %q", note)
	}
	harness.nextFrame(t)

	writes, creates, _ := harness.store.callCounts()
	if writes != 0 || creates != 0 {
		t.Fatal("expected invalid draft to reach no store call")
	}
}

func TestControllerAdjustQuantityWritesFullRecord(t *testing.T) {
	harness := newControllerHarness(t, "1234")
	harness.unlockAdmin(t, "1234")

	harness.store.snapshots <- map[string]inventory.Item{
		"item-1": {
			Name:       "Soy Sauce",
			Category:   "sauce",
			Quantities: inventory.Quantities{Basement: 2, Elsewhere: 1},
			Note:       "low sodium",
		},
	}
	harness.nextFrame(t)

	harness.controller.AdjustQuantity("item-1", inventory.LocationBasement, -1)
	harness.nextFrame(t)

	harness.store.mu.Lock()
	defer harness.store.mu.Unlock()
	if len(harness.store.writes) != 1 {
		t.Fatalf("expected one write, got %d", len(harness.store.writes))
	}
	draft := harness.store.writes[0].draft
	if draft.Quantities.Basement != 1 {
		t.Fatalf("expected basement decremented to 1, got %d", draft.Quantities.Basement)
	}
	if draft.Name != "Soy Sauce" || draft.Note != "low sodium" || draft.Quantities.Elsewhere != 1 {
		t.Fatalf("expected the full record written back, got %+v", draft)
	}
}

func TestControllerDeleteUnknownKeyIsNoOp(t *testing.T) {
	harness := newControllerHarness(t, "1234")
	harness.unlockAdmin(t, "1234")

	harness.controller.DeleteItem("missing")
	harness.nextFrame(t)

	_, _, deletes := harness.store.callCounts()
	if deletes != 0 {
		t.Fatal("expected no delete for an unknown key")
	}
}

func TestControllerWriteFailureNotifies(t *testing.T) {
	harness := newControllerHarness(t, "1234")
	harness.unlockAdmin(t, "1234")
	harness.store.writeErr = errors.New("store unavailable")

	harness.controller.SaveItem(inventory.ItemDraft{Name: "Rice", Category: "noodles/rice"})
	if note := harness.nextNote(t); note != "Saving to the store failed. The list may be out of date." {
		t.Fatalf("unexpected notification %q", note)
	}
}

func TestControllerSubscriptionLossIsTerminal(t *testing.T) {
	harness := newControllerHarness(t, "1234")

	streamErr := errors.New("stream closed")
	harness.store.failure <- streamErr

	if note := harness.nextNote(t); note != "Connection to the store was lost. Please restart the app." {
		t.Fatalf("unexpected notification %q", note)
	}
	select {
	case err := <-harness.runDone:
		if !errors.Is(err, streamErr) {
			t.Fatalf("expected run to surface the stream error, got %v", err)
		}
		harness.runDone <- err
	case <-time.After(2 * time.Second):
		t.Fatal("expected run to return after subscription loss")
	}
}
