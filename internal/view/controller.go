package view

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/homestock/internal/inventory"
	"github.com/MarcoPoloResearchLab/homestock/internal/store"
	"go.uber.org/zap"
)

const eventQueueDepth = 64

var (
	errMissingStore  = errors.New("view: store adapter is required")
	errMissingFrames = errors.New("view: frame sink is required")
)

// ControllerConfig wires the controller to its collaborators.
type ControllerConfig struct {
	Store    store.Adapter
	Passcode string
	// Frames receives one frame per processed event.
	Frames func(Frame)
	// Notify receives user-facing messages (wrong passcode, write failures).
	Notify func(string)
	Logger *zap.Logger
}

// Controller owns the view state and funnels every event, remote snapshots
// and user interactions alike, through one queue, so renders never
// interleave and the latest snapshot always wins. Mutations write through
// the store adapter and never patch the local mirror; the store's own
// notification closes the loop.
type Controller struct {
	store    store.Adapter
	passcode string
	frames   func(Frame)
	notify   func(string)
	logger   *zap.Logger

	state  *State
	events chan func(*Controller)
	runCtx context.Context
}

// NewController constructs a controller with an empty mirror.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Frames == nil {
		return nil, errMissingFrames
	}

	notify := cfg.Notify
	if notify == nil {
		notify = func(string) {}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		store:    cfg.Store,
		passcode: cfg.Passcode,
		frames:   cfg.Frames,
		notify:   notify,
		logger:   logger,
		state:    NewState(cfg.Passcode),
		events:   make(chan func(*Controller), eventQueueDepth),
	}, nil
}

// Run subscribes to the store and processes events until the context ends or
// the subscription fails. Subscription failure is terminal for the session;
// recovery is reloading the client.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx

	subscribeErr := make(chan error, 1)
	go func() {
		subscribeErr <- c.store.Subscribe(ctx, func(snapshot map[string]inventory.Item) {
			c.enqueue(func(ctl *Controller) {
				ctl.state.ReplaceSnapshot(snapshot)
			})
		})
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-subscribeErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("snapshot subscription ended", zap.Error(err))
				c.notify("Connection to the store was lost. Please restart the app.")
			}
			return err
		case apply := <-c.events:
			apply(c)
			c.render()
		}
	}
}

// SetSearch updates the free-text filter.
func (c *Controller) SetSearch(search string) {
	c.enqueue(func(ctl *Controller) { ctl.state.SetSearch(search) })
}

// SetCategory updates the category filter; empty selects all categories.
func (c *Controller) SetCategory(category string) {
	c.enqueue(func(ctl *Controller) { ctl.state.SetCategory(category) })
}

// SetSort updates the sort mode.
func (c *Controller) SetSort(mode SortMode) {
	c.enqueue(func(ctl *Controller) { ctl.state.SetSort(mode) })
}

// EnterAdminMode attempts to unlock mutation controls.
func (c *Controller) EnterAdminMode(passcode string) {
	c.enqueue(func(ctl *Controller) { ctl.handleEnterAdminMode(passcode) })
}

// ExitAdminMode locks mutation controls; no passcode is required to exit.
func (c *Controller) ExitAdminMode() {
	c.enqueue(func(ctl *Controller) { ctl.state.ExitAdminMode() })
}

// BeginAdd opens a fresh add form, discarding any edit session.
func (c *Controller) BeginAdd() {
	c.enqueue(func(ctl *Controller) { ctl.state.BeginAdd() })
}

// BeginEdit opens the edit form for an item.
func (c *Controller) BeginEdit(id string) {
	c.enqueue(func(ctl *Controller) { ctl.state.BeginEdit(id) })
}

// EndEdit abandons the open form.
func (c *Controller) EndEdit() {
	c.enqueue(func(ctl *Controller) { ctl.state.EndEdit() })
}

// SaveItem creates a new item or fully replaces the one being edited.
func (c *Controller) SaveItem(draft inventory.ItemDraft) {
	c.enqueue(func(ctl *Controller) { ctl.handleSaveItem(draft) })
}

// DeleteItem removes an item. Interactive confirmation is owned by the
// display surface; by the time this runs the removal is committed.
func (c *Controller) DeleteItem(id string) {
	c.enqueue(func(ctl *Controller) { ctl.handleDeleteItem(id) })
}

// AdjustQuantity shifts one location's count by a signed delta.
func (c *Controller) AdjustQuantity(id string, location inventory.Location, delta int) {
	c.enqueue(func(ctl *Controller) { ctl.handleAdjustQuantity(id, location, delta) })
}

// SetQuantity stores raw user input as one location's count.
func (c *Controller) SetQuantity(id string, location inventory.Location, rawValue string) {
	c.enqueue(func(ctl *Controller) { ctl.handleSetQuantity(id, location, rawValue) })
}

func (c *Controller) enqueue(apply func(*Controller)) {
	c.events <- apply
}

func (c *Controller) handleEnterAdminMode(passcode string) {
	if !c.state.EnterAdminMode(passcode) {
		c.notify("Incorrect passcode!")
	}
}

func (c *Controller) handleSaveItem(draft inventory.ItemDraft) {
	if !c.state.AdminMode {
		return
	}
	if err := draft.Validate(); err != nil {
		c.notify("Item name is required.")
		return
	}

	editingID := c.state.EditingItemID
	c.state.EndEdit()

	var err error
	if editingID != "" {
		err = c.store.Write(c.writeCtx(), editingID, draft)
	} else {
		err = c.store.CreateWithGeneratedKey(c.writeCtx(), draft)
	}
	if err != nil {
		c.reportWriteFailure("save item", err)
	}
}

func (c *Controller) handleDeleteItem(id string) {
	if !c.state.AdminMode {
		return
	}
	if _, ok := c.state.Items[id]; !ok {
		return
	}
	if err := c.store.Delete(c.writeCtx(), id); err != nil {
		c.reportWriteFailure("delete item", err)
	}
}

// handleAdjustQuantity computes the new count from the locally cached item,
// not the true remote latest, and writes the full record back. Concurrent
// clients race under last-write-wins; that is a property of the design.
func (c *Controller) handleAdjustQuantity(id string, location inventory.Location, delta int) {
	c.rewriteQuantity(id, func(draft *inventory.ItemDraft) {
		draft.Quantities.Adjust(location, delta)
	})
}

func (c *Controller) handleSetQuantity(id string, location inventory.Location, rawValue string) {
	value := inventory.ParseQuantity(rawValue)
	c.rewriteQuantity(id, func(draft *inventory.ItemDraft) {
		draft.Quantities.Set(location, value)
	})
}

func (c *Controller) rewriteQuantity(id string, mutate func(*inventory.ItemDraft)) {
	if !c.state.AdminMode {
		return
	}
	item, ok := c.state.Items[id]
	if !ok {
		return
	}

	draft := inventory.ItemDraft{
		Name:       item.Name,
		Category:   item.Category,
		Quantities: item.Quantities,
		Note:       item.Note,
	}
	mutate(&draft)

	if err := c.store.Write(c.writeCtx(), id, draft); err != nil {
		c.reportWriteFailure("update quantity", err)
	}
}

func (c *Controller) render() {
	entries := Project(c.state.Items, c.state.Search, c.state.Category, c.state.Sort)
	c.frames(Render(entries, c.state.AdminMode))
}

func (c *Controller) writeCtx() context.Context {
	if c.runCtx != nil {
		return c.runCtx
	}
	return context.Background()
}

func (c *Controller) reportWriteFailure(operation string, err error) {
	c.logger.Error("store write failed", zap.String("operation", operation), zap.Error(err))
	c.notify("Saving to the store failed. The list may be out of date.")
}
