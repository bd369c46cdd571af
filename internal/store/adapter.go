package store

import (
	"context"

	"github.com/MarcoPoloResearchLab/homestock/internal/inventory"
)

// Adapter is the remote store as the view core sees it: a persistent
// snapshot subscription plus keyed full-record writes. Implementations own
// transport and session concerns; the core never retries through this
// interface.
type Adapter interface {
	// Subscribe opens the persistent collection listener. The callback fires
	// once per change, including immediately with current state. Subscribe
	// blocks until the subscription ends; any return is terminal for the
	// session.
	Subscribe(ctx context.Context, onSnapshot func(map[string]inventory.Item)) error
	// Write performs a full-record upsert at an existing key.
	Write(ctx context.Context, id string, draft inventory.ItemDraft) error
	// CreateWithGeneratedKey inserts a record under a store-chosen key.
	CreateWithGeneratedKey(ctx context.Context, draft inventory.ItemDraft) error
	// Delete removes the record at the given key.
	Delete(ctx context.Context, id string) error
}
