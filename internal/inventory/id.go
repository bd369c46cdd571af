package inventory

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDProvider issues store-assigned identifiers.
type IDProvider interface {
	NewID() (string, error)
}

type ulidKeyProvider struct {
	mu      sync.Mutex
	clock   func() time.Time
	entropy *ulid.MonotonicEntropy
}

// NewULIDKeyProvider constructs an IDProvider that issues ULID item keys.
// ULIDs sort lexicographically in creation order, so iterating the snapshot
// by key reproduces insertion order.
func NewULIDKeyProvider(clock func() time.Time) IDProvider {
	if clock == nil {
		clock = time.Now
	}
	return &ulidKeyProvider{
		clock:   clock,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (p *ulidKeyProvider) NewID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	value, err := ulid.New(ulid.Timestamp(p.clock().UTC()), p.entropy)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers,
// used for audit-trail change ids.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
