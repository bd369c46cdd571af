package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrItemNotFound indicates a mutation addressed a key with no stored record.
	ErrItemNotFound = errors.New("inventory: item not found")

	errMissingDatabase    = errors.New("database handle is required")
	errMissingKeyProvider = errors.New("key provider is required")
	noOpLogger            = zap.NewNop()
)

// ServiceError wraps a failure with an operation code for log correlation.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew     = "inventory.service.new"
	opSnapshot       = "inventory.snapshot"
	opCreate         = "inventory.create"
	opReplace        = "inventory.replace"
	opDelete         = "inventory.delete"
	opAdjustQuantity = "inventory.adjust_quantity"
	opSetQuantity    = "inventory.set_quantity"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies of the inventory service.
type ServiceConfig struct {
	Database  *gorm.DB
	Clock     func() time.Time
	Keys      IDProvider
	ChangeIDs IDProvider
	Logger    *zap.Logger
}

// Service owns the persisted item collection and its audit trail. It is the
// server half of the remote store: every accepted mutation rewrites the full
// record and refreshes the last-edited stamp.
type Service struct {
	db        *gorm.DB
	clock     func() time.Time
	keys      IDProvider
	changeIDs IDProvider
	logger    *zap.Logger
}

// NewService constructs the inventory service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Keys == nil {
		return nil, newServiceError(opServiceNew, "missing_key_provider", errMissingKeyProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	changeIDs := cfg.ChangeIDs
	if changeIDs == nil {
		changeIDs = NewUUIDProvider()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:        cfg.Database,
		clock:     clock,
		keys:      cfg.Keys,
		changeIDs: changeIDs,
		logger:    logger,
	}, nil
}

// Snapshot returns the full current state of the item collection keyed by
// item id. An empty collection yields an empty, non-nil map.
func (s *Service) Snapshot(ctx context.Context) (map[string]Item, error) {
	var records []Item
	if err := s.db.WithContext(ctx).Order("item_id ASC").Find(&records).Error; err != nil {
		s.logError(opSnapshot, "query_failed", err)
		return nil, newServiceError(opSnapshot, "query_failed", err)
	}

	snapshot := make(map[string]Item, len(records))
	for _, record := range records {
		snapshot[record.ItemID] = record
	}
	return snapshot, nil
}

// Create inserts a new item under a fresh store-assigned key and stamps it
// with today's date.
func (s *Service) Create(ctx context.Context, draft ItemDraft) (Item, error) {
	if err := draft.Validate(); err != nil {
		return Item{}, newServiceError(opCreate, "invalid_draft", err)
	}

	key, err := s.keys.NewID()
	if err != nil {
		s.logError(opCreate, "key_generation_failed", err)
		return Item{}, newServiceError(opCreate, "key_generation_failed", err)
	}

	item := s.materialize(key, draft)
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&item).Error; err != nil {
			return newServiceError(opCreate, "insert_failed", err)
		}
		return s.appendChange(tx, ChangeOpCreate, item)
	})
	if txErr != nil {
		s.logError(opCreate, "transaction_failed", txErr, zap.String("item_id", key))
		return Item{}, txErr
	}

	return item, nil
}

// Replace overwrites the stored record at an existing key with the draft and
// refreshes the last-edited stamp.
func (s *Service) Replace(ctx context.Context, id ItemID, draft ItemDraft) (Item, error) {
	if err := draft.Validate(); err != nil {
		return Item{}, newServiceError(opReplace, "invalid_draft", err)
	}

	item := s.materialize(id.String(), draft)
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.takeForUpdate(tx, id); err != nil {
			return err
		}
		if err := tx.Save(&item).Error; err != nil {
			return newServiceError(opReplace, "save_failed", err)
		}
		return s.appendChange(tx, ChangeOpReplace, item)
	})
	if txErr != nil {
		s.logError(opReplace, "transaction_failed", txErr, zap.String("item_id", id.String()))
		return Item{}, txErr
	}

	return item, nil
}

// Delete removes the record at the given key. The removal is irreversible;
// only the audit trail retains the final payload.
func (s *Service) Delete(ctx context.Context, id ItemID) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.takeForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(&Item{}, "item_id = ?", id.String()).Error; err != nil {
			return newServiceError(opDelete, "delete_failed", err)
		}
		return s.appendChange(tx, ChangeOpDelete, existing)
	})
	if txErr != nil {
		s.logError(opDelete, "transaction_failed", txErr, zap.String("item_id", id.String()))
		return txErr
	}
	return nil
}

// AdjustQuantity applies a signed delta to one location, flooring the result
// at zero, and writes the full updated record back.
func (s *Service) AdjustQuantity(ctx context.Context, id ItemID, location Location, delta int) (Item, error) {
	return s.rewriteQuantity(ctx, opAdjustQuantity, ChangeOpAdjust, id, func(item *Item) {
		item.Quantities.Adjust(location, delta)
	})
}

// SetQuantity stores a raw user-supplied count at one location. Unparsable or
// negative input coerces to zero.
func (s *Service) SetQuantity(ctx context.Context, id ItemID, location Location, rawValue string) (Item, error) {
	value := ParseQuantity(rawValue)
	return s.rewriteQuantity(ctx, opSetQuantity, ChangeOpSet, id, func(item *Item) {
		item.Quantities.Set(location, value)
	})
}

func (s *Service) rewriteQuantity(ctx context.Context, operation string, op ChangeOp, id ItemID, mutate func(*Item)) (Item, error) {
	var updated Item
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.takeForUpdate(tx, id)
		if err != nil {
			return err
		}
		mutate(&existing)
		existing.LastEdited = Today(s.clock).String()
		if err := tx.Save(&existing).Error; err != nil {
			return newServiceError(operation, "save_failed", err)
		}
		if err := s.appendChange(tx, op, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if txErr != nil {
		s.logError(operation, "transaction_failed", txErr, zap.String("item_id", id.String()))
		return Item{}, txErr
	}
	return updated, nil
}

func (s *Service) takeForUpdate(tx *gorm.DB, id ItemID) (Item, error) {
	var existing Item
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("item_id = ?", id.String()).
		Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id.String())
	}
	if err != nil {
		return Item{}, err
	}
	return existing, nil
}

func (s *Service) appendChange(tx *gorm.DB, op ChangeOp, item Item) error {
	changeID, err := s.changeIDs.NewID()
	if err != nil {
		return newServiceError(string(op), "change_id_failed", err)
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return newServiceError(string(op), "payload_marshal_failed", err)
	}
	change := ItemChange{
		ChangeID:         changeID,
		ItemID:           item.ItemID,
		Op:               op,
		AppliedAtSeconds: s.clock().UTC().Unix(),
		PayloadJSON:      string(payload),
	}
	if err := tx.Create(&change).Error; err != nil {
		return newServiceError(string(op), "audit_insert_failed", err)
	}
	return nil
}

func (s *Service) materialize(key string, draft ItemDraft) Item {
	return Item{
		ItemID:     key,
		Name:       draft.Name,
		Category:   draft.Category,
		Quantities: draft.Quantities,
		Note:       draft.Note,
		LastEdited: Today(s.clock).String(),
	}
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("inventory service error", attrs...)
}
