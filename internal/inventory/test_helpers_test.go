package inventory

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func mustItemID(t *testing.T, value string) ItemID {
	t.Helper()
	id, err := NewItemID(value)
	if err != nil {
		t.Fatalf("unexpected item id error: %v", err)
	}
	return id
}

func mustLocation(t *testing.T, value string) Location {
	t.Helper()
	location, err := ParseLocation(value)
	if err != nil {
		t.Fatalf("unexpected location error: %v", err)
	}
	return location
}

func fixedClock(value time.Time) func() time.Time {
	return func() time.Time { return value }
}

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to unwrap database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Item{}, &ItemChange{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, clock func() time.Time) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Database: db,
		Clock:    clock,
		Keys:     NewULIDKeyProvider(clock),
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}
