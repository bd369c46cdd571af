package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/homestock/internal/inventory"
	"github.com/gorilla/websocket"
)

// stubStoreAPI fakes the store endpoints the client talks to: anonymous auth,
// the item mutations, and the websocket snapshot stream.
type stubStoreAPI struct {
	mu       sync.Mutex
	requests []string

	upgrader  websocket.Upgrader
	snapshots chan map[string]inventory.Item
}

func newStubStoreAPI() *stubStoreAPI {
	return &stubStoreAPI{
		snapshots: make(chan map[string]inventory.Item, 8),
	}
}

func (s *stubStoreAPI) record(r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path+" auth="+r.Header.Get("Authorization"))
	s.mu.Unlock()
}

func (s *stubStoreAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/anonymous", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "stub-token",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	})
	mux.HandleFunc("/items/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "stub-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Detect the client hanging up so the handler never blocks on the
		// snapshot channel after a test finished.
		hangup := make(chan struct{})
		go func() {
			defer close(hangup)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-hangup:
				return
			case snapshot, ok := <-s.snapshots:
				if !ok {
					return
				}
				if err := conn.WriteJSON(snapshot); err != nil {
					return
				}
			}
		}
	})
	mux.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/items/", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *stubStoreAPI) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func newStubClient(t *testing.T) (*Client, *stubStoreAPI) {
	t.Helper()
	stub := newStubStoreAPI()
	testServer := httptest.NewServer(stub.handler())
	t.Cleanup(testServer.Close)
	return NewClient(testServer.URL, nil), stub
}

func TestClientOperationsRequireSession(t *testing.T) {
	client, _ := newStubClient(t)

	if client.SessionReady() {
		t.Fatal("expected session not ready before sign-in")
	}
	if err := client.Write(context.Background(), "item-1", inventory.ItemDraft{Name: "x"}); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("expected ErrSessionNotReady from write, got %v", err)
	}
	if err := client.Subscribe(context.Background(), func(map[string]inventory.Item) {}); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("expected ErrSessionNotReady from subscribe, got %v", err)
	}
}

func TestClientEstablishSession(t *testing.T) {
	client, _ := newStubClient(t)

	if err := client.EstablishSession(context.Background()); err != nil {
		t.Fatalf("unexpected session error: %v", err)
	}
	if !client.SessionReady() {
		t.Fatal("expected session ready after sign-in")
	}
}

func TestClientMutationsCarryBearerToken(t *testing.T) {
	client, stub := newStubClient(t)
	if err := client.EstablishSession(context.Background()); err != nil {
		t.Fatalf("unexpected session error: %v", err)
	}

	if err := client.CreateWithGeneratedKey(context.Background(), inventory.ItemDraft{Name: "Rice"}); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if err := client.Write(context.Background(), "item-1", inventory.ItemDraft{Name: "Rice"}); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := client.Delete(context.Background(), "item-1"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	expected := []string{
		"POST /items auth=Bearer stub-token",
		"PUT /items/item-1 auth=Bearer stub-token",
		"DELETE /items/item-1 auth=Bearer stub-token",
	}
	recorded := stub.recorded()
	// First recorded request is the auth call itself.
	if len(recorded) != len(expected)+1 {
		t.Fatalf("expected %d requests, got %v", len(expected)+1, recorded)
	}
	for index, want := range expected {
		if recorded[index+1] != want {
			t.Fatalf("expected request %q, got %q", want, recorded[index+1])
		}
	}
}

func TestClientSurfacesErrorStatuses(t *testing.T) {
	client, _ := newStubClient(t)
	if err := client.EstablishSession(context.Background()); err != nil {
		t.Fatalf("unexpected session error: %v", err)
	}

	err := client.Delete(context.Background(), "missing")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed for 404, got %v", err)
	}
}

func TestClientSubscribeDeliversSnapshots(t *testing.T) {
	client, stub := newStubClient(t)
	if err := client.EstablishSession(context.Background()); err != nil {
		t.Fatalf("unexpected session error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan map[string]inventory.Item, 8)
	subscribeErr := make(chan error, 1)
	go func() {
		subscribeErr <- client.Subscribe(ctx, func(snapshot map[string]inventory.Item) {
			received <- snapshot
		})
	}()

	stub.snapshots <- map[string]inventory.Item{
		"item-1": {Name: "Soy Sauce", Quantities: inventory.Quantities{Basement: 2}},
	}
	select {
	case snapshot := <-received:
		if snapshot["item-1"].Name != "Soy Sauce" {
			t.Fatalf("unexpected snapshot %+v", snapshot)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot")
	}

	// A nil payload on the wire means the collection is gone; the callback
	// still receives a usable empty map.
	stub.snapshots <- nil
	select {
	case snapshot := <-received:
		if snapshot == nil || len(snapshot) != 0 {
			t.Fatalf("expected empty non-nil snapshot, got %+v", snapshot)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the empty snapshot")
	}

	cancel()
	select {
	case err := <-subscribeErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected subscribe to return after cancellation")
	}
}

func TestClientSubscribeStreamFailureIsTerminal(t *testing.T) {
	client, stub := newStubClient(t)
	if err := client.EstablishSession(context.Background()); err != nil {
		t.Fatalf("unexpected session error: %v", err)
	}

	subscribeErr := make(chan error, 1)
	go func() {
		subscribeErr <- client.Subscribe(context.Background(), func(map[string]inventory.Item) {})
	}()

	// Closing the snapshot channel makes the stub hang up the websocket.
	close(stub.snapshots)

	select {
	case err := <-subscribeErr:
		if !errors.Is(err, ErrRequestFailed) {
			t.Fatalf("expected terminal stream error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected subscribe to return after the stream closed")
	}
}
