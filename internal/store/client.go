package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/homestock/internal/inventory"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultRequestTimeout   = 15 * time.Second
	defaultHandshakeTimeout = 15 * time.Second
)

var (
	// ErrSessionNotReady indicates an operation was attempted before the
	// anonymous session was established.
	ErrSessionNotReady = errors.New("store: session not established")
	// ErrRequestFailed wraps non-2xx responses from the store API.
	ErrRequestFailed = errors.New("store: request failed")
)

// Client talks to the homestock store API over HTTP and subscribes to the
// snapshot stream over a websocket. It implements Adapter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *zap.Logger

	mu    sync.RWMutex
	token string
}

// NewClient constructs a store client for the given base URL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		logger: logger,
	}
}

// EstablishSession performs anonymous sign-in. Every other operation fails
// with ErrSessionNotReady until this succeeds.
func (c *Client) EstablishSession(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/anonymous", http.NoBody)
	if err != nil {
		return err
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: anonymous auth returned %d", ErrRequestFailed, response.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if payload.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrRequestFailed)
	}

	c.mu.Lock()
	c.token = payload.AccessToken
	c.mu.Unlock()

	c.logger.Info("anonymous session established")
	return nil
}

// SessionReady reports whether anonymous sign-in has completed.
func (c *Client) SessionReady() bool {
	return c.sessionToken() != ""
}

// Subscribe dials the snapshot stream and invokes onSnapshot for every
// delivered collection state. It blocks until the context is cancelled or
// the stream fails; stream failure is terminal, there is no redial.
func (c *Client) Subscribe(ctx context.Context, onSnapshot func(map[string]inventory.Item)) error {
	token := c.sessionToken()
	if token == "" {
		return ErrSessionNotReady
	}

	streamURL, err := c.streamURL(token)
	if err != nil {
		return err
	}

	conn, response, err := c.dialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		if response != nil {
			return fmt.Errorf("%w: stream dial returned %d", ErrRequestFailed, response.StatusCode)
		}
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var snapshot map[string]inventory.Item
		if err := conn.ReadJSON(&snapshot); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
		if snapshot == nil {
			snapshot = map[string]inventory.Item{}
		}
		onSnapshot(snapshot)
	}
}

// Write performs a full-record upsert at an existing key.
func (c *Client) Write(ctx context.Context, id string, draft inventory.ItemDraft) error {
	return c.do(ctx, http.MethodPut, "/items/"+url.PathEscape(id), draft)
}

// CreateWithGeneratedKey inserts a record under a store-chosen key.
func (c *Client) CreateWithGeneratedKey(ctx context.Context, draft inventory.ItemDraft) error {
	return c.do(ctx, http.MethodPost, "/items", draft)
}

// Delete removes the record at the given key.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/items/"+url.PathEscape(id), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any) error {
	token := c.sessionToken()
	if token == "" {
		return ErrSessionNotReady
	}

	var requestBody io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		requestBody = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, requestBody)
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s %s returned %d", ErrRequestFailed, method, path, response.StatusCode)
	}
	return nil
}

func (c *Client) sessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) streamURL(token string) (string, error) {
	parsed, err := url.Parse(c.baseURL + "/items/stream")
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	}
	query := parsed.Query()
	query.Set("access_token", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
