package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/homestock/internal/inventory"
	"github.com/MarcoPoloResearchLab/homestock/internal/view"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionSubjectContextKey = "homestock_session_subject"

var (
	errMissingSessionManager   = errors.New("session manager dependency required")
	errMissingInventoryService = errors.New("inventory service dependency required")
	errMissingDispatcher       = errors.New("snapshot dispatcher dependency required")
	errInvalidAuthorization    = errors.New("authorization header missing or invalid")
)

// SessionManager issues and validates anonymous session tokens.
type SessionManager interface {
	IssueSession(ctx context.Context) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies wires the HTTP surface to its collaborators.
type Dependencies struct {
	Sessions  SessionManager
	Inventory *inventory.Service
	Realtime  *SnapshotDispatcher
	Logger    *zap.Logger
}

// NewHTTPHandler builds the gin router for the store API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Sessions == nil {
		return nil, errMissingSessionManager
	}
	if deps.Inventory == nil {
		return nil, errMissingInventoryService
	}
	if deps.Realtime == nil {
		return nil, errMissingDispatcher
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		sessions:  deps.Sessions,
		inventory: deps.Inventory,
		realtime:  deps.Realtime,
		logger:    logger,
	}

	router.GET("/", handler.handleHomePage)
	router.POST("/auth/anonymous", handler.handleAnonymousAuth)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/items", handler.handleItemsSnapshot)
	protected.POST("/items", handler.handleItemCreate)
	protected.PUT("/items/:id", handler.handleItemReplace)
	protected.DELETE("/items/:id", handler.handleItemDelete)
	protected.POST("/items/:id/quantity", handler.handleItemQuantity)
	protected.GET("/items/stream", handler.handleItemsStream)

	return router, nil
}

type httpHandler struct {
	sessions  SessionManager
	inventory *inventory.Service
	realtime  *SnapshotDispatcher
	logger    *zap.Logger
}

type authResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleAnonymousAuth(c *gin.Context) {
	token, expiresIn, err := h.sessions.IssueSession(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to issue anonymous session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

func (h *httpHandler) handleItemsSnapshot(c *gin.Context) {
	snapshot, err := h.inventory.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to read snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "snapshot_failed"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

type itemResponsePayload struct {
	ID   string         `json:"id"`
	Item inventory.Item `json:"item"`
}

func (h *httpHandler) handleItemCreate(c *gin.Context) {
	var draft inventory.ItemDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	item, err := h.inventory.Create(c.Request.Context(), draft)
	if err != nil {
		h.respondMutationError(c, "create", err)
		return
	}

	h.publishSnapshot(c.Request.Context())
	c.JSON(http.StatusCreated, itemResponsePayload{ID: item.ItemID, Item: item})
}

func (h *httpHandler) handleItemReplace(c *gin.Context) {
	id, err := inventory.NewItemID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_item_id"})
		return
	}

	var draft inventory.ItemDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	item, err := h.inventory.Replace(c.Request.Context(), id, draft)
	if err != nil {
		h.respondMutationError(c, "replace", err)
		return
	}

	h.publishSnapshot(c.Request.Context())
	c.JSON(http.StatusOK, itemResponsePayload{ID: item.ItemID, Item: item})
}

func (h *httpHandler) handleItemDelete(c *gin.Context) {
	id, err := inventory.NewItemID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_item_id"})
		return
	}

	if err := h.inventory.Delete(c.Request.Context(), id); err != nil {
		h.respondMutationError(c, "delete", err)
		return
	}

	h.publishSnapshot(c.Request.Context())
	c.Status(http.StatusNoContent)
}

type quantityRequestPayload struct {
	Location string  `json:"location"`
	Delta    *int    `json:"delta,omitempty"`
	Value    *string `json:"value,omitempty"`
}

func (h *httpHandler) handleItemQuantity(c *gin.Context) {
	id, err := inventory.NewItemID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_item_id"})
		return
	}

	var request quantityRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if (request.Delta == nil) == (request.Value == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	location, err := inventory.ParseLocation(request.Location)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_location"})
		return
	}

	var item inventory.Item
	if request.Delta != nil {
		item, err = h.inventory.AdjustQuantity(c.Request.Context(), id, location, *request.Delta)
	} else {
		item, err = h.inventory.SetQuantity(c.Request.Context(), id, location, *request.Value)
	}
	if err != nil {
		h.respondMutationError(c, "quantity", err)
		return
	}

	h.publishSnapshot(c.Request.Context())
	c.JSON(http.StatusOK, itemResponsePayload{ID: item.ItemID, Item: item})
}

// handleHomePage serves a read-only rendering of the collection for browsers
// hitting the service directly.
func (h *httpHandler) handleHomePage(c *gin.Context) {
	snapshot, err := h.inventory.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to render home page", zap.Error(err))
		c.String(http.StatusInternalServerError, "snapshot unavailable")
		return
	}

	entries := view.Project(snapshot, "", "", view.SortUnordered)
	frame := view.Render(entries, false)
	markup, err := view.RenderHTML(frame)
	if err != nil {
		h.logger.Error("failed to render item cards", zap.Error(err))
		c.String(http.StatusInternalServerError, "render failed")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(homePageHeader+markup+homePageFooter))
}

func (h *httpHandler) respondMutationError(c *gin.Context, operation string, err error) {
	if errors.Is(err, inventory.ErrItemNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "item_not_found"})
		return
	}
	if errors.Is(err, inventory.ErrEmptyName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	h.logger.Error("item mutation failed", zap.String("operation", operation), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "mutation_failed"})
}

func (h *httpHandler) publishSnapshot(ctx context.Context) {
	snapshot, err := h.inventory.Snapshot(ctx)
	if err != nil {
		h.logger.Error("snapshot publish failed", zap.Error(err))
		return
	}
	h.realtime.Publish(Snapshot(snapshot))
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		// Websocket handshakes cannot set headers from a browser, so the
		// stream route accepts the token as a query parameter.
		token = strings.TrimSpace(c.Query("access_token"))
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.sessions.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(sessionSubjectContextKey, subject)
	c.Next()
}

func bearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

const homePageHeader = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Homestock</title>
</head>
<body>
<h1>Household Inventory</h1>
<div class="item-grid">
`

const homePageFooter = `
</div>
</body>
</html>
`
