package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pharmacy-intelligence-service/internal/models"
	"pharmacy-intelligence-service/internal/services"
)

// ConnectorHandler handles connector registry and sync endpoints
type ConnectorHandler struct {
	connectorService *services.ConnectorService
	syncService      *services.SyncService
}

// NewConnectorHandler creates a new connector handler
func NewConnectorHandler(connectorService *services.ConnectorService, syncService *services.SyncService) *ConnectorHandler {
	return &ConnectorHandler{
		connectorService: connectorService,
		syncService:      syncService,
	}
}

// CreateConnector registers a connector for a retailer
func (h *ConnectorHandler) CreateConnector(c *gin.Context) {
	retailerID, ok := parseUUIDParam(c, "retailerId")
	if !ok {
		return
	}

	var req services.CreateConnectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	connector, err := h.connectorService.CreateConnector(c.Request.Context(), retailerID, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": connector})
}

// ListConnectors returns all connectors for a retailer
func (h *ConnectorHandler) ListConnectors(c *gin.Context) {
	retailerID, ok := parseUUIDParam(c, "retailerId")
	if !ok {
		return
	}

	connectors, err := h.connectorService.ListConnectors(c.Request.Context(), retailerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": connectors})
}

// ListBlueprints returns the built-in connector templates
func (h *ConnectorHandler) ListBlueprints(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.connectorService.Blueprints()})
}

// SyncConnector accepts pre-normalized records and runs a sync
func (h *ConnectorHandler) SyncConnector(c *gin.Context) {
	retailerID, ok := parseUUIDParam(c, "retailerId")
	if !ok {
		return
	}
	connectorID, ok := parseUUIDParam(c, "connectorId")
	if !ok {
		return
	}

	var req struct {
		Records []models.SyncRecord `json:"records" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.syncService.SyncConnector(c.Request.Context(), retailerID, connectorID, req.Records)
	if err != nil {
		respondSyncError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// SyncRawConnector accepts raw source rows, maps them through the
// connector's field map, and runs a sync
func (h *ConnectorHandler) SyncRawConnector(c *gin.Context) {
	retailerID, ok := parseUUIDParam(c, "retailerId")
	if !ok {
		return
	}
	connectorID, ok := parseUUIDParam(c, "connectorId")
	if !ok {
		return
	}

	var req struct {
		Rows []models.RawRow `json:"rows" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.syncService.SyncRawConnector(c.Request.Context(), retailerID, connectorID, req.Rows)
	if err != nil {
		respondSyncError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// ListRuns returns recent sync runs for a connector
func (h *ConnectorHandler) ListRuns(c *gin.Context) {
	retailerID, ok := parseUUIDParam(c, "retailerId")
	if !ok {
		return
	}
	connectorID, ok := parseUUIDParam(c, "connectorId")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	runs, err := h.connectorService.GetConnectorRuns(c.Request.Context(), retailerID, connectorID, limit)
	if err != nil {
		respondSyncError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs})
}

func respondSyncError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrConnectorNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "connector not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
