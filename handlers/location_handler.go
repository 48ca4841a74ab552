package handlers

import (
	"context"
	"errors"
	"net/http"

	"parking-violation-monitor/be/database"
	"parking-violation-monitor/be/models"
	"parking-violation-monitor/be/realtime"
	"parking-violation-monitor/be/services"
	"parking-violation-monitor/be/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LocationStore interface {
	ListLocations(ctx context.Context) ([]models.Location, error)
	CreateLocation(ctx context.Context, location *models.Location) error
	UpdateLocation(ctx context.Context, id string, changes database.LocationChanges) (*models.Location, error)
	DeleteLocation(ctx context.Context, id string) error
}

type LocationHandler struct {
	store     LocationStore
	publisher realtime.Publisher
	log       *zap.Logger
}

func NewLocationHandler(store LocationStore, publisher realtime.Publisher, log *zap.Logger) *LocationHandler {
	return &LocationHandler{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// CreateLocationRequest has no status fields: new locations always start inactive.
type CreateLocationRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	VideoSource *string `json:"video_source"`
}

// UpdateLocationRequest tells an absent key from an explicit null, which clears the column.
type UpdateLocationRequest struct {
	Name        utils.Optional[string] `json:"name"`
	Description utils.Optional[string] `json:"description"`
	VideoSource utils.Optional[string] `json:"video_source"`
	Status      utils.Optional[string] `json:"status"`
}

func (h *LocationHandler) GetLocations(c *gin.Context) {
	locations, err := h.store.ListLocations(c.Request.Context())
	if err != nil {
		h.log.Error("failed to list locations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch locations"})
		return
	}

	c.JSON(http.StatusOK, locations)
}

func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	location := models.Location{
		Name:        req.Name,
		Description: req.Description,
		VideoSource: req.VideoSource,
	}

	if err := h.store.CreateLocation(c.Request.Context(), &location); err != nil {
		h.log.Error("failed to create location", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create location"})
		return
	}

	h.log.Info("location created", zap.String("location_id", location.ID), zap.String("name", location.Name))
	c.JSON(http.StatusCreated, location)
}

func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	id := c.Param("id")

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	location, err := h.store.UpdateLocation(c.Request.Context(), id, database.LocationChanges{
		Name:        req.Name,
		Description: req.Description,
		VideoSource: req.VideoSource,
		Status:      req.Status,
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Location not found"})
			return
		}
		h.log.Error("failed to update location", zap.String("location_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update location"})
		return
	}

	if req.Status.Set {
		h.publisher.Publish(realtime.EventLocationStatus, services.LocationStatusEvent(location))
	}

	c.JSON(http.StatusOK, location)
}

func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	id := c.Param("id")

	if err := h.store.DeleteLocation(c.Request.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Location not found"})
			return
		}
		h.log.Error("failed to delete location", zap.String("location_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete location"})
		return
	}

	h.log.Info("location deleted", zap.String("location_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Location deleted successfully"})
}
