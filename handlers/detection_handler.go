package handlers

import (
	"errors"
	"net/http"
	"time"

	"parking-violation-monitor/be/database"
	"parking-violation-monitor/be/models"
	"parking-violation-monitor/be/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DetectionHandler exposes the producer side used by the video detection
// pipeline. It is only routed when ingest is enabled.
type DetectionHandler struct {
	detectionService *services.DetectionService
	log              *zap.Logger
}

func NewDetectionHandler(detectionService *services.DetectionService, log *zap.Logger) *DetectionHandler {
	return &DetectionHandler{
		detectionService: detectionService,
		log:              log,
	}
}

type RecordViolationRequest struct {
	LocationID      *string    `json:"location_id"`
	VehicleID       *int       `json:"vehicle_id"`
	DetectedAt      *time.Time `json:"detected_at"`
	DurationSeconds *float64   `json:"duration_seconds"`
	ConfidenceScore *float64   `json:"confidence_score" binding:"required"`
	ImagePath       *string    `json:"image_path"`
	VideoPath       *string    `json:"video_path"`
}

type SetMonitoringRequest struct {
	IsMonitoring *bool `json:"is_monitoring" binding:"required"`
}

func (h *DetectionHandler) RecordViolation(c *gin.Context) {
	var req RecordViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	violation := models.Violation{
		LocationID:      req.LocationID,
		VehicleID:       req.VehicleID,
		DurationSeconds: req.DurationSeconds,
		ConfidenceScore: req.ConfidenceScore,
		ImagePath:       req.ImagePath,
		VideoPath:       req.VideoPath,
	}
	if req.DetectedAt != nil {
		violation.DetectedAt = req.DetectedAt.UTC()
	}

	if err := h.detectionService.RecordViolation(c.Request.Context(), &violation); err != nil {
		switch {
		case errors.Is(err, services.ErrBelowThreshold):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Location not found"})
		default:
			h.log.Error("failed to record violation", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record violation"})
		}
		return
	}

	c.JSON(http.StatusCreated, violation)
}

func (h *DetectionHandler) SetMonitoring(c *gin.Context) {
	id := c.Param("id")

	var req SetMonitoringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	location, err := h.detectionService.SetMonitoring(c.Request.Context(), id, *req.IsMonitoring)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrStreamCapacity):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Location not found"})
		default:
			h.log.Error("failed to set monitoring", zap.String("location_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update monitoring"})
		}
		return
	}

	c.JSON(http.StatusOK, location)
}

func (h *DetectionHandler) GetConfig(c *gin.Context) {
	cfg := h.detectionService.Config()
	c.JSON(http.StatusOK, gin.H{
		"model_path":           cfg.ModelPath,
		"confidence_threshold": cfg.ConfidenceThreshold,
		"max_video_streams":    cfg.MaxVideoStreams,
		"frame_rate":           cfg.FrameRate,
	})
}
