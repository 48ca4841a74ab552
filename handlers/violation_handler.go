package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"parking-violation-monitor/be/database"
	"parking-violation-monitor/be/models"
	"parking-violation-monitor/be/realtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ViolationStore interface {
	ListViolations(ctx context.Context) ([]models.Violation, error)
	AcknowledgeViolation(ctx context.Context, id uint, at time.Time) (*models.Violation, error)
}

type ViolationHandler struct {
	store     ViolationStore
	publisher realtime.Publisher
	log       *zap.Logger
}

func NewViolationHandler(store ViolationStore, publisher realtime.Publisher, log *zap.Logger) *ViolationHandler {
	return &ViolationHandler{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

func (h *ViolationHandler) GetViolations(c *gin.Context) {
	violations, err := h.store.ListViolations(c.Request.Context())
	if err != nil {
		h.log.Error("failed to list violations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch violations"})
		return
	}

	c.JSON(http.StatusOK, violations)
}

// AcknowledgeViolation marks a violation as reviewed. Re-acknowledging is
// accepted and moves acknowledged_at forward.
func (h *ViolationHandler) AcknowledgeViolation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Violation not found"})
		return
	}

	violation, err := h.store.AcknowledgeViolation(c.Request.Context(), uint(id), time.Now().UTC())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Violation not found"})
			return
		}
		h.log.Error("failed to acknowledge violation", zap.Uint64("violation_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to acknowledge violation"})
		return
	}

	h.log.Info("violation acknowledged", zap.Uint64("violation_id", id))
	h.publisher.Publish(realtime.EventViolationAcknowledged, violation)
	c.JSON(http.StatusOK, violation)
}
