package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"parking-violation-monitor/be/config"
	"parking-violation-monitor/be/database"
	"parking-violation-monitor/be/models"
	"parking-violation-monitor/be/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type OperatorStore interface {
	FindOperatorByEmail(ctx context.Context, email string) (*models.Operator, error)
	GetOperator(ctx context.Context, id uint) (*models.Operator, error)
}

type AuthHandler struct {
	store     OperatorStore
	jwtConfig config.JWTConfig
	log       *zap.Logger
}

func NewAuthHandler(store OperatorStore, jwtConfig config.JWTConfig, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		store:     store,
		jwtConfig: jwtConfig,
		log:       log,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string           `json:"token"`
	Operator OperatorResponse `json:"operator"`
}

type OperatorResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func newOperatorResponse(operator *models.Operator) OperatorResponse {
	return OperatorResponse{
		ID:    operator.ID,
		Email: operator.Email,
		Name:  operator.Name,
		Role:  operator.Role,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	operator, err := h.store.FindOperatorByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		h.log.Error("failed to look up operator", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if !utils.CheckPassword(operator.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"operator_id": operator.ID,
		"email":       operator.Email,
		"role":        operator.Role,
		"exp":         time.Now().Add(h.jwtConfig.TokenTTL()).Unix(),
	})

	tokenString, err := token.SignedString([]byte(h.jwtConfig.Secret))
	if err != nil {
		h.log.Error("failed to sign token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	h.log.Info("operator logged in", zap.Uint("operator_id", operator.ID))
	c.JSON(http.StatusOK, LoginResponse{
		Token:    tokenString,
		Operator: newOperatorResponse(operator),
	})
}

func (h *AuthHandler) GetMe(c *gin.Context) {
	operatorID := c.GetUint("operator_id")
	if operatorID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	operator, err := h.store.GetOperator(c.Request.Context(), operatorID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Operator not found"})
		return
	}

	c.JSON(http.StatusOK, newOperatorResponse(operator))
}
