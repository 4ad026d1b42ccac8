package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers contains the operator-auth HTTP handlers.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// Login authenticates the operator and returns an access token.
// POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "VALIDATION_ERROR",
			"message": err.Error(),
		})
		return
	}

	resp, err := h.service.Login(req)
	if err != nil {
		authErr, ok := err.(AuthError)
		if !ok {
			authErr = ErrInvalidCredentials
		}
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   authErr.Code,
			"message": authErr.Message,
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes attaches the auth endpoints to a route group.
func (h *Handlers) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/login", h.Login)
}
