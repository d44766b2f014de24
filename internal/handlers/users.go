package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"reclaim/internal/models"
	"reclaim/internal/repositories"
)

// UserProvisioner creates accounts together with their profile.
type UserProvisioner interface {
	ProvisionUser(ctx context.Context, in models.NewUser) (models.UserWithProfile, error)
}

// UserHandler exposes account provisioning to the auth gateway.
type UserHandler struct {
	users UserProvisioner
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users UserProvisioner) *UserHandler {
	return &UserHandler{users: users}
}

// ProvisionUser creates a user and its profile in one step and returns both.
func (h *UserHandler) ProvisionUser(c *gin.Context) {
	var req models.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Username) == "" || !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and a valid email are required"})
		return
	}

	out, err := h.users.ProvisionUser(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, repositories.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		log.Printf("provision user failed request_id=%s: %v", requestIDFromContext(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	c.JSON(http.StatusCreated, out)
}
