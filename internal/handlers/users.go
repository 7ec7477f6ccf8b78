package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portal-service/internal/apperr"
	"portal-service/internal/policy"
	"portal-service/internal/repositories"
)

// UserHandler serves user profiles.
type UserHandler struct {
	users repositories.UserRepository
}

func NewUserHandler(users repositories.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// GetProfile returns the profile of the named user.
func (h *UserHandler) GetProfile(c *gin.Context) {
	viewer, ok := currentUser(c)
	if !ok {
		return
	}

	target, err := h.users.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if errors.Is(err, repositories.ErrUserNotFound) {
		respondError(c, apperr.NotFound("User not found"))
		return
	}
	if err != nil {
		respondError(c, apperr.Persistence(err))
		return
	}
	if d := policy.CanViewProfile(viewer, target); !d.Allowed {
		respondError(c, apperr.Forbidden(d.Reason))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": target})
}
