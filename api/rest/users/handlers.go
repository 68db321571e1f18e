package users

import (
	stderrors "errors"
	"net/http"

	"codeberg.org/federate/server/federate/users"
	"codeberg.org/federate/server/internal/auth"
	"codeberg.org/federate/server/internal/errors"
	"github.com/gin-gonic/gin"
)

// GetProfileHandler godoc
// @Summary Get current user
// @Description Returns the authenticated user's record without the password hash
// @Tags users
// @Produce json
// @Success 200 {object} users.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/profile [get]
// @Security BearerAuth
func GetProfileHandler(svc ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		user, err := svc.Profile(c.Request.Context(), userID)
		if err != nil {
			if stderrors.Is(err, users.ErrNotFound) {
				errors.NotFound(c, "user")
				return
			}

			errors.InternalError(c, "failed to fetch profile", err)
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

// UpdateProfileHandler godoc
// @Summary Update user profile
// @Description Update the authenticated user's display name and email; empty fields are left as they are
// @Tags users
// @Accept json
// @Produce json
// @Param request body users.UpdateProfileRequest true "Profile update"
// @Success 200 {object} users.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/me [put]
// @Security BearerAuth
func UpdateProfileHandler(svc ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		var req users.UpdateProfileRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		user, err := svc.UpdateProfile(c.Request.Context(), userID, req)
		if err != nil {
			switch {
			case stderrors.Is(err, users.ErrNotFound):
				errors.BadRequest(c, "User not found", nil)
			case stderrors.Is(err, users.ErrDuplicateEmail):
				errors.Conflict(c, "Email already in use")
			default:
				errors.InternalError(c, "failed to update profile", err)
			}

			return
		}

		c.JSON(http.StatusOK, user)
	}
}
