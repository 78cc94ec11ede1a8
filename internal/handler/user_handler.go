package handler

import (
	"errors"
	"net/http"
	"strings"

	"primetask/internal/middleware"
	"primetask/internal/model"
	"primetask/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserHandler struct {
	users repository.UserRepositoryInterface
	tasks repository.TaskRepositoryInterface
}

func NewUserHandler(users repository.UserRepositoryInterface, tasks repository.TaskRepositoryInterface) *UserHandler {
	return &UserHandler{users: users, tasks: tasks}
}

type UpdateProfileRequest struct {
	Username  *string `json:"username" binding:"omitempty,alphanum,min=3,max=30"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type AdminUserUpdateRequest struct {
	Username  *string `json:"username" binding:"omitempty,alphanum,min=3,max=30"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *string `json:"role"`
	IsActive  *bool   `json:"is_active"`
}

// AdminUserResponse extends the public user shape with the task count
// shown in the admin listing.
type AdminUserResponse struct {
	UserResponse
	TasksCount int64 `json:"tasks_count"`
}

// Profile returns the authenticated user's own record.
func (h *UserHandler) Profile(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve profile")
		return
	}
	if user == nil {
		fail(c, http.StatusNotFound, "User not found")
		return
	}

	respond(c, http.StatusOK, "", newUserResponse(user))
}

// UpdateProfile changes username and names. Email and role are immutable
// here; role only moves through the admin update path.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failFields(c, http.StatusBadRequest, "Profile update failed", bindingErrors(err))
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve profile")
		return
	}
	if user == nil {
		fail(c, http.StatusNotFound, "User not found")
		return
	}

	if req.Username != nil {
		username := strings.ToLower(*req.Username)
		if username != user.Username {
			taken, err := h.users.FindByUsername(c.Request.Context(), username)
			if err != nil {
				fail(c, http.StatusInternalServerError, "Failed to check username")
				return
			}
			if taken != nil {
				failFields(c, http.StatusBadRequest, "Profile update failed",
					fieldError("username", "A user with this username already exists."))
				return
			}
			user.Username = username
		}
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}

	if err := h.users.Update(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			failFields(c, http.StatusBadRequest, "Profile update failed",
				fieldError("username", "A user with this username already exists."))
			return
		}
		fail(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	respond(c, http.StatusOK, "Profile updated successfully", newUserResponse(user))
}

// ChangePassword verifies the old password before setting the new one.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failFields(c, http.StatusBadRequest, "Password change failed", bindingErrors(err))
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}
	if user == nil {
		fail(c, http.StatusNotFound, "User not found")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.OldPassword)) != nil {
		failFields(c, http.StatusBadRequest, "Password change failed",
			fieldError("old_password", "Old password is incorrect."))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	user.HashedPassword = string(hash)

	if err := h.users.Update(c.Request.Context(), user); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to change password")
		return
	}

	respond(c, http.StatusOK, "Password changed successfully", nil)
}

// AdminListUsers returns all users with their task counts. Admin only,
// enforced by the RequireAdmin middleware on the route group.
func (h *UserHandler) AdminListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}

	counts, err := h.tasks.CountByOwner(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve task counts")
		return
	}

	out := make([]AdminUserResponse, 0, len(users))
	for i := range users {
		out = append(out, AdminUserResponse{
			UserResponse: newUserResponse(&users[i]),
			TasksCount:   counts[users[i].ID],
		})
	}

	respond(c, http.StatusOK, "", out)
}

// AdminGetUser returns a single user by id. Admin only.
func (h *UserHandler) AdminGetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}
	if user == nil {
		fail(c, http.StatusNotFound, "User not found")
		return
	}

	respond(c, http.StatusOK, "", newUserResponse(user))
}

// AdminUpdateUser may change role and active flag on top of the profile
// fields. This is the only path where a role can change.
func (h *UserHandler) AdminUpdateUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var req AdminUserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failFields(c, http.StatusBadRequest, "User update failed", bindingErrors(err))
		return
	}

	if req.Role != nil && !model.Role(*req.Role).Valid() {
		failFields(c, http.StatusBadRequest, "User update failed",
			fieldError("role", "Must be one of: user, admin."))
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}
	if user == nil {
		fail(c, http.StatusNotFound, "User not found")
		return
	}

	if req.Username != nil {
		username := strings.ToLower(*req.Username)
		if username != user.Username {
			taken, err := h.users.FindByUsername(c.Request.Context(), username)
			if err != nil {
				fail(c, http.StatusInternalServerError, "Failed to check username")
				return
			}
			if taken != nil {
				failFields(c, http.StatusBadRequest, "User update failed",
					fieldError("username", "A user with this username already exists."))
				return
			}
			user.Username = username
		}
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Role != nil {
		user.Role = model.Role(*req.Role)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := h.users.Update(c.Request.Context(), user); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to update user")
		return
	}

	respond(c, http.StatusOK, "User updated successfully", newUserResponse(user))
}

// AdminDeleteUser removes a user and, via the FK cascade, all their
// tasks. Admins cannot delete their own account.
func (h *UserHandler) AdminDeleteUser(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	if id == claims.UserID {
		fail(c, http.StatusBadRequest, "You cannot delete your own account")
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			fail(c, http.StatusNotFound, "User not found")
			return
		}
		fail(c, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	c.Status(http.StatusNoContent)
}
