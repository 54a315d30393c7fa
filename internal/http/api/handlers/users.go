package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/abigailajohn/VVMA/internal/groups"
	"github.com/abigailajohn/VVMA/internal/models"
	"github.com/abigailajohn/VVMA/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserHandler manages user profile endpoints.
type UserHandler struct {
	db     *gorm.DB
	engine *groups.Engine
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, engine *groups.Engine) *UserHandler {
	return &UserHandler{db: db, engine: engine}
}

// Me returns the authenticated user's profile with their memberships.
func (h *UserHandler) Me(c *gin.Context) {
	h.profile(c, CurrentUserID(c))
}

// Get returns a user profile by ID.
func (h *UserHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	h.profile(c, id)
}

func (h *UserHandler) profile(c *gin.Context, id uint64) {
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		respondError(c, errFind)
		return
	}
	memberships, errGroups := h.engine.GroupsForUser(c.Request.Context(), id)
	if errGroups != nil {
		respondError(c, errGroups)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"role":       user.Role,
		"bio":        user.Bio,
		"created_at": user.CreatedAt,
		"groups":     memberships,
	})
}

// updateUserRequest defines the allow-listed updatable profile fields.
type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Bio      *string `json:"bio"`
	Password *string `json:"password"`
}

// Update applies a partial update to a user profile.
func (h *UserHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if body.Username != nil {
		username := strings.TrimSpace(*body.Username)
		if username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username cannot be empty"})
			return
		}
		updates["username"] = username
	}
	if body.Email != nil {
		email := strings.TrimSpace(*body.Email)
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email cannot be empty"})
			return
		}
		updates["email"] = email
	}
	if body.Bio != nil {
		updates["bio"] = *body.Bio
	}
	if body.Password != nil {
		hash, errHash := security.HashPassword(*body.Password)
		if errHash != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		updates["password"] = hash
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Required fields are missing"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username or email already taken"})
			return
		}
		respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated"})
}

// Delete removes a user account, their memberships, and the groups they
// created.
func (h *UserHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx := c.Request.Context()
	var user models.User
	if errFind := h.db.WithContext(ctx).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		respondError(c, errFind)
		return
	}

	errTx := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCascade := h.engine.RemoveUserEverywhere(ctx, tx, id); errCascade != nil {
			return errCascade
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if errTx != nil {
		respondError(c, errTx)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
