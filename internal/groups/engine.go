// Package groups implements the group membership engine: group lifecycle,
// joining (direct and by invite code), role promotion, and member removal.
package groups

import (
	"context"
	"errors"
	"strings"

	"github.com/abigailajohn/VVMA/internal/apperr"
	"github.com/abigailajohn/VVMA/internal/db"
	"github.com/abigailajohn/VVMA/internal/models"
	"gorm.io/gorm"
)

// maxAdmins caps admin rows per group, enforced at promotion time.
const maxAdmins = 3

// Engine executes group membership operations against the database.
type Engine struct {
	db *gorm.DB
}

// NewEngine constructs an Engine.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Member is a membership row joined with the user's name.
type Member struct {
	UserID   uint64 `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Detail is a group with its member list.
type Detail struct {
	Group   models.Group
	Members []Member
}

// CreateParams holds inputs for group creation.
type CreateParams struct {
	Name        string
	Description string
	MaxMembers  int
	CreatorID   uint64
}

// Create inserts a group and its creator's admin membership atomically. An
// invite code is generated at creation.
func (e *Engine) Create(ctx context.Context, p CreateParams) (*models.Group, error) {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Description) == "" || p.MaxMembers == 0 {
		return nil, apperr.Validation("Required fields are missing")
	}
	if p.MaxMembers < 2 {
		return nil, apperr.Validation("Max members must be at least 2")
	}

	code, errCode := GenerateInviteCode()
	if errCode != nil {
		return nil, errCode
	}

	group := models.Group{
		Name:        strings.TrimSpace(p.Name),
		Description: strings.TrimSpace(p.Description),
		MaxMembers:  p.MaxMembers,
		CreatorID:   p.CreatorID,
		InviteCode:  code,
	}
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&group).Error; errCreate != nil {
			return errCreate
		}
		member := models.GroupMember{
			GroupID: group.ID,
			UserID:  p.CreatorID,
			Role:    models.GroupRoleAdmin,
		}
		return tx.Create(&member).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return &group, nil
}

// GetByID returns a group with its full member list.
func (e *Engine) GetByID(ctx context.Context, groupID uint64) (*Detail, error) {
	var group models.Group
	if errFind := e.db.WithContext(ctx).First(&group, groupID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Group not found")
		}
		return nil, errFind
	}
	members, errMembers := e.memberList(ctx, e.db, groupID)
	if errMembers != nil {
		return nil, errMembers
	}
	return &Detail{Group: group, Members: members}, nil
}

// ListAll returns every group, optionally filtered by a case-insensitive
// name search.
func (e *Engine) ListAll(ctx context.Context, search string) ([]models.Group, error) {
	q := e.db.WithContext(ctx).Order("id ASC")
	if s := strings.TrimSpace(search); s != "" {
		q = q.Where(db.CaseInsensitiveLikeExpr(e.db, "name"), db.NormalizeLikePattern(e.db, "%"+s+"%"))
	}
	var rows []models.Group
	if errFind := q.Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// Join adds userID to the group as a member. The capacity and duplicate
// checks run in the same transaction as the insert.
func (e *Engine) Join(ctx context.Context, groupID, userID uint64) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if errFind := tx.First(&group, groupID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Group not found")
			}
			return errFind
		}
		return e.joinLocked(tx, &group, userID)
	})
}

// JoinByInviteCode resolves an invite code to its group and joins userID.
// It returns the joined group's ID.
func (e *Engine) JoinByInviteCode(ctx context.Context, code string, userID uint64) (uint64, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, apperr.Validation("Invalid invite URL")
	}
	var groupID uint64
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if errFind := tx.Where("invite_code = ?", code).First(&group).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Invalid invite code or group not found")
			}
			return errFind
		}
		groupID = group.ID
		return e.joinLocked(tx, &group, userID)
	})
	if errTx != nil {
		return 0, errTx
	}
	return groupID, nil
}

// joinLocked performs the capacity/duplicate checks and the member insert
// inside the caller's transaction.
func (e *Engine) joinLocked(tx *gorm.DB, group *models.Group, userID uint64) error {
	var memberCount int64
	if errCount := tx.Model(&models.GroupMember{}).Where("group_id = ?", group.ID).Count(&memberCount).Error; errCount != nil {
		return errCount
	}
	if memberCount >= int64(group.MaxMembers) {
		return apperr.Conflict("Group is full, join another")
	}

	var existing int64
	if errCount := tx.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", group.ID, userID).
		Count(&existing).Error; errCount != nil {
		return errCount
	}
	if existing > 0 {
		return apperr.Conflict("You're already in this group")
	}

	member := models.GroupMember{
		GroupID: group.ID,
		UserID:  userID,
		Role:    models.GroupRoleMember,
	}
	return tx.Create(&member).Error
}

// RefreshInvite rotates the group's invite code. Only group admins may
// rotate; the old code stops resolving immediately.
func (e *Engine) RefreshInvite(ctx context.Context, groupID, userID uint64) (string, error) {
	if errAdmin := e.requireAdmin(ctx, groupID, userID); errAdmin != nil {
		return "", errAdmin
	}
	code, errCode := GenerateInviteCode()
	if errCode != nil {
		return "", errCode
	}
	res := e.db.WithContext(ctx).Model(&models.Group{}).
		Where("id = ?", groupID).
		Update("invite_code", code)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", apperr.NotFound("Group not found")
	}
	return code, nil
}

// UpdateParams holds the allow-listed updatable group fields. Nil fields
// are left unchanged.
type UpdateParams struct {
	Name        *string
	Description *string
	MaxMembers  *int
}

// Update applies a partial update to a group's metadata. Only group admins
// may update.
func (e *Engine) Update(ctx context.Context, groupID, userID uint64, p UpdateParams) error {
	if errAdmin := e.requireAdmin(ctx, groupID, userID); errAdmin != nil {
		return errAdmin
	}

	updates := map[string]any{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return apperr.Validation("Group name cannot be empty")
		}
		updates["name"] = name
	}
	if p.Description != nil {
		description := strings.TrimSpace(*p.Description)
		if description == "" {
			return apperr.Validation("Group description cannot be empty")
		}
		updates["description"] = description
	}
	if p.MaxMembers != nil {
		if *p.MaxMembers < 2 {
			return apperr.Validation("Max members must be at least 2")
		}
		updates["max_members"] = *p.MaxMembers
	}
	if len(updates) == 0 {
		return apperr.Validation("Required fields are missing")
	}

	res := e.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", groupID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Group not found")
	}
	return nil
}

// Delete removes a group and its membership rows. Only the creator may
// delete; admin role alone is insufficient.
func (e *Engine) Delete(ctx context.Context, groupID, userID uint64) error {
	var group models.Group
	errFind := e.db.WithContext(ctx).
		Where("id = ? AND creator_id = ?", groupID, userID).
		First(&group).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return apperr.Forbidden("Not authorized")
		}
		return errFind
	}
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errMembers := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; errMembers != nil {
			return errMembers
		}
		return tx.Delete(&models.Group{}, groupID).Error
	})
}

// Members returns the member list. The requester must hold a membership
// row in the group.
func (e *Engine) Members(ctx context.Context, groupID, userID uint64) ([]Member, error) {
	var membership int64
	if errCount := e.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&membership).Error; errCount != nil {
		return nil, errCount
	}
	if membership == 0 {
		return nil, apperr.Forbidden("Not authorized to view members")
	}
	return e.memberList(ctx, e.db, groupID)
}

// RemoveMember deletes the target's membership row. The creator can never
// be removed through this operation.
func (e *Engine) RemoveMember(ctx context.Context, groupID, targetUserID uint64) error {
	var group models.Group
	if errFind := e.db.WithContext(ctx).First(&group, groupID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Group not found")
		}
		return errFind
	}
	if targetUserID == group.CreatorID {
		return apperr.Forbidden("You cannot remove the group creator")
	}
	res := e.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, targetUserID).
		Delete(&models.GroupMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Member not found in the group")
	}
	return nil
}

// Promote raises the target's role to admin. The requester must be an
// admin, and the admin-count check runs in the same transaction as the
// role update.
func (e *Engine) Promote(ctx context.Context, groupID, targetUserID, requesterID uint64) error {
	if errAdmin := e.requireAdmin(ctx, groupID, requesterID); errAdmin != nil {
		return errAdmin
	}
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var adminCount int64
		if errCount := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND role = ?", groupID, models.GroupRoleAdmin).
			Count(&adminCount).Error; errCount != nil {
			return errCount
		}
		if adminCount >= maxAdmins {
			return apperr.Conflict("Maximum number of admins reached")
		}
		res := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ?", groupID, targetUserID).
			Update("role", models.GroupRoleAdmin)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("User not found in group")
		}
		return nil
	})
}

// GroupsForUser returns (group id, name, role) tuples for the user's
// memberships.
func (e *Engine) GroupsForUser(ctx context.Context, userID uint64) ([]UserGroup, error) {
	var rows []UserGroup
	errFind := e.db.WithContext(ctx).Model(&models.GroupMember{}).
		Select("groups.id AS group_id, groups.name AS name, group_members.role AS role").
		Joins("JOIN groups ON groups.id = group_members.group_id").
		Where("group_members.user_id = ?", userID).
		Order("groups.id ASC").
		Scan(&rows).Error
	if errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// UserGroup is a membership seen from the user's side.
type UserGroup struct {
	GroupID uint64 `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}

// RemoveUserEverywhere deletes all membership rows for a user plus any
// groups the user created, with their membership rows, in one transaction.
// Used when a user account is deleted so no orphan rows remain.
func (e *Engine) RemoveUserEverywhere(ctx context.Context, tx *gorm.DB, userID uint64) error {
	if tx == nil {
		tx = e.db.WithContext(ctx)
	}
	var created []models.Group
	if errFind := tx.Where("creator_id = ?", userID).Find(&created).Error; errFind != nil {
		return errFind
	}
	for i := range created {
		if errMembers := tx.Where("group_id = ?", created[i].ID).Delete(&models.GroupMember{}).Error; errMembers != nil {
			return errMembers
		}
		if errGroup := tx.Delete(&models.Group{}, created[i].ID).Error; errGroup != nil {
			return errGroup
		}
	}
	return tx.Where("user_id = ?", userID).Delete(&models.GroupMember{}).Error
}

func (e *Engine) requireAdmin(ctx context.Context, groupID, userID uint64) error {
	var count int64
	if errCount := e.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND role = ?", groupID, userID, models.GroupRoleAdmin).
		Count(&count).Error; errCount != nil {
		return errCount
	}
	if count == 0 {
		return apperr.Forbidden("Not authorized")
	}
	return nil
}

func (e *Engine) memberList(ctx context.Context, conn *gorm.DB, groupID uint64) ([]Member, error) {
	var members []Member
	errFind := conn.WithContext(ctx).Model(&models.GroupMember{}).
		Select("users.id AS user_id, users.username AS username, group_members.role AS role").
		Joins("JOIN users ON users.id = group_members.user_id").
		Where("group_members.group_id = ?", groupID).
		Order("users.id ASC").
		Scan(&members).Error
	if errFind != nil {
		return nil, errFind
	}
	return members, nil
}
