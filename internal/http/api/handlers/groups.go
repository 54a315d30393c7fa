package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/abigailajohn/VVMA/internal/groups"
	"github.com/abigailajohn/VVMA/internal/models"
	"github.com/gin-gonic/gin"
)

// GroupHandler exposes the group membership engine over HTTP.
type GroupHandler struct {
	engine  *groups.Engine
	baseURL string
}

// NewGroupHandler constructs a GroupHandler. baseURL is used to build
// invite URLs.
func NewGroupHandler(engine *groups.Engine, baseURL string) *GroupHandler {
	return &GroupHandler{engine: engine, baseURL: baseURL}
}

func (h *GroupHandler) groupJSON(g *models.Group) gin.H {
	return gin.H{
		"id":          g.ID,
		"name":        g.Name,
		"description": g.Description,
		"maxMembers":  g.MaxMembers,
		"creatorId":   g.CreatorID,
		"inviteCode":  g.InviteCode,
		"inviteUrl":   groups.InviteURL(h.baseURL, g.InviteCode),
	}
}

func parseGroupID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return 0, false
	}
	return id, true
}

// List returns all groups. A search query filters by name.
func (h *GroupHandler) List(c *gin.Context) {
	rows, errList := h.engine.ListAll(c.Request.Context(), c.Query("search"))
	if errList != nil {
		respondError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, h.groupJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns one group with its member list.
func (h *GroupHandler) Get(c *gin.Context) {
	id, ok := parseGroupID(c)
	if !ok {
		return
	}
	detail, errGet := h.engine.GetByID(c.Request.Context(), id)
	if errGet != nil {
		respondError(c, errGet)
		return
	}
	body := h.groupJSON(&detail.Group)
	body["members"] = detail.Members
	c.JSON(http.StatusOK, body)
}

// createGroupRequest defines the request body for group creation.
type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxMembers  int    `json:"maxMembers"`
}

// Create makes a new group. The caller becomes its creator and first admin.
func (h *GroupHandler) Create(c *gin.Context) {
	var body createGroupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	group, errCreate := h.engine.Create(c.Request.Context(), groups.CreateParams{
		Name:        body.Name,
		Description: body.Description,
		MaxMembers:  body.MaxMembers,
		CreatorID:   CurrentUserID(c),
	})
	if errCreate != nil {
		respondError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, h.groupJSON(group))
}

// Join adds the caller to the group as a member.
func (h *GroupHandler) Join(c *gin.Context) {
	id, ok := parseGroupID(c)
	if !ok {
		return
	}
	if errJoin := h.engine.Join(c.Request.Context(), id, CurrentUserID(c)); errJoin != nil {
		respondError(c, errJoin)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully joined group"})
}

// joinByInviteRequest defines the request body for invite joins. Either the
// full invite URL or the bare code is accepted.
type joinByInviteRequest struct {
	InviteURL  string `json:"inviteUrl"`
	InviteCode string `json:"inviteCode"`
}

// JoinByInvite resolves an invite code and adds the caller to its group.
func (h *GroupHandler) JoinByInvite(c *gin.Context) {
	var body joinByInviteRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.InviteCode)
	if code == "" {
		code = groups.CodeFromInviteURL(body.InviteURL)
	}
	groupID, errJoin := h.engine.JoinByInviteCode(c.Request.Context(), code, CurrentUserID(c))
	if errJoin != nil {
		respondError(c, errJoin)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully joined group", "groupId": groupID})
}

// RefreshInvite rotates the group's invite code. Admin only; the previous
// code stops working.
func (h *GroupHandler) RefreshInvite(c *gin.Context) {
	id, ok := parseGroupID(c)
	if !ok {
		return
	}
	code, errRefresh := h.engine.RefreshInvite(c.Request.Context(), id, CurrentUserID(c))
	if errRefresh != nil {
		respondError(c, errRefresh)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Invite code refreshed",
		"inviteUrl": groups.InviteURL(h.baseURL, code),
	})
}

// updateGroupRequest defines the allow-listed updatable group fields.
type updateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	MaxMembers  *int    `json:"maxMembers"`
}

// Update applies a partial update to a group. Admin only.
func (h *GroupHandler) Update(c *gin.Context) {
	id, ok := parseGroupID(c)
	if !ok {
		return
	}
	var body updateGroupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	errUpdate := h.engine.Update(c.Request.Context(), id, CurrentUserID(c), groups.UpdateParams{
		Name:        body.Name,
		Description: body.Description,
		MaxMembers:  body.MaxMembers,
	})
	if errUpdate != nil {
		respondError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group updated"})
}

// Delete removes a group. Creator only.
func (h *GroupHandler) Delete(c *gin.Context) {
	id, ok := parseGroupID(c)
	if !ok {
		return
	}
	if errDelete := h.engine.Delete(c.Request.Context(), id, CurrentUserID(c)); errDelete != nil {
		respondError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
}

// Members returns the group's member list. Members only.
func (h *GroupHandler) Members(c *gin.Context) {
	id, ok := parseGroupID(c)
	if !ok {
		return
	}
	members, errMembers := h.engine.Members(c.Request.Context(), id, CurrentUserID(c))
	if errMembers != nil {
		respondError(c, errMembers)
		return
	}
	c.JSON(http.StatusOK, members)
}

// RemoveMember deletes a member from the group. The creator cannot be
// removed.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	id, ok := parseGroupID(c)
	if !ok {
		return
	}
	targetID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("uid")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	if errRemove := h.engine.RemoveMember(c.Request.Context(), id, targetID); errRemove != nil {
		respondError(c, errRemove)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User removed from group"})
}

// Promote raises a member to group admin. Admin only, capped per group.
func (h *GroupHandler) Promote(c *gin.Context) {
	id, ok := parseGroupID(c)
	if !ok {
		return
	}
	targetID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("uid")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	errPromote := h.engine.Promote(c.Request.Context(), id, targetID, CurrentUserID(c))
	if errPromote != nil {
		respondError(c, errPromote)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User is now an admin"})
}
