package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/abigailajohn/VVMA/internal/mail"
	"github.com/abigailajohn/VVMA/internal/models"
	"github.com/abigailajohn/VVMA/internal/otp"
	"github.com/abigailajohn/VVMA/internal/ratelimit"
	"github.com/abigailajohn/VVMA/internal/security"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ResetHandler runs the password-reset flow in both its legacy and hardened
// forms.
type ResetHandler struct {
	db      *gorm.DB
	otp     *otp.Manager
	limiter *ratelimit.Manager
	mailer  mail.Mailer
}

// NewResetHandler constructs a ResetHandler.
func NewResetHandler(db *gorm.DB, manager *otp.Manager, limiter *ratelimit.Manager, mailer mail.Mailer) *ResetHandler {
	return &ResetHandler{db: db, otp: manager, limiter: limiter, mailer: mailer}
}

// resetRequest defines the request body for OTP issuance.
type resetRequest struct {
	Email string `json:"email"`
}

// verifyRequest defines the request body for OTP verification.
type verifyRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (h *ResetHandler) lookupUser(c *gin.Context, email string) (*models.User, bool) {
	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, true
		}
		respondError(c, errFind)
		return nil, false
	}
	return &user, true
}

func (h *ResetHandler) issue(c *gin.Context, email string) bool {
	code, errIssue := h.otp.Issue(c.Request.Context(), email)
	if errIssue != nil {
		respondError(c, errIssue)
		return false
	}
	if errMail := h.mailer.SendOTP(email, code); errMail != nil {
		// Delivery failure does not invalidate the issued code.
		log.WithError(errMail).WithField("email", email).Warn("reset: otp mail delivery failed")
	}
	return true
}

// RequestV1 issues an OTP. Unknown emails get a 404, which leaks account
// existence. Kept for the legacy surface.
func (h *ResetHandler) RequestV1(c *gin.Context) {
	var body resetRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}
	user, ok := h.lookupUser(c, email)
	if !ok {
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if !h.issue(c, email) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset OTP has been sent to your email"})
}

// RequestV2 issues an OTP with a neutral response for unknown emails.
func (h *ResetHandler) RequestV2(c *gin.Context) {
	var body resetRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required"})
		return
	}
	user, ok := h.lookupUser(c, email)
	if !ok {
		return
	}
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"message": "If your email is registered, you will receive a password reset OTP"})
		return
	}
	if !h.issue(c, email) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset OTP has been sent to your email"})
}

// VerifyV1 checks the OTP under the basic policy and resets the password on
// a match. No attempt tracking and no lockout.
func (h *ResetHandler) VerifyV1(c *gin.Context) {
	var body verifyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Required fields are missing"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" || strings.TrimSpace(body.OTP) == "" || strings.TrimSpace(body.NewPassword) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Required fields are missing"})
		return
	}
	user, ok := h.lookupUser(c, email)
	if !ok {
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	verified, errVerify := h.otp.VerifyBasic(c.Request.Context(), email, strings.TrimSpace(body.OTP))
	if errVerify != nil {
		respondError(c, errVerify)
		return
	}
	if !verified {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or expired OTP"})
		return
	}
	if !h.updatePassword(c, user.ID, body.NewPassword) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// VerifyV2 checks the OTP under the hardened policy. The caller-side rate
// limiter blocks the whole flow after repeated failures, independent of the
// per-code attempt counter.
func (h *ResetHandler) VerifyV2(c *gin.Context) {
	var body verifyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Required fields are missing"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" || strings.TrimSpace(body.OTP) == "" || strings.TrimSpace(body.NewPassword) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Required fields are missing"})
		return
	}

	user, ok := h.lookupUser(c, email)
	if !ok {
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	ctx := c.Request.Context()
	blocked, errBlocked := h.limiter.Blocked(ctx, email)
	if errBlocked != nil {
		respondError(c, errBlocked)
		return
	}
	if blocked.Blocked {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"message": "Too many failed OTP attempts. Please try again after 10 minutes.",
		})
		return
	}

	result, errVerify := h.otp.Verify(ctx, email, strings.TrimSpace(body.OTP))
	if errVerify != nil {
		respondError(c, errVerify)
		return
	}
	if !result.OK {
		if errFail := h.limiter.Fail(ctx, email); errFail != nil {
			respondError(c, errFail)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": result.Reason})
		return
	}

	if !h.updatePassword(c, user.ID, body.NewPassword) {
		return
	}
	if errClear := h.limiter.Clear(ctx, email); errClear != nil {
		log.WithError(errClear).Warn("reset: failed to clear rate limit state")
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

func (h *ResetHandler) updatePassword(c *gin.Context, userID uint64, newPassword string) bool {
	hash, errHash := security.HashPassword(newPassword)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return false
	}
	errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", userID).
		Update("password", hash).Error
	if errUpdate != nil {
		respondError(c, errUpdate)
		return false
	}
	return true
}
