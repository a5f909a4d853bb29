package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flexingg/flexingg/models"
	"github.com/flexingg/flexingg/utils"
)

// FriendController handles friend requests.
type FriendController struct {
	db *gorm.DB
}

// NewFriendController creates a new FriendController instance.
func NewFriendController(db *gorm.DB) *FriendController {
	return &FriendController{db: db}
}

// CreateRequest sends a friend request to another user by username.
func (f *FriendController) CreateRequest(ctx *gin.Context) {
	userID, exists := ctx.Get("user_id")
	if !exists {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	fromID := userID.(uint)

	type request struct {
		Username string `json:"username" binding:"required"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	var target models.User
	if err := f.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&target).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "user not found")
		return
	}
	if target.ID == fromID {
		utils.Error(ctx, http.StatusBadRequest, 40031, "cannot befriend yourself")
		return
	}

	// One edge per pair in either direction.
	var existing models.Friendship
	err := f.db.Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
		fromID, target.ID, target.ID, fromID).First(&existing).Error
	if err == nil {
		utils.Error(ctx, http.StatusConflict, 40902, "friendship already exists")
		return
	}

	friendship := models.Friendship{
		FromUserID: fromID,
		ToUserID:   target.ID,
		Status:     models.FriendshipPending,
	}
	if err := f.db.Create(&friendship).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to create friend request")
		return
	}

	utils.Success(ctx, friendship)
}

// Accept marks a pending request addressed to the current user as accepted.
func (f *FriendController) Accept(ctx *gin.Context) {
	f.respond(ctx, models.FriendshipAccepted)
}

// Decline marks a pending request addressed to the current user as declined.
func (f *FriendController) Decline(ctx *gin.Context) {
	f.respond(ctx, models.FriendshipDeclined)
}

func (f *FriendController) respond(ctx *gin.Context, status string) {
	userID, exists := ctx.Get("user_id")
	if !exists {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	id := ctx.Param("id")
	var friendship models.Friendship
	if err := f.db.Where("id = ? AND to_user_id = ?", id, userID).First(&friendship).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40403, "friend request not found")
		return
	}
	if friendship.Status != models.FriendshipPending {
		utils.Error(ctx, http.StatusConflict, 40903, "friend request already handled")
		return
	}

	if err := f.db.Model(&friendship).Update("status", status).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update friend request")
		return
	}

	utils.Success(ctx, friendship)
}
