package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flexingg/flexingg/fitness"
	"github.com/flexingg/flexingg/models"
	"github.com/flexingg/flexingg/utils"
)

// LeaderboardController serves ranked metric listings.
type LeaderboardController struct {
	db *gorm.DB
}

// NewLeaderboardController creates a new LeaderboardController instance.
func NewLeaderboardController(db *gorm.DB) *LeaderboardController {
	return &LeaderboardController{db: db}
}

// GetLeaderboard ranks users by /:metric over /:period, with scope, group_id
// and page query parameters.
func (l *LeaderboardController) GetLeaderboard(ctx *gin.Context) {
	userID, exists := ctx.Get("user_id")
	if !exists {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var user models.User
	if err := l.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	metric := ctx.Param("metric")
	period := ctx.Param("period")
	scope := ctx.DefaultQuery("scope", fitness.ScopeGlobal)
	groupID := ctx.Query("group_id")

	page := 1
	if v := ctx.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}

	result, err := fitness.Leaderboard(l.db, &user, metric, period, scope, groupID, page)
	if err != nil {
		if errors.Is(err, fitness.ErrNotGroupMember) {
			utils.Error(ctx, http.StatusForbidden, 40310, "not a member of this group")
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40020, err.Error())
		return
	}

	utils.Success(ctx, result)
}
