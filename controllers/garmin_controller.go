package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flexingg/flexingg/garmin"
	"github.com/flexingg/flexingg/models"
	"github.com/flexingg/flexingg/utils"
)

// GarminController handles account linking and sync triggers.
type GarminController struct {
	db     *gorm.DB
	client garmin.Client
	syncer *garmin.SyncService
}

// NewGarminController creates a new GarminController instance.
func NewGarminController(db *gorm.DB, client garmin.Client, syncer *garmin.SyncService) *GarminController {
	return &GarminController{db: db, client: client, syncer: syncer}
}

func (g *GarminController) currentUser(ctx *gin.Context) (*models.User, bool) {
	userID, exists := ctx.Get("user_id")
	if !exists {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return nil, false
	}
	var user models.User
	if err := g.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return nil, false
	}
	return &user, true
}

// Connect links a Garmin account. The credential login runs against the
// provider; on success any previous bundle is dropped and replaced, keeping
// at most one bundle per user.
func (g *GarminController) Connect(ctx *gin.Context) {
	user, ok := g.currentUser(ctx)
	if !ok {
		return
	}

	type request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	bundle, err := g.client.Login(ctx.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		utils.Sugar.Warnf("garmin login failed for user %d: %v", user.ID, err)
		utils.Error(ctx, http.StatusUnauthorized, 40110, "Garmin login failed, check credentials")
		return
	}

	err = g.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.GarminAuth{}).Error; err != nil {
			return err
		}
		auth := models.GarminAuth{UserID: user.ID, GarminEmail: strings.TrimSpace(req.Email)}
		garmin.ApplyBundle(&auth, *bundle)
		return tx.Create(&auth).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to store Garmin credentials")
		return
	}

	utils.Success(ctx, gin.H{"message": "Garmin account linked"})
}

// Disconnect removes the user's credential bundle. Synced records stay.
func (g *GarminController) Disconnect(ctx *gin.Context) {
	user, ok := g.currentUser(ctx)
	if !ok {
		return
	}

	res := g.db.Where("user_id = ?", user.ID).Delete(&models.GarminAuth{})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to unlink Garmin account")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40411, "no Garmin account linked")
		return
	}

	utils.Success(ctx, gin.H{"message": "Garmin account unlinked"})
}

// Sync runs a manual sync for the current month. Both sub-syncs must succeed
// for the run to count as successful.
func (g *GarminController) Sync(ctx *gin.Context) {
	user, ok := g.currentUser(ctx)
	if !ok {
		return
	}

	result := g.syncer.ManualSync(ctx.Request.Context(), user)
	if !result.Success {
		ctx.JSON(http.StatusBadGateway, result)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// BackgroundSync runs the automatic sync with debounce and cooldown. A
// skipped run is a normal outcome, not an error.
func (g *GarminController) BackgroundSync(ctx *gin.Context) {
	user, ok := g.currentUser(ctx)
	if !ok {
		return
	}

	result := g.syncer.BackgroundSync(ctx.Request.Context(), user)
	if result.Skipped {
		ctx.JSON(http.StatusOK, result)
		return
	}
	if !result.Success {
		ctx.JSON(http.StatusBadGateway, result)
		return
	}
	ctx.JSON(http.StatusOK, result)
}
