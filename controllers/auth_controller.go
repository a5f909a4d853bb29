package controllers

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flexingg/flexingg/models"
	"github.com/flexingg/flexingg/utils"
)

// AuthController handles account registration, login and profile endpoints.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// userResponse strips credentials and internal fields from a user record.
type userResponse struct {
	ID                  uint     `json:"id"`
	Username            string   `json:"username"`
	Email               string   `json:"email,omitempty"`
	AvatarURL           string   `json:"avatar_url,omitempty"`
	GymGems             float64  `json:"gym_gems"`
	CardioCoins         float64  `json:"cardio_coins"`
	Level               int      `json:"level"`
	XP                  int      `json:"xp"`
	HeightFt            *int     `json:"height_ft,omitempty"`
	HeightIn            *int     `json:"height_in,omitempty"`
	Weight              *float64 `json:"weight,omitempty"`
	Sex                 *string  `json:"sex,omitempty"`
	SyncDebounceMinutes int      `json:"sync_debounce_minutes"`
	CreatedAt           string   `json:"created_at"`
}

func sanitizeUserResponse(user models.User) userResponse {
	return userResponse{
		ID:                  user.ID,
		Username:            user.Username,
		Email:               user.Email,
		AvatarURL:           user.AvatarURL,
		GymGems:             user.GymGems,
		CardioCoins:         user.CardioCoins,
		Level:               user.Level,
		XP:                  user.XP,
		HeightFt:            user.HeightFt,
		HeightIn:            user.HeightIn,
		Weight:              user.Weight,
		Sex:                 user.Sex,
		SyncDebounceMinutes: user.SyncDebounceMinutes,
		CreatedAt:           user.CreatedAt.Format(time.RFC3339),
	}
}

// Register creates a new account.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if l := len(req.Username); l < 2 || l > 30 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 2-30 characters")
		return
	}
	if !usernamePattern.MatchString(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username may only contain letters, digits, '-' and '_'")
		return
	}
	if len(req.Password) < 6 || len(req.Password) > 72 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "password must be 6-72 characters")
		return
	}

	var existing models.User
	if err := a.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
	}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, 72*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  sanitizeUserResponse(user),
	})
}

// Login verifies credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, 72*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  sanitizeUserResponse(user),
	})
}

// Logout revokes the presented token until its natural expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}

	token := strings.TrimSpace(parts[1])
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(72 * time.Hour)
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}

	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, exists := ctx.Get("user_id")
	if !exists {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	utils.Success(ctx, sanitizeUserResponse(user))
}

// UpdateProfile updates body metrics, avatar and sync preferences.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, exists := ctx.Get("user_id")
	if !exists {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	type request struct {
		AvatarURL           *string  `json:"avatar_url"`
		HeightFt            *int     `json:"height_ft"`
		HeightIn            *int     `json:"height_in"`
		Weight              *float64 `json:"weight"`
		Sex                 *string  `json:"sex"`
		SyncDebounceMinutes *int     `json:"sync_debounce_minutes"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	updates := map[string]interface{}{}
	if req.AvatarURL != nil {
		updates["avatar_url"] = utils.SanitizeText(strings.TrimSpace(*req.AvatarURL))
	}
	if req.HeightFt != nil {
		updates["height_ft"] = *req.HeightFt
	}
	if req.HeightIn != nil {
		updates["height_in"] = *req.HeightIn
	}
	if req.Weight != nil {
		updates["weight"] = *req.Weight
	}
	if req.Sex != nil {
		updates["sex"] = *req.Sex
	}
	if req.SyncDebounceMinutes != nil {
		if *req.SyncDebounceMinutes < 1 {
			utils.Error(ctx, http.StatusBadRequest, 40005, "sync_debounce_minutes must be positive")
			return
		}
		updates["sync_debounce_minutes"] = *req.SyncDebounceMinutes
	}

	if len(updates) > 0 {
		if err := a.db.Model(&user).Updates(updates).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to update profile")
			return
		}
	}

	utils.Success(ctx, sanitizeUserResponse(user))
}
