package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flexingg/flexingg/models"
	"github.com/flexingg/flexingg/utils"
)

// StatsController provides aggregate statistics across all users.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the app.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var activityCount int64
	var linkedCount int64
	var stepsToday int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}

	if err := s.db.Model(&models.GarminActivity{}).Count(&activityCount).Error; err != nil {
		activityCount = 0
	}

	if err := s.db.Model(&models.GarminAuth{}).Count(&linkedCount).Error; err != nil {
		linkedCount = 0
	}

	// Use string date equality to avoid timezone/type mismatches with the date column
	today := time.Now().UTC().Format("2006-01-02")
	if err := s.db.Model(&models.GarminDailySteps{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(steps),0)").
		Scan(&stepsToday).Error; err != nil {
		stepsToday = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":        userCount,
		"activity_count":    activityCount,
		"linked_user_count": linkedCount,
		"total_steps_today": stepsToday,
	})
}
