package controllers

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flexingg/flexingg/fitness"
	"github.com/flexingg/flexingg/models"
	"github.com/flexingg/flexingg/utils"
)

// ChartController serves the cumulative chart endpoints.
type ChartController struct {
	db *gorm.DB
}

// NewChartController creates a new ChartController instance.
func NewChartController(db *gorm.DB) *ChartController {
	return &ChartController{db: db}
}

// GetStepsChart returns the cumulative steps series for the requested range.
func (c *ChartController) GetStepsChart(ctx *gin.Context) {
	c.chart(ctx, fitness.MetricSteps)
}

// GetCaloriesChart returns the cumulative calories series.
func (c *ChartController) GetCaloriesChart(ctx *gin.Context) {
	c.chart(ctx, fitness.MetricCalories)
}

// GetSweatScoreChart returns the cumulative sweat score series.
func (c *ChartController) GetSweatScoreChart(ctx *gin.Context) {
	c.chart(ctx, fitness.MetricSweatScore)
}

func (c *ChartController) chart(ctx *gin.Context, metric string) {
	userID, exists := ctx.Get("user_id")
	if !exists {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var user models.User
	if err := c.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	rangeParam := ctx.DefaultQuery("range", fitness.PeriodCurrentMonth)

	// Short cache: chart queries fan out across the friend graph.
	cacheKey := fmt.Sprintf("cache:chart:%d:%s:%s", user.ID, metric, rangeParam)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	data, err := fitness.BuildChartData(c.db, &user, metric, rangeParam, time.Now().UTC(), rng)
	if err != nil {
		utils.Sugar.Errorf("chart build failed for user %d metric %s: %v", user.ID, metric, err)
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to build chart data")
		return
	}

	utils.CacheSetJSON(cacheKey, data, 5*time.Minute)
	ctx.JSON(http.StatusOK, data)
}
