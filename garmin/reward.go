package garmin

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/flexingg/flexingg/models"
	"github.com/flexingg/flexingg/utils"
)

// MaybeRewardActivity credits Cardio Coins for a freshly synced activity when
// it qualifies for the new-member reward window. An activity qualifies when it
// burned a positive number of calories, has not been rewarded before, and
// started between the first day of the user's join month and one week after
// the join date. Re-synced activities never double-credit: the ledger row
// keyed by the activity id acts as the idempotency marker.
func MaybeRewardActivity(db *gorm.DB, user *models.User, activity *models.GarminActivity) error {
	if activity == nil || activity.Calories == nil || *activity.Calories <= 0 {
		return nil
	}

	var existing models.Transaction
	err := db.Where("currency_type = ? AND garmin_activity_id = ?",
		models.CurrencyCardioCoins, activity.ID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	// Window bounds are calendar dates, so an activity any time on the final
	// day still qualifies.
	joined := user.CreatedAt
	windowStart := time.Date(joined.Year(), joined.Month(), 1, 0, 0, 0, 0, time.UTC)
	windowEnd := dateOnly(joined.AddDate(0, 0, 7))
	activityDay := dateOnly(activity.StartTimeUTC)
	if activityDay.Before(windowStart) || activityDay.After(windowEnd) {
		return nil
	}

	amount := *activity.Calories

	tx := models.Transaction{
		UserID:           user.ID,
		CurrencyType:     models.CurrencyCardioCoins,
		Amount:           amount,
		GarminActivityID: &activity.ID,
	}
	if err := db.Create(&tx).Error; err != nil {
		return err
	}
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("cardio_coins", gorm.Expr("cardio_coins + ?", amount)).Error; err != nil {
		return err
	}
	user.CardioCoins += amount

	utils.Sugar.Infof("awarded %.2f cardio coins to user %d for activity %s", amount, user.ID, activity.ID)
	return nil
}
