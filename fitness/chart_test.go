package fitness

import (
	"math/rand"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/flexingg/flexingg/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.GarminDailySteps{},
		&models.GarminActivity{},
		&models.SweatScoreWeight{},
		&models.Friendship{},
		&models.Group{},
		&models.GroupMembership{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func addSteps(t *testing.T, db *gorm.DB, userID uint, date string, steps int) {
	t.Helper()
	require.NoError(t, db.Create(&models.GarminDailySteps{UserID: userID, Date: date, Steps: steps}).Error)
}

func addActivity(t *testing.T, db *gorm.DB, userID uint, remoteID int64, start time.Time, calories float64, raw []byte) {
	t.Helper()
	require.NoError(t, db.Create(&models.GarminActivity{
		UserID:       userID,
		ActivityID:   remoteID,
		Name:         "Workout",
		ActivityType: "running",
		StartTimeUTC: start,
		Calories:     &calories,
		RawData:      raw,
	}).Error)
}

func befriend(t *testing.T, db *gorm.DB, from, to uint, status string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Friendship{FromUserID: from, ToUserID: to, Status: status}).Error)
}

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func TestChartHasOnePointPerDayInRange(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "alice")
	addSteps(t, db, user.ID, "2024-03-01", 1000)
	addSteps(t, db, user.ID, "2024-03-03", 500)

	today := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
	data, err := BuildChartData(db, user, MetricSteps, PeriodCurrentMonth, today, testRNG())
	require.NoError(t, err)

	require.Len(t, data.UserData, 15)
	require.Equal(t, "2024-03-01", data.DateRange.Start)
	require.Equal(t, "2024-03-15", data.DateRange.End)

	// Cumulative: days without data carry the running total forward.
	require.Equal(t, float64(1000), data.UserData[0].Value)
	require.Equal(t, float64(1000), data.UserData[1].Value)
	require.Equal(t, float64(1500), data.UserData[2].Value)
	require.Equal(t, float64(1500), data.UserData[14].Value)

	require.Equal(t, 1500, data.Stats.UserTotal)
	require.NotNil(t, data.Stats.UserRank)
	require.Equal(t, 1, *data.Stats.UserRank)
	require.NotEmpty(t, data.Stats.Sentence)
}

func TestChartIncludesFriendsAndPodium(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	// bob accepted (reverse direction), carol still pending.
	befriend(t, db, bob.ID, alice.ID, models.FriendshipAccepted)
	befriend(t, db, alice.ID, carol.ID, models.FriendshipPending)

	addSteps(t, db, alice.ID, "2024-03-02", 1500)
	addSteps(t, db, bob.ID, "2024-03-02", 2000)

	today := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	data, err := BuildChartData(db, alice, MetricSteps, PeriodCurrentMonth, today, testRNG())
	require.NoError(t, err)

	require.Len(t, data.FriendsData, 1)
	require.Equal(t, "bob", data.FriendsData[0].Name)
	require.Len(t, data.FriendsData[0].Data, 15)

	require.Len(t, data.PodiumData, 2)
	require.Equal(t, "bob", data.PodiumData[0].Name)
	require.Equal(t, 2000, data.PodiumData[0].Value)
	require.Equal(t, "alice", data.PodiumData[1].Name)

	require.Equal(t, 2000, data.Stats.FriendsAverage)
	require.NotNil(t, data.Stats.UserRank)
	require.Equal(t, 2, *data.Stats.UserRank)
}

func TestChartFriendWithNoDataShowsFlatSeries(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	befriend(t, db, alice.ID, bob.ID, models.FriendshipAccepted)

	addSteps(t, db, alice.ID, "2024-03-01", 800)

	today := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	data, err := BuildChartData(db, alice, MetricSteps, PeriodCurrentMonth, today, testRNG())
	require.NoError(t, err)

	// Friends without data still get a series, flat at zero, but are left
	// out of the ranking and the average.
	require.Len(t, data.FriendsData, 1)
	for _, p := range data.FriendsData[0].Data {
		require.Equal(t, float64(0), p.Value)
	}
	require.Len(t, data.PodiumData, 1)
	require.Equal(t, 0, data.Stats.FriendsAverage)
	require.Equal(t, 1, *data.Stats.UserRank)
}

func TestChartUserWithNoDataHasNoRank(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")

	today := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	data, err := BuildChartData(db, alice, MetricSteps, PeriodCurrentMonth, today, testRNG())
	require.NoError(t, err)

	require.Nil(t, data.Stats.UserRank)
	require.Equal(t, 0, data.Stats.UserTotal)
	require.Equal(t, "No steps taken yet!", data.Stats.Sentence)
}

func TestChartCaloriesAggregatesActivitiesByDay(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")

	addActivity(t, db, alice.ID, 1, time.Date(2024, time.March, 2, 7, 0, 0, 0, time.UTC), 200, nil)
	addActivity(t, db, alice.ID, 2, time.Date(2024, time.March, 2, 19, 0, 0, 0, time.UTC), 150, nil)
	addActivity(t, db, alice.ID, 3, time.Date(2024, time.March, 4, 7, 0, 0, 0, time.UTC), 100, nil)

	today := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	data, err := BuildChartData(db, alice, MetricCalories, PeriodCurrentMonth, today, testRNG())
	require.NoError(t, err)

	require.Len(t, data.UserData, 5)
	require.Equal(t, float64(0), data.UserData[0].Value)
	require.Equal(t, float64(350), data.UserData[1].Value)
	require.Equal(t, float64(350), data.UserData[2].Value)
	require.Equal(t, float64(450), data.UserData[3].Value)
	require.Equal(t, 450, data.Stats.UserTotal)
}

func TestChartSweatScoreUsesCalorieFallback(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")

	// No zone data: score is calories / 2.
	addActivity(t, db, alice.ID, 1, time.Date(2024, time.March, 2, 7, 0, 0, 0, time.UTC), 300, nil)

	today := time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)
	data, err := BuildChartData(db, alice, MetricSweatScore, PeriodCurrentMonth, today, testRNG())
	require.NoError(t, err)

	require.Equal(t, float64(150), data.UserData[1].Value)
	require.Empty(t, data.Stats.Sentence)
}
