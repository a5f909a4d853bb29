package garmin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/flexingg/flexingg/models"
	"github.com/flexingg/flexingg/utils"
)

func init() {
	utils.SetRedis(nil)
}

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
		&models.GarminAuth{},
		&models.GarminDailySteps{},
		&models.GarminActivity{},
		&models.Transaction{},
		&models.SweatScoreWeight{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "x", SyncDebounceMinutes: 60}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func ptrInt64(v int64) *int64        { return &v }
func ptrFloat(v float64) *float64    { return &v }
func ptrInt(v int) *int              { return &v }
func ptrTime(v time.Time) *time.Time { return &v }

func createValidAuth(t *testing.T, db *gorm.DB, userID uint) *models.GarminAuth {
	t.Helper()
	auth := models.GarminAuth{
		UserID:      userID,
		AccessToken: "access",
		ExpiresAt:   ptrInt64(time.Now().Add(time.Hour).Unix()),
	}
	require.NoError(t, db.Create(&auth).Error)
	return &auth
}

// fakeClient is an in-memory Client for the sync engine.
type fakeClient struct {
	stepsByDate   map[string]int
	stepsErrDates map[string]bool
	stepsNilDates map[string]bool
	summaryByDate map[string]int
	stepsCalls    []string

	activities []ActivityPayload
	searchErr  error

	exchangeResult *TokenBundle
	exchangeErr    error
	exchangeCalls  int
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*TokenBundle, error) {
	return &TokenBundle{AccessToken: "login"}, nil
}

func (f *fakeClient) Exchange(ctx context.Context, bundle TokenBundle) (*TokenBundle, error) {
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangeResult, nil
}

func (f *fakeClient) DailySteps(ctx context.Context, bundle TokenBundle, date string) ([]StepsSummary, error) {
	f.stepsCalls = append(f.stepsCalls, date)
	if f.stepsErrDates[date] {
		return nil, errors.New("steps endpoint unavailable")
	}
	if f.stepsNilDates[date] {
		return []StepsSummary{{}}, nil
	}
	if v, ok := f.stepsByDate[date]; ok {
		return []StepsSummary{{TotalSteps: ptrInt(v)}}, nil
	}
	return nil, nil
}

func (f *fakeClient) DailySummary(ctx context.Context, bundle TokenBundle, date string) ([]StepsSummary, error) {
	if v, ok := f.summaryByDate[date]; ok {
		return []StepsSummary{{TotalSteps: ptrInt(v)}}, nil
	}
	return nil, errors.New("summary endpoint unavailable")
}

func (f *fakeClient) SearchActivities(ctx context.Context, bundle TokenBundle, start, limit int, from, to string) ([]ActivityPayload, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.activities, nil
}

func newTestSyncService(db *gorm.DB, client Client, now time.Time) *SyncService {
	s := NewSyncService(db, client)
	s.now = func() time.Time { return now }
	return s
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSyncStepsWritesOnlyRequestedRange(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createValidAuth(t, db, user.ID)

	client := &fakeClient{stepsByDate: map[string]int{
		"2024-03-01": 1000,
		"2024-03-02": 2000,
		"2024-03-03": 3000,
		"2024-03-04": 4000,
	}}
	s := newTestSyncService(db, client, date(2024, time.March, 15))

	result := s.SyncSteps(context.Background(), user, date(2024, time.March, 1), date(2024, time.March, 3))
	require.True(t, result.Success)
	require.Equal(t, 3, result.StepsSynced)

	var rows []models.GarminDailySteps
	require.NoError(t, db.Order("date").Find(&rows).Error)
	require.Len(t, rows, 3)
	require.Equal(t, "2024-03-01", rows[0].Date)
	require.Equal(t, "2024-03-03", rows[2].Date)
}

func TestSyncStepsSkipsFutureDates(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createValidAuth(t, db, user.ID)

	client := &fakeClient{stepsByDate: map[string]int{
		"2024-03-01": 1000,
		"2024-03-02": 2000,
		"2024-03-03": 3000,
	}}
	s := newTestSyncService(db, client, date(2024, time.March, 2))

	result := s.SyncSteps(context.Background(), user, date(2024, time.March, 1), date(2024, time.March, 5))
	require.True(t, result.Success)
	require.Equal(t, 2, result.StepsSynced)
	require.Equal(t, []string{"2024-03-01", "2024-03-02"}, client.stepsCalls)
}

func TestSyncStepsCountsOnlyCreatedRows(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createValidAuth(t, db, user.ID)

	client := &fakeClient{stepsByDate: map[string]int{"2024-03-01": 1000}}
	s := newTestSyncService(db, client, date(2024, time.March, 15))

	first := s.SyncSteps(context.Background(), user, date(2024, time.March, 1), date(2024, time.March, 1))
	require.Equal(t, 1, first.StepsSynced)

	// Same data again: the row is refreshed but not counted.
	second := s.SyncSteps(context.Background(), user, date(2024, time.March, 1), date(2024, time.March, 1))
	require.True(t, second.Success)
	require.Equal(t, 0, second.StepsSynced)

	// Changed count still does not count as a new sync, but updates the row.
	client.stepsByDate["2024-03-01"] = 5000
	third := s.SyncSteps(context.Background(), user, date(2024, time.March, 1), date(2024, time.March, 1))
	require.Equal(t, 0, third.StepsSynced)

	var row models.GarminDailySteps
	require.NoError(t, db.Where("user_id = ? AND date = ?", user.ID, "2024-03-01").First(&row).Error)
	require.Equal(t, 5000, row.Steps)

	var count int64
	require.NoError(t, db.Model(&models.GarminDailySteps{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestSyncStepsFallsBackToDailySummary(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createValidAuth(t, db, user.ID)

	client := &fakeClient{
		stepsErrDates: map[string]bool{"2024-03-01": true},
		summaryByDate: map[string]int{"2024-03-01": 777},
	}
	s := newTestSyncService(db, client, date(2024, time.March, 15))

	result := s.SyncSteps(context.Background(), user, date(2024, time.March, 1), date(2024, time.March, 1))
	require.True(t, result.Success)
	require.Equal(t, 1, result.StepsSynced)

	var row models.GarminDailySteps
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&row).Error)
	require.Equal(t, 777, row.Steps)
}

func TestSyncStepsRecordsMissingFieldAsZero(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createValidAuth(t, db, user.ID)

	client := &fakeClient{stepsNilDates: map[string]bool{"2024-03-01": true}}
	s := newTestSyncService(db, client, date(2024, time.March, 15))

	result := s.SyncSteps(context.Background(), user, date(2024, time.March, 1), date(2024, time.March, 1))
	require.True(t, result.Success)
	require.Equal(t, 1, result.StepsSynced)

	var row models.GarminDailySteps
	require.NoError(t, db.Where("user_id = ? AND date = ?", user.ID, "2024-03-01").First(&row).Error)
	require.Equal(t, 0, row.Steps)
}

func TestSyncStepsIsolatesSingleDayFailure(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createValidAuth(t, db, user.ID)

	// 2024-03-02 fails on both endpoints; the run still succeeds.
	client := &fakeClient{
		stepsByDate:   map[string]int{"2024-03-01": 100, "2024-03-03": 300},
		stepsErrDates: map[string]bool{"2024-03-02": true},
	}
	s := newTestSyncService(db, client, date(2024, time.March, 15))

	result := s.SyncSteps(context.Background(), user, date(2024, time.March, 1), date(2024, time.March, 3))
	require.True(t, result.Success)
	require.Equal(t, 2, result.StepsSynced)
}

func TestSyncStepsFailsWithoutAuthRecord(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")

	s := newTestSyncService(db, &fakeClient{}, date(2024, time.March, 15))
	result := s.SyncSteps(context.Background(), user, date(2024, time.March, 1), date(2024, time.March, 1))
	require.False(t, result.Success)
	require.Equal(t, "no Garmin auth record found", result.Error)
}

func activityPayload(id int64, start string, calories *float64) ActivityPayload {
	p := ActivityPayload{
		ActivityID:   id,
		ActivityName: "Morning Run",
		StartTimeGMT: []byte(`"` + start + `"`),
		Calories:     calories,
	}
	p.ActivityType.TypeKey = "running"
	p.Raw = []byte(`{"activityId":` + "0" + `}`)
	return p
}

func TestSyncActivitiesIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createValidAuth(t, db, user.ID)

	client := &fakeClient{activities: []ActivityPayload{
		activityPayload(101, "2024-03-01 08:00:00", ptrFloat(250)),
		activityPayload(102, "2024-03-02 18:30:00", ptrFloat(400)),
	}}
	s := newTestSyncService(db, client, date(2024, time.March, 15))

	first := s.SyncActivities(context.Background(), user, 10, "", "")
	require.True(t, first.Success)
	require.Equal(t, 2, first.ActivitiesSynced)

	second := s.SyncActivities(context.Background(), user, 10, "", "")
	require.True(t, second.Success)
	require.Equal(t, 0, second.ActivitiesSynced)

	var count int64
	require.NoError(t, db.Model(&models.GarminActivity{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestSyncActivitiesSkipsUnparseableStartTime(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createValidAuth(t, db, user.ID)

	bad := ActivityPayload{ActivityID: 103, ActivityName: "Mystery"}
	bad.StartTimeGMT = []byte(`"not a time"`)

	client := &fakeClient{activities: []ActivityPayload{
		bad,
		activityPayload(104, "2024-03-05 07:00:00", ptrFloat(120)),
	}}
	s := newTestSyncService(db, client, date(2024, time.March, 15))

	result := s.SyncActivities(context.Background(), user, 10, "", "")
	require.True(t, result.Success)
	require.Equal(t, 1, result.ActivitiesSynced)

	var count int64
	require.NoError(t, db.Model(&models.GarminActivity{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestSyncActivitiesMergeKeepsExistingFields(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createValidAuth(t, db, user.ID)

	full := activityPayload(105, "2024-03-01 08:00:00", ptrFloat(300))
	full.DurationSeconds = ptrFloat(1800)

	client := &fakeClient{activities: []ActivityPayload{full}}
	s := newTestSyncService(db, client, date(2024, time.March, 15))
	require.Equal(t, 1, s.SyncActivities(context.Background(), user, 10, "", "").ActivitiesSynced)

	// Re-sync without calories or duration: stored values must survive.
	partial := activityPayload(105, "2024-03-01 08:00:00", nil)
	client.activities = []ActivityPayload{partial}
	result := s.SyncActivities(context.Background(), user, 10, "", "")
	require.True(t, result.Success)
	require.Equal(t, 0, result.ActivitiesSynced)

	var row models.GarminActivity
	require.NoError(t, db.Where("user_id = ? AND activity_id = ?", user.ID, int64(105)).First(&row).Error)
	require.NotNil(t, row.Calories)
	require.Equal(t, float64(300), *row.Calories)
	require.NotNil(t, row.DurationSeconds)
	require.Equal(t, float64(1800), *row.DurationSeconds)
}

func TestSyncActivitiesFailsWhenTokenRefreshFails(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	auth := models.GarminAuth{UserID: user.ID, AccessToken: "stale"} // no expiry: expired
	require.NoError(t, db.Create(&auth).Error)

	client := &fakeClient{exchangeErr: errors.New("provider says no")}
	s := newTestSyncService(db, client, date(2024, time.March, 15))

	result := s.SyncActivities(context.Background(), user, 10, "", "")
	require.False(t, result.Success)
	require.Equal(t, "token refresh failed", result.Error)

	// The bundle must survive the failure.
	var count int64
	require.NoError(t, db.Model(&models.GarminAuth{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestManualSyncRequiresBothSubSyncs(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createValidAuth(t, db, user.ID)

	client := &fakeClient{
		stepsByDate: map[string]int{"2024-03-01": 100},
		searchErr:   errors.New("search down"),
	}
	s := newTestSyncService(db, client, date(2024, time.March, 1))

	result := s.ManualSync(context.Background(), user)
	require.False(t, result.Success)
	require.Equal(t, 1, result.StepsSynced)
}

func TestManualSyncCapsRangeAtMaxDays(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createValidAuth(t, db, user.ID)

	client := &fakeClient{}
	s := newTestSyncService(db, client, date(2024, time.March, 15))
	s.ManualSyncMaxDays = 5

	result := s.ManualSync(context.Background(), user)
	require.True(t, result.Success)
	require.Equal(t, []string{
		"2024-03-11", "2024-03-12", "2024-03-13", "2024-03-14", "2024-03-15",
	}, client.stepsCalls)
}

func TestBackgroundSyncSucceedsWithOneSubSync(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createValidAuth(t, db, user.ID)

	client := &fakeClient{
		stepsByDate: map[string]int{"2024-03-01": 100},
		searchErr:   errors.New("search down"),
	}
	s := newTestSyncService(db, client, date(2024, time.March, 1))

	result := s.BackgroundSync(context.Background(), user)
	require.False(t, result.Skipped)
	require.True(t, result.Success)
	require.Equal(t, 1, result.StepsSynced)
}

func TestBackgroundSyncDebouncesOnLastSuccess(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	auth := createValidAuth(t, db, user.ID)

	now := date(2024, time.March, 15).Add(12 * time.Hour)
	require.NoError(t, db.Model(auth).Update("last_sync", now.Add(-10*time.Minute)).Error)

	s := newTestSyncService(db, &fakeClient{}, now)
	user.SyncDebounceMinutes = 60

	result := s.BackgroundSync(context.Background(), user)
	require.True(t, result.Skipped)
	require.Equal(t, "synced recently", result.Reason)
	require.NotNil(t, result.NextAttempt)
}

func TestBackgroundSyncRefusesWithinCooldown(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	auth := createValidAuth(t, db, user.ID)

	now := date(2024, time.March, 15).Add(12 * time.Hour)
	require.NoError(t, db.Model(auth).Update("last_sync_attempt", now.Add(-2*time.Minute)).Error)

	client := &fakeClient{stepsByDate: map[string]int{"2024-03-01": 100}}
	s := newTestSyncService(db, client, now)

	result := s.BackgroundSync(context.Background(), user)
	require.True(t, result.Skipped)
	require.Equal(t, "Sync attempted too recently", result.Reason)
	require.Empty(t, client.stepsCalls)
}

func TestBackgroundSyncStampsAttemptBeforeRunning(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createValidAuth(t, db, user.ID)

	now := date(2024, time.March, 15).Add(12 * time.Hour)
	client := &fakeClient{stepsByDate: map[string]int{"2024-03-01": 100}}
	s := newTestSyncService(db, client, now)

	first := s.BackgroundSync(context.Background(), user)
	require.False(t, first.Skipped)

	// The claim sticks: an immediate second trigger is refused.
	second := s.BackgroundSync(context.Background(), user)
	require.True(t, second.Skipped)
}
