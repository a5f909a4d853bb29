package garmin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/flexingg/flexingg/models"
	"github.com/flexingg/flexingg/utils"
)

// SyncResult is the outcome of one sync run (or sub-run).
type SyncResult struct {
	Success          bool   `json:"success"`
	StepsSynced      int    `json:"steps_synced"`
	ActivitiesSynced int    `json:"activities_synced"`
	Error            string `json:"error,omitempty"`
}

// BackgroundResult extends SyncResult with the cooldown-skip outcome of an
// automatic sync trigger.
type BackgroundResult struct {
	SyncResult
	Skipped     bool       `json:"skipped,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	NextAttempt *time.Time `json:"next_attempt,omitempty"`
}

const (
	errNoAuthRecord = "no Garmin auth record found"
	errTokenRefresh = "token refresh failed"
)

// SyncService orchestrates token refresh, remote fetching and idempotent
// upserts for one user at a time. Runs are sequential per user; the Redis
// in-flight lock plus the atomic last-attempt claim keep concurrent triggers
// for the same user from racing each other.
type SyncService struct {
	db     *gorm.DB
	client Client

	// Cooldown is the minimum interval between background sync attempts.
	Cooldown time.Duration
	// ActivityLimit caps how many recent activities one run fetches.
	ActivityLimit int
	// ManualSyncMaxDays caps how far back a manual sync reaches, even when
	// the current month is longer.
	ManualSyncMaxDays int

	now func() time.Time
}

// NewSyncService creates a sync service with default cooldown and limits.
func NewSyncService(db *gorm.DB, client Client) *SyncService {
	return &SyncService{
		db:                db,
		client:            client,
		Cooldown:          10 * time.Minute,
		ActivityLimit:     500,
		ManualSyncMaxDays: 30,
		now:               time.Now,
	}
}

func (s *SyncService) loadAuth(userID uint) (*models.GarminAuth, bool) {
	var auth models.GarminAuth
	if err := s.db.Where("user_id = ?", userID).First(&auth).Error; err != nil {
		return nil, false
	}
	return &auth, true
}

// SyncSteps fetches and upserts daily step totals for every calendar date in
// [startDate, endDate] inclusive. Future dates are skipped, a single date's
// failure is logged and isolated, and only newly created rows count toward
// StepsSynced (re-syncing an unchanged day does not increment the counter).
func (s *SyncService) SyncSteps(ctx context.Context, user *models.User, startDate, endDate time.Time) SyncResult {
	auth, ok := s.loadAuth(user.ID)
	if !ok {
		return SyncResult{Error: errNoAuthRecord}
	}

	if err := EnsureValidTokens(ctx, s.db, auth, s.client); err != nil {
		return SyncResult{Error: errTokenRefresh}
	}
	bundle := BundleFromAuth(auth)

	stepsSynced := 0
	today := dateOnly(s.now())

	for d := dateOnly(startDate); !d.After(dateOnly(endDate)); d = d.AddDate(0, 0, 1) {
		if d.After(today) {
			continue
		}
		dateStr := d.Format("2006-01-02")

		summaries, err := s.client.DailySteps(ctx, bundle, dateStr)
		if err != nil {
			utils.Sugar.Warnf("steps endpoint failed for %s: %v, trying daily summary", dateStr, err)
			summaries, err = s.client.DailySummary(ctx, bundle, dateStr)
		}
		if err != nil {
			utils.Sugar.Errorf("error syncing steps for %s for user %d: %v", dateStr, user.ID, err)
			continue
		}
		if len(summaries) == 0 {
			continue
		}
		// A summary without the steps field still records the day as zero.
		steps := 0
		if summaries[0].TotalSteps != nil {
			steps = *summaries[0].TotalSteps
		}

		created, err := upsertDailySteps(s.db, user.ID, dateStr, steps)
		if err != nil {
			utils.Sugar.Errorf("error upserting steps for %s for user %d: %v", dateStr, user.ID, err)
			continue
		}
		if created {
			stepsSynced++
		}
	}

	s.stampLastSync(auth)
	return SyncResult{Success: true, StepsSynced: stepsSynced}
}

// SyncActivities fetches up to the configured limit of recent activities,
// optionally restricted to a local-time date range, and upserts each by
// (user, activity id) with merge-defaults semantics. Items with a missing or
// unparseable start time are skipped with a warning; each successful upsert
// runs the reward engine.
func (s *SyncService) SyncActivities(ctx context.Context, user *models.User, limit int, from, to string) SyncResult {
	auth, ok := s.loadAuth(user.ID)
	if !ok {
		return SyncResult{Error: errNoAuthRecord}
	}

	if err := EnsureValidTokens(ctx, s.db, auth, s.client); err != nil {
		return SyncResult{Error: errTokenRefresh}
	}
	bundle := BundleFromAuth(auth)

	if limit <= 0 {
		limit = s.ActivityLimit
	}

	payloads, err := s.client.SearchActivities(ctx, bundle, 0, limit, from, to)
	if err != nil {
		utils.Sugar.Errorf("activity search failed for user %d: %v", user.ID, err)
		return SyncResult{Error: err.Error()}
	}
	if len(payloads) == 0 {
		utils.Sugar.Infof("no activities found for user %d", user.ID)
		s.stampLastSync(auth)
		return SyncResult{Success: true}
	}

	activitiesSynced := 0
	for i := range payloads {
		p := &payloads[i]
		if p.ActivityID == 0 {
			utils.Sugar.Warnf("skipping activity with missing id for user %d", user.ID)
			continue
		}
		startTime, err := p.StartTime()
		if err != nil {
			utils.Sugar.Warnf("skipping activity %d for user %d: %v", p.ActivityID, user.ID, err)
			continue
		}

		stored, created, err := upsertActivity(s.db, user.ID, p, startTime)
		if err != nil {
			utils.Sugar.Errorf("error processing activity %d for user %d: %v", p.ActivityID, user.ID, err)
			continue
		}
		if created {
			activitiesSynced++
		}

		if err := MaybeRewardActivity(s.db, user, stored); err != nil {
			utils.Sugar.Errorf("reward check failed for activity %d user %d: %v", p.ActivityID, user.ID, err)
		}
	}

	s.stampLastSync(auth)
	return SyncResult{Success: true, ActivitiesSynced: activitiesSynced}
}

// ManualSync runs both sub-syncs for the current month, capped at
// ManualSyncMaxDays. The run is successful only when both sub-syncs succeed.
func (s *SyncService) ManualSync(ctx context.Context, user *models.User) SyncResult {
	end := dateOnly(s.now())
	start := firstOfMonth(end)
	if s.ManualSyncMaxDays > 0 {
		if floor := end.AddDate(0, 0, -(s.ManualSyncMaxDays - 1)); start.Before(floor) {
			start = floor
		}
	}

	steps := s.SyncSteps(ctx, user, start, end)
	activities := s.SyncActivities(ctx, user, s.ActivityLimit, "", "")

	combined := SyncResult{
		Success:          steps.Success && activities.Success,
		StepsSynced:      steps.StepsSynced,
		ActivitiesSynced: activities.ActivitiesSynced,
	}
	combined.Error = joinErrors(steps, activities)
	s.invalidateChartCache(user.ID, combined)
	return combined
}

// BackgroundSync runs the automatic (page-load triggered) sync. It honors the
// user's success-based debounce window, then claims the attempt slot with an
// atomic conditional update of last_sync_attempt so two concurrent triggers
// cannot both pass the cooldown, and finally takes a best-effort Redis lock
// against overlapping in-flight runs. The run is considered successful when
// at least one sub-sync succeeded.
func (s *SyncService) BackgroundSync(ctx context.Context, user *models.User) BackgroundResult {
	auth, ok := s.loadAuth(user.ID)
	if !ok {
		return BackgroundResult{SyncResult: SyncResult{Error: "Garmin account not linked"}}
	}

	now := s.now()

	// Debounce automatic triggers on the last successful sync.
	debounce := time.Duration(user.SyncDebounceMinutes) * time.Minute
	if debounce <= 0 {
		debounce = time.Hour
	}
	if auth.LastSync != nil && now.Sub(*auth.LastSync) < debounce {
		next := auth.LastSync.Add(debounce)
		return BackgroundResult{
			Skipped:     true,
			Reason:      "synced recently",
			NextAttempt: &next,
		}
	}

	// Claim the attempt slot. The conditional update is atomic, so of two
	// concurrent requests only one sees RowsAffected == 1.
	cutoff := now.Add(-s.Cooldown)
	res := s.db.Model(&models.GarminAuth{}).
		Where("user_id = ? AND (last_sync_attempt IS NULL OR last_sync_attempt <= ?)", user.ID, cutoff).
		Update("last_sync_attempt", now)
	if res.Error != nil {
		return BackgroundResult{SyncResult: SyncResult{Error: res.Error.Error()}}
	}
	if res.RowsAffected == 0 {
		var next *time.Time
		if auth.LastSyncAttempt != nil {
			n := auth.LastSyncAttempt.Add(s.Cooldown)
			next = &n
		}
		return BackgroundResult{
			Skipped:     true,
			Reason:      "Sync attempted too recently",
			NextAttempt: next,
		}
	}

	if !utils.AcquireSyncLock(user.ID, 5*time.Minute) {
		return BackgroundResult{Skipped: true, Reason: "sync already in progress"}
	}
	defer utils.ReleaseSyncLock(user.ID)

	utils.Sugar.Infof("background Garmin sync triggered for user %d at %s", user.ID, now.Format(time.RFC3339))

	end := dateOnly(now)
	start := firstOfMonth(end)
	steps := s.SyncSteps(ctx, user, start, end)
	activities := s.SyncActivities(ctx, user, s.ActivityLimit, "", "")

	combined := SyncResult{
		Success:          steps.Success || activities.Success,
		StepsSynced:      steps.StepsSynced,
		ActivitiesSynced: activities.ActivitiesSynced,
	}
	combined.Error = joinErrors(steps, activities)
	s.invalidateChartCache(user.ID, combined)
	return BackgroundResult{SyncResult: combined}
}

// invalidateChartCache drops the user's cached chart series once a sync has
// written new data.
func (s *SyncService) invalidateChartCache(userID uint, result SyncResult) {
	if result.StepsSynced == 0 && result.ActivitiesSynced == 0 {
		return
	}
	utils.InvalidateByPrefix(fmt.Sprintf("cache:chart:%d:", userID))
}

func (s *SyncService) stampLastSync(auth *models.GarminAuth) {
	now := s.now()
	if err := s.db.Model(auth).Update("last_sync", now).Error; err != nil {
		utils.Sugar.Errorf("failed to stamp last_sync for user %d: %v", auth.UserID, err)
	}
}

// upsertDailySteps creates or refreshes the (user, date) step row. Returns
// whether a new row was created.
func upsertDailySteps(db *gorm.DB, userID uint, date string, steps int) (bool, error) {
	var existing models.GarminDailySteps
	err := db.Where("user_id = ? AND date = ?", userID, date).First(&existing).Error
	if err == nil {
		if existing.Steps == steps {
			return false, nil
		}
		return false, db.Model(&existing).Update("steps", steps).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	record := models.GarminDailySteps{UserID: userID, Date: date, Steps: steps}
	if err := db.Create(&record).Error; err != nil {
		return false, err
	}
	return true, nil
}

// upsertActivity creates or merges the (user, activity id) row. Only fields
// the provider actually sent overwrite stored values; nil fetched fields
// leave existing data intact.
func upsertActivity(db *gorm.DB, userID uint, p *ActivityPayload, startTime time.Time) (*models.GarminActivity, bool, error) {
	name := strings.TrimSpace(utils.SanitizeText(p.ActivityName))
	if name == "" {
		name = "Unnamed Activity"
	}
	activityType := p.ActivityType.TypeKey
	if activityType == "" {
		activityType = "unknown"
	}

	var existing models.GarminActivity
	err := db.Where("user_id = ? AND activity_id = ?", userID, p.ActivityID).First(&existing).Error
	if err == nil {
		updates := map[string]interface{}{
			"name":           name,
			"activity_type":  activityType,
			"start_time_utc": startTime,
			"raw_data":       []byte(p.Raw),
		}
		if p.DurationSeconds != nil {
			updates["duration_seconds"] = *p.DurationSeconds
		}
		if p.DistanceMeters != nil {
			updates["distance_meters"] = *p.DistanceMeters
		}
		if p.Calories != nil {
			updates["calories"] = *p.Calories
		}
		if p.AverageHR != nil {
			updates["average_hr"] = *p.AverageHR
		}
		if p.MaxHR != nil {
			updates["max_hr"] = *p.MaxHR
		}
		if err := db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	record := models.GarminActivity{
		UserID:          userID,
		ActivityID:      p.ActivityID,
		Name:            name,
		ActivityType:    activityType,
		StartTimeUTC:    startTime,
		DurationSeconds: p.DurationSeconds,
		DistanceMeters:  p.DistanceMeters,
		Calories:        p.Calories,
		AverageHR:       p.AverageHR,
		MaxHR:           p.MaxHR,
		RawData:         []byte(p.Raw),
	}
	if err := db.Create(&record).Error; err != nil {
		return nil, false, err
	}
	return &record, true, nil
}

func joinErrors(results ...SyncResult) string {
	var parts []string
	for _, r := range results {
		if !r.Success && r.Error != "" {
			parts = append(parts, r.Error)
		}
	}
	return strings.Join(parts, "; ")
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
