package fitness

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/flexingg/flexingg/models"
	"github.com/flexingg/flexingg/utils"
)

// Metrics the chart and leaderboard endpoints understand. The balance metrics
// are leaderboard-only.
const (
	MetricSteps       = "steps"
	MetricCalories    = "calories"
	MetricSweatScore  = "sweat_score"
	MetricCardioCoins = "cardio_coins"
	MetricGymGems     = "gym_gems"
)

// ChartPoint is one day of a cumulative series.
type ChartPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// FriendSeries is one friend's cumulative series.
type FriendSeries struct {
	Name string       `json:"name"`
	Data []ChartPoint `json:"data"`
}

// PodiumEntry is one of the top three totals in range.
type PodiumEntry struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// ChartStats summarizes the requester against their friends.
type ChartStats struct {
	UserTotal      int    `json:"user_total"`
	FriendsAverage int    `json:"friends_average"`
	UserRank       *int   `json:"user_rank"`
	Sentence       string `json:"sentence,omitempty"`
}

// ChartData is the response body of the chart endpoints.
type ChartData struct {
	UserData    []ChartPoint   `json:"user_data"`
	FriendsData []FriendSeries `json:"friends_data"`
	PodiumData  []PodiumEntry  `json:"podium_data"`
	Stats       ChartStats     `json:"stats"`
	DateRange   DateRange      `json:"date_range"`
}

// DateRange is the inclusive range a chart covers.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type rankedTotal struct {
	userID uint
	name   string
	total  float64
}

// BuildChartData builds the cumulative per-day series for the requesting user
// and each accepted friend over the named period, plus podium, friends
// average, the requester's rank among nonzero totals and an equivalence
// sentence. Every calendar day in range gets a point, missing days contribute
// zero rather than gaps.
func BuildChartData(db *gorm.DB, user *models.User, metric, period string, today time.Time, rng *rand.Rand) (*ChartData, error) {
	start, end := ResolveRange(period, today)

	var weights map[int]float64
	if metric == MetricSweatScore {
		weights = LoadZoneWeights(db)
	}

	userDaily, err := dailyTotals(db, user.ID, metric, start, end, weights)
	if err != nil {
		return nil, err
	}
	userSeries, userTotal := cumulativeSeries(userDaily, start, end)

	var ranked []rankedTotal
	if userTotal > 0 {
		ranked = append(ranked, rankedTotal{userID: user.ID, name: user.Username, total: userTotal})
	}

	friendIDs, err := AcceptedFriendIDs(db, user.ID)
	if err != nil {
		return nil, err
	}

	friendsData := make([]FriendSeries, 0, len(friendIDs))
	var friendsTotals []float64
	for _, friendID := range friendIDs {
		var friend models.User
		if err := db.First(&friend, friendID).Error; err != nil {
			continue
		}
		friendDaily, err := dailyTotals(db, friend.ID, metric, start, end, weights)
		if err != nil {
			continue
		}
		series, total := cumulativeSeries(friendDaily, start, end)
		friendsData = append(friendsData, FriendSeries{Name: friend.Username, Data: series})
		if total > 0 {
			friendsTotals = append(friendsTotals, total)
			ranked = append(ranked, rankedTotal{userID: friend.ID, name: friend.Username, total: total})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].total != ranked[j].total {
			return ranked[i].total > ranked[j].total
		}
		return ranked[i].name < ranked[j].name
	})

	podium := make([]PodiumEntry, 0, 3)
	for i := 0; i < len(ranked) && i < 3; i++ {
		podium = append(podium, PodiumEntry{Name: ranked[i].name, Value: int(ranked[i].total)})
	}

	var friendsAverage float64
	if len(friendsTotals) > 0 {
		sum := 0.0
		for _, v := range friendsTotals {
			sum += v
		}
		friendsAverage = sum / float64(len(friendsTotals))
	}

	var userRank *int
	for i := range ranked {
		if ranked[i].userID == user.ID {
			rank := i + 1
			userRank = &rank
			break
		}
	}

	stats := ChartStats{
		UserTotal:      int(userTotal),
		FriendsAverage: int(friendsAverage),
		UserRank:       userRank,
	}
	switch metric {
	case MetricSteps:
		stats.Sentence = RelateSteps(int(userTotal), rng)
	case MetricCalories:
		stats.Sentence = RelateCalories(int(userTotal), rng)
	}

	return &ChartData{
		UserData:    userSeries,
		FriendsData: friendsData,
		PodiumData:  podium,
		Stats:       stats,
		DateRange:   DateRange{Start: start.Format("2006-01-02"), End: end.Format("2006-01-02")},
	}, nil
}

// AcceptedFriendIDs returns the peers of a user across accepted friendships
// in either direction, deduplicated, self excluded.
func AcceptedFriendIDs(db *gorm.DB, userID uint) ([]uint, error) {
	var edges []models.Friendship
	if err := db.Where("status = ? AND (from_user_id = ? OR to_user_id = ?)",
		models.FriendshipAccepted, userID, userID).Find(&edges).Error; err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(edges))
	for _, e := range edges {
		if e.FromUserID == userID {
			ids = append(ids, e.ToUserID)
		} else {
			ids = append(ids, e.FromUserID)
		}
	}
	return utils.UniqueUint(ids), nil
}

// dailyTotals sums one user's metric per calendar day within the inclusive
// range, keyed by YYYY-MM-DD.
func dailyTotals(db *gorm.DB, userID uint, metric string, start, end time.Time, weights map[int]float64) (map[string]float64, error) {
	totals := map[string]float64{}

	switch metric {
	case MetricSteps:
		var rows []models.GarminDailySteps
		if err := db.Where("user_id = ? AND date BETWEEN ? AND ?",
			userID, start.Format("2006-01-02"), end.Format("2006-01-02")).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			totals[row.Date] = float64(row.Steps)
		}

	case MetricCalories:
		rows, err := activitiesInRange(db, userID, start, end)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			if rows[i].Calories == nil || *rows[i].Calories == 0 {
				continue
			}
			key := rows[i].StartTimeUTC.Format("2006-01-02")
			totals[key] += *rows[i].Calories
		}

	case MetricSweatScore:
		rows, err := activitiesInRange(db, userID, start, end)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			key := rows[i].StartTimeUTC.Format("2006-01-02")
			totals[key] += SweatScore(&rows[i], weights)
		}

	default:
		return nil, fmt.Errorf("unsupported chart metric: %s", metric)
	}

	return totals, nil
}

func activitiesInRange(db *gorm.DB, userID uint, start, end time.Time) ([]models.GarminActivity, error) {
	var rows []models.GarminActivity
	err := db.Where("user_id = ? AND start_time_utc >= ? AND start_time_utc < ?",
		userID, start, end.AddDate(0, 0, 1)).Find(&rows).Error
	return rows, err
}

// cumulativeSeries expands per-day totals into a running-total series with
// one point per calendar day in [start, end], and returns the range total.
func cumulativeSeries(daily map[string]float64, start, end time.Time) ([]ChartPoint, float64) {
	var series []ChartPoint
	running := 0.0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		running += daily[key]
		series = append(series, ChartPoint{Date: key, Value: running})
	}
	return series, running
}
