package fitness

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/flexingg/flexingg/models"
)

// Leaderboard scopes.
const (
	ScopeGlobal  = "global"
	ScopeFriends = "friends"
	ScopeGroup   = "group"
)

// LeaderboardPageSize is how many entries follow the podium per page.
const LeaderboardPageSize = 10

// ErrNotGroupMember is returned when a user requests a group-scoped
// leaderboard for a group they do not belong to.
var ErrNotGroupMember = errors.New("not a member of this group")

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	UserID   uint    `json:"user_id"`
	Username string  `json:"username"`
	Value    float64 `json:"value"`
}

// LeaderboardResult carries the podium plus one page of the remainder.
type LeaderboardResult struct {
	Metric       string             `json:"metric"`
	Period       string             `json:"period"`
	Scope        string             `json:"scope"`
	Podium       []LeaderboardEntry `json:"podium"`
	Entries      []LeaderboardEntry `json:"entries"`
	Page         int                `json:"page"`
	TotalPages   int                `json:"total_pages"`
	Participants int                `json:"participants"`
}

// Leaderboard ranks the candidate users of a scope by a metric over a named
// period. Balance metrics read the live balance fields with no date filter;
// activity and step metrics sum records in range, and users with no records
// in range are left out entirely. Ranks are dense and 1-based, ordered by
// descending value with ties broken by ascending username. The top three form
// the podium and the rest paginate from rank 4.
func Leaderboard(db *gorm.DB, user *models.User, metric, period, scope string, groupID string, page int) (*LeaderboardResult, error) {
	candidates, err := resolveScope(db, user, scope, groupID)
	if err != nil {
		return nil, err
	}

	start, end := ResolveRange(period, time.Now().UTC())
	totals, err := metricTotals(db, candidates, metric, start, end)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].total != totals[j].total {
			return totals[i].total > totals[j].total
		}
		return totals[i].name < totals[j].name
	})

	all := make([]LeaderboardEntry, len(totals))
	for i, t := range totals {
		all[i] = LeaderboardEntry{Rank: i + 1, UserID: t.userID, Username: t.name, Value: t.total}
	}

	podium := all
	if len(podium) > 3 {
		podium = all[:3]
	}

	rest := []LeaderboardEntry{}
	if len(all) > 3 {
		rest = all[3:]
	}
	totalPages := (len(rest) + LeaderboardPageSize - 1) / LeaderboardPageSize
	if page < 1 {
		page = 1
	}
	var pageEntries []LeaderboardEntry
	lo := (page - 1) * LeaderboardPageSize
	if lo < len(rest) {
		hi := lo + LeaderboardPageSize
		if hi > len(rest) {
			hi = len(rest)
		}
		pageEntries = rest[lo:hi]
	}

	return &LeaderboardResult{
		Metric:       metric,
		Period:       period,
		Scope:        scope,
		Podium:       podium,
		Entries:      pageEntries,
		Page:         page,
		TotalPages:   totalPages,
		Participants: len(all),
	}, nil
}

// resolveScope returns the candidate users for a leaderboard scope. The
// friends scope excludes the requester; the group scope requires the
// requester to be a member.
func resolveScope(db *gorm.DB, user *models.User, scope, groupID string) ([]models.User, error) {
	switch scope {
	case ScopeFriends:
		ids, err := AcceptedFriendIDs(db, user.ID)
		if err != nil {
			return nil, err
		}
		return usersByID(db, ids)

	case ScopeGroup:
		gid, err := strconv.ParseUint(groupID, 10, 64)
		if err != nil || gid == 0 {
			return nil, errors.New("group_id is required for group scope")
		}
		var membership models.GroupMembership
		err = db.Where("group_id = ? AND user_id = ?", uint(gid), user.ID).First(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotGroupMember
		}
		if err != nil {
			return nil, err
		}
		var memberships []models.GroupMembership
		if err := db.Where("group_id = ?", uint(gid)).Find(&memberships).Error; err != nil {
			return nil, err
		}
		ids := make([]uint, 0, len(memberships))
		for _, m := range memberships {
			ids = append(ids, m.UserID)
		}
		return usersByID(db, ids)

	case ScopeGlobal, "":
		var users []models.User
		if err := db.Find(&users).Error; err != nil {
			return nil, err
		}
		return users, nil

	default:
		return nil, fmt.Errorf("unsupported leaderboard scope: %s", scope)
	}
}

func usersByID(db *gorm.DB, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// metricTotals computes the per-user aggregate for ranking. Users with no
// records in range for an activity/step metric are dropped.
func metricTotals(db *gorm.DB, candidates []models.User, metric string, start, end time.Time) ([]rankedTotal, error) {
	var totals []rankedTotal

	switch metric {
	case MetricCardioCoins:
		for _, u := range candidates {
			totals = append(totals, rankedTotal{userID: u.ID, name: u.Username, total: u.CardioCoins})
		}

	case MetricGymGems:
		for _, u := range candidates {
			totals = append(totals, rankedTotal{userID: u.ID, name: u.Username, total: u.GymGems})
		}

	case MetricSteps:
		for _, u := range candidates {
			var rows []models.GarminDailySteps
			if err := db.Where("user_id = ? AND date BETWEEN ? AND ?",
				u.ID, start.Format("2006-01-02"), end.Format("2006-01-02")).Find(&rows).Error; err != nil {
				return nil, err
			}
			if len(rows) == 0 {
				continue
			}
			sum := 0.0
			for _, r := range rows {
				sum += float64(r.Steps)
			}
			totals = append(totals, rankedTotal{userID: u.ID, name: u.Username, total: sum})
		}

	case MetricCalories:
		for _, u := range candidates {
			rows, err := activitiesInRange(db, u.ID, start, end)
			if err != nil {
				return nil, err
			}
			sum := 0.0
			counted := false
			for i := range rows {
				if rows[i].Calories == nil {
					continue
				}
				sum += *rows[i].Calories
				counted = true
			}
			if !counted {
				continue
			}
			totals = append(totals, rankedTotal{userID: u.ID, name: u.Username, total: sum})
		}

	case MetricSweatScore:
		weights := LoadZoneWeights(db)
		for _, u := range candidates {
			rows, err := activitiesInRange(db, u.ID, start, end)
			if err != nil {
				return nil, err
			}
			if len(rows) == 0 {
				continue
			}
			sum := 0.0
			for i := range rows {
				sum += SweatScore(&rows[i], weights)
			}
			totals = append(totals, rankedTotal{userID: u.ID, name: u.Username, total: sum})
		}

	default:
		return nil, fmt.Errorf("unsupported leaderboard metric: %s", metric)
	}

	return totals, nil
}
