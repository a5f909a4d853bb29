package utils

import (
	"context"
	"fmt"
	"time"
)

// AcquireSyncLock takes a best-effort per-user lock so only one Garmin sync
// runs at a time for a given user. When Redis is unreachable the lock is
// granted, the database-side attempt claim still prevents stampedes.
func AcquireSyncLock(userID uint, ttl time.Duration) bool {
	rc := GetRedis()
	if rc == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ok, err := rc.SetNX(ctx, syncLockKey(userID), "1", ttl).Result()
	if err != nil {
		Sugar.Warnf("sync lock acquire failed for user %d: %v", userID, err)
		return true
	}
	return ok
}

// ReleaseSyncLock frees the per-user sync lock.
func ReleaseSyncLock(userID uint) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = rc.Del(ctx, syncLockKey(userID)).Err()
}

func syncLockKey(userID uint) string {
	return fmt.Sprintf("garmin:sync:lock:%d", userID)
}
