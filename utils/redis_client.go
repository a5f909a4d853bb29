package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flexingg/flexingg/config"
)

var (
	redisClient *redis.Client
	redisMu     sync.Mutex
	redisSet    bool
)

// SetRedis installs a Redis client explicitly. Passing nil disables Redis,
// callers treat a nil client as a cache miss / granted lock.
func SetRedis(client *redis.Client) {
	redisMu.Lock()
	defer redisMu.Unlock()
	redisClient = client
	redisSet = true
}

// GetRedis returns a singleton Redis client based on loaded config.
func GetRedis() *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()
	if redisSet {
		return redisClient
	}
	cfg := config.Get()
	redisClient = redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	redisSet = true
	// Optional: ping to validate; ignore error to allow fallback paths
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = redisClient.Ping(ctx).Err()
	return redisClient
}
