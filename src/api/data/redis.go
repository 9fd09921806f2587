package data

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	noncePrefix = "nonce:"
	streamFeed  = "sociva.feed"
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

func SetNonce(ctx context.Context, rdb *redis.Client, addr, nonce string) error {
	return rdb.Set(ctx, noncePrefix+addr, nonce, 5*time.Minute).Err()
}

func GetAndDelNonce(ctx context.Context, rdb *redis.Client, addr string) (string, error) {
	return rdb.GetDel(ctx, noncePrefix+addr).Result()
}

// PublishFeedEvent notifies stream consumers that the log changed and the
// feed projection is stale. Best effort: the feed is rebuilt from the log on
// every read anyway.
func PublishFeedEvent(ctx context.Context, rdb *redis.Client, payload map[string]any) {
	if err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamFeed,
		Values: payload,
	}).Err(); err != nil {
		log.Printf("feed event: %v", err)
	}
}
