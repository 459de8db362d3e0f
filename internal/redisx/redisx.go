package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Cached status for quick polling: order_status:{order_id} -> "preparing"
	KeyOrderStatus = "order_status:%s"
)

var TTLStatusCache = 5 * time.Minute

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// GetStatus returns the cached status string, or "" on miss or error.
// The cache is best-effort; the document store stays the truth.
func GetStatus(ctx context.Context, rdb *redis.Client, orderID string) string {
	s, err := rdb.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Result()
	if err != nil {
		return ""
	}
	return s
}

func SetStatus(ctx context.Context, rdb *redis.Client, orderID, status string) {
	_ = rdb.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), status, TTLStatusCache).Err()
}

func DropStatus(ctx context.Context, rdb *redis.Client, orderID string) {
	_ = rdb.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err()
}
