package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{Addr: addr})
	_ = r.WithTimeout(2 * time.Second)
	return r
}

// MarkProcessed records {service,id} for dedup. Returns false when the id
// was already marked, i.e. this delivery is a duplicate.
func MarkProcessed(ctx context.Context, rdb *redis.Client, service, id string) (bool, error) {
	key := fmt.Sprintf(KeyDedup, service, id)
	return rdb.SetNX(ctx, key, "1", TTLDedup).Result()
}
