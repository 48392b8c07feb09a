package utils

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis connects the shared Redis client. Used by the rate limiter store
// and as a fast-path lock for gateway callback deduplication.
func InitRedis() error {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := RedisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	log.Println("✅ Redis connected:", addr)
	return nil
}

// AcquireCallbackLock takes a short-lived SETNX lock for a gateway order id.
// Returns false when another callback for the same order is already being
// processed. The durable dedupe lives in the gateway_callbacks table; this
// only short-circuits rapid gateway retries.
func AcquireCallbackLock(ctx context.Context, orderID string, ttl time.Duration) bool {
	if RedisClient == nil {
		return true // Redis down must never block reconciliation
	}
	ok, err := RedisClient.SetNX(ctx, "cmi:cb:"+orderID, 1, ttl).Result()
	if err != nil {
		log.Printf("⚠️ Redis callback lock error for %s: %v", orderID, err)
		return true
	}
	return ok
}

// ReleaseCallbackLock drops the lock so a retried callback can be re-checked
// against the ledger (e.g. after a transaction rollback).
func ReleaseCallbackLock(ctx context.Context, orderID string) {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Del(ctx, "cmi:cb:"+orderID).Err(); err != nil {
		log.Printf("⚠️ Redis callback unlock error for %s: %v", orderID, err)
	}
}
