package utils

import (
	"context"
	"sync"
	"time"

	"pitstop/config"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HealthStatus is the latest check result for the external dependencies the
// booking flow cannot run without.
type HealthStatus struct {
	Mongo     bool            `json:"mongo"`
	Redis     map[string]bool `json:"redis"`
	Healthy   bool            `json:"healthy"`
	CheckedAt time.Time       `json:"checked_at"`
}

var (
	currentHealth HealthStatus
	healthMu      sync.RWMutex
)

// GetHealthStatus returns the latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	healthMu.RLock()
	defer healthMu.RUnlock()
	return currentHealth
}

// StartHealthMonitor pings Mongo and the named Redis clients on the
// configured interval, starting immediately so /health is meaningful before
// the first tick. A dependency flipping state is logged once per flip.
func StartHealthMonitor(redisClients map[string]*redis.Client, mongoClient *mongo.Client) {
	interval := time.Duration(config.AppConfig.HealthCheckSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			checkDependencies(redisClients, mongoClient)
			<-ticker.C
		}
	}()
}

func checkDependencies(redisClients map[string]*redis.Client, mongoClient *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	next := HealthStatus{
		Redis:     make(map[string]bool, len(redisClients)),
		CheckedAt: time.Now(),
	}

	next.Mongo = mongoClient.Ping(ctx, nil) == nil
	next.Healthy = next.Mongo
	for name, client := range redisClients {
		up := client.Ping(ctx).Err() == nil
		next.Redis[name] = up
		next.Healthy = next.Healthy && up
	}

	healthMu.Lock()
	prev := currentHealth
	currentHealth = next
	healthMu.Unlock()

	if !prev.CheckedAt.IsZero() && prev.Healthy != next.Healthy {
		if next.Healthy {
			GetLogger().Info("health: all dependencies reachable again")
		} else {
			GetLogger().Warn("health: dependency went unhealthy",
				zap.Bool("mongo", next.Mongo),
				zap.Any("redis", next.Redis))
		}
	}
}
