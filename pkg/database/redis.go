// Package database 管理关系数据库与 Redis 连接。
package database

import (
	"context"
	"fmt"
	"time"

	"yourmind-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

var RDB *redis.Client

// NewRedis 创建 Redis 客户端并在 5 秒内完成连通性检查。
func NewRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// InitRedis 初始化全局 Redis 客户端连接
func InitRedis(addr, password string, db int) {
	var err error
	RDB, err = NewRedis(addr, password, db)
	if err != nil {
		log.Fatal("failed to connect to redis", err)
	}
	log.Info("Redis client connected successfully")
}
