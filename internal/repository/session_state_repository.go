package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"yourmind-go/internal/counsel"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// SessionStateRepository 保存会话的临时状态：进行中的测试进度和处理中标记。
type SessionStateRepository interface {
	GetTestRun(ctx context.Context, sessionID string) (counsel.TestRun, error)
	SaveTestRun(ctx context.Context, sessionID string, run counsel.TestRun) error
	ClearTestRun(ctx context.Context, sessionID string) error
	// AcquireBusy 尝试占用会话，已被占用时 ok 为 false。lease 用于释放
	AcquireBusy(ctx context.Context, sessionID string) (lease string, ok bool, err error)
	// ReleaseBusy 只释放仍由 lease 持有的占用，过期后被他人占用的不受影响
	ReleaseBusy(ctx context.Context, sessionID, lease string) error
}

type redisSessionStateRepository struct {
	rdb        *redis.Client
	testRunTTL time.Duration
	busyTTL    time.Duration
}

// NewSessionStateRepository 创建基于 Redis 的会话状态存储。
func NewSessionStateRepository(rdb *redis.Client, testRunTTL, busyTTL time.Duration) SessionStateRepository {
	return &redisSessionStateRepository{rdb: rdb, testRunTTL: testRunTTL, busyTTL: busyTTL}
}

func testRunKey(sessionID string) string { return fmt.Sprintf("session:%s:testrun", sessionID) }
func busyKey(sessionID string) string    { return fmt.Sprintf("session:%s:busy", sessionID) }

// GetTestRun 读取测试进度，不存在时返回零值。
func (r *redisSessionStateRepository) GetTestRun(ctx context.Context, sessionID string) (counsel.TestRun, error) {
	var run counsel.TestRun
	data, err := r.rdb.Get(ctx, testRunKey(sessionID)).Bytes()
	if err == redis.Nil {
		return run, nil
	}
	if err != nil {
		return run, fmt.Errorf("failed to get test run: %w", err)
	}
	if err := json.Unmarshal(data, &run); err != nil {
		return counsel.TestRun{}, fmt.Errorf("failed to unmarshal test run: %w", err)
	}
	return run, nil
}

// SaveTestRun 写入测试进度，未选择测试的零值等同于清除。
func (r *redisSessionStateRepository) SaveTestRun(ctx context.Context, sessionID string, run counsel.TestRun) error {
	if !run.Selected() {
		return r.ClearTestRun(ctx, sessionID)
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal test run: %w", err)
	}
	return r.rdb.Set(ctx, testRunKey(sessionID), data, r.testRunTTL).Err()
}

func (r *redisSessionStateRepository) ClearTestRun(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, testRunKey(sessionID)).Err()
}

func (r *redisSessionStateRepository) AcquireBusy(ctx context.Context, sessionID string) (string, bool, error) {
	lease := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, busyKey(sessionID), lease, r.busyTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return lease, true, nil
}

// releaseScript 比较并删除，保证只删除自己的 lease
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *redisSessionStateRepository) ReleaseBusy(ctx context.Context, sessionID, lease string) error {
	if err := releaseScript.Run(ctx, r.rdb, []string{busyKey(sessionID)}, lease).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release session lock: %w", err)
	}
	return nil
}
