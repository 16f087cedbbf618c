package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-event-booker/internal/pkg/metrics"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// 所有者確認と削除をアトミックに実行する
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// DistributedLock は Redis を使用した分散ロック
type DistributedLock struct {
	client  *redis.Client
	key     string
	value   string
	metrics *metrics.Metrics
}

// LockManager は分散ロックを管理する
type LockManager struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewLockManager は LockManager を作成する。m は nil でもよい
func NewLockManager(client *redis.Client, m *metrics.Metrics) *LockManager {
	return &LockManager{client: client, metrics: m}
}

// AcquireLock はロックを取得する
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*DistributedLock, error) {
	start := time.Now()
	lockKey := fmt.Sprintf("lock:%s", key)
	lockValue := uuid.New().String()

	// SetNX を使用してロックを取得（キーが存在しない場合のみ設定）
	ok, err := m.client.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		m.metrics.ObserveLock(metrics.LockOperationAcquire, metrics.LockStatusFailed, time.Since(start))
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		m.metrics.ObserveLock(metrics.LockOperationAcquire, metrics.LockStatusNotAcquired, time.Since(start))
		return nil, ErrLockNotAcquired
	}
	m.metrics.ObserveLock(metrics.LockOperationAcquire, metrics.LockStatusSuccess, time.Since(start))

	return &DistributedLock{
		client:  m.client,
		key:     lockKey,
		value:   lockValue,
		metrics: m.metrics,
	}, nil
}

// TryLock は1回だけロック取得を試みる
// 他のプロセスが保持している場合は acquired=false を返す
func (m *LockManager) TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error) {
	lock, err := m.AcquireLock(ctx, key, ttl)
	if errors.Is(err, ErrLockNotAcquired) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return lock.Release, true, nil
}

// Release はロックを解放する
func (l *DistributedLock) Release(ctx context.Context) error {
	start := time.Now()
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int()
	if err != nil {
		l.metrics.ObserveLock(metrics.LockOperationRelease, metrics.LockStatusFailed, time.Since(start))
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if result == 0 {
		l.metrics.ObserveLock(metrics.LockOperationRelease, metrics.LockStatusNotAcquired, time.Since(start))
		return ErrLockNotOwned
	}
	l.metrics.ObserveLock(metrics.LockOperationRelease, metrics.LockStatusSuccess, time.Since(start))
	return nil
}
