package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

type lockerOptions struct {
	logger        *slog.Logger
	prefix        string
	expiry        time.Duration
	renewInterval time.Duration
}

type LockerOption func(*lockerOptions)

// WithLockerLogger 設置日誌記錄器
func WithLockerLogger(logger *slog.Logger) LockerOption {
	return func(o *lockerOptions) {
		o.logger = logger
	}
}

// WithLockerPrefix 設置鎖的 key 前綴
func WithLockerPrefix(prefix string) LockerOption {
	return func(o *lockerOptions) {
		o.prefix = prefix
	}
}

// WithLockerExpiry 設置鎖過期時間
func WithLockerExpiry(d time.Duration) LockerOption {
	return func(o *lockerOptions) {
		o.expiry = d
	}
}

// WithLockerRenewInterval 設置自動續期間隔
func WithLockerRenewInterval(d time.Duration) LockerOption {
	return func(o *lockerOptions) {
		o.renewInterval = d
	}
}

// Locker 以 redsync 實作跨實例的互斥鎖，持有期間自動續期
type Locker struct {
	rs      *redsync.Redsync
	logger  *slog.Logger
	options lockerOptions
}

func NewLocker(client *redis.Client, opts ...LockerOption) (*Locker, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	// 默認選項
	options := lockerOptions{
		logger: slog.Default(),
		prefix: "offerhouse:lock:",
		expiry: 8 * time.Second,
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}

	// 如果未設置續期間隔，使用過期時間的1/3
	if options.renewInterval <= 0 {
		options.renewInterval = options.expiry / 3
	}

	return &Locker{
		rs:      redsync.New(goredis.NewPool(client)),
		logger:  options.logger.With(slog.String("caller", "Locker")),
		options: options,
	}, nil
}

// TryLock 只嘗試一次取得鎖
// 鎖已被其他實例持有時回傳 acquired=false，只有 redis 通訊錯誤才回傳 error
func (l *Locker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	name := l.options.prefix + key
	mutex := l.rs.NewMutex(
		name,
		redsync.WithExpiry(l.options.expiry),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var commErr *redsync.RedisError
		if errors.As(err, &commErr) {
			return nil, false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
		}
		return nil, false, nil
	}

	renewCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(l.options.renewInterval)
		defer ticker.Stop()

		for {
			select {
			case <-renewCtx.Done():
				return
			case <-ticker.C:
				success, err := mutex.ExtendContext(renewCtx)
				if err != nil || !success {
					l.logger.Warn("Fail to extend lock", slog.String("key", name), slog.Any("error", err))
					return
				}
			}
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel()
			wg.Wait()
			if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil || !ok {
				l.logger.Warn("Fail to release lock", slog.String("key", name), slog.Any("error", err))
			}
		})
	}
	return release, true, nil
}
