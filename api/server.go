package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"

	"offerhouse/adapters/db"
	"offerhouse/adapters/memory"
	redisAdapter "offerhouse/adapters/redis"
	"offerhouse/lifecycle"
	"offerhouse/sweeper"
)

type ServerImpl struct {
	repo        IRepository
	engine      *lifecycle.Engine
	sweeper     *sweeper.Sweeper
	locker      sweeper.ILocker
	notifier    redisAdapter.INotifier
	htmlChecker *bluemonday.Policy
	redisClient *redis.Client
	logger      *slog.Logger
	now         func() time.Time

	config ServerConfig
}

type serverOptions struct {
	logger *slog.Logger
	now    func() time.Time
	locker sweeper.ILocker
}

type ServerOption func(*serverOptions)

// WithServerLogger 設置日誌記錄器
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// WithServerClock 設置時間來源
func WithServerClock(now func() time.Time) ServerOption {
	return func(o *serverOptions) {
		o.now = now
	}
}

// WithServerLocker 設置出價與排程使用的互斥鎖
func WithServerLocker(locker sweeper.ILocker) ServerOption {
	return func(o *serverOptions) {
		o.locker = locker
	}
}

// NewServer 依設定初始化持久層、redis、生命週期引擎與排程
func NewServer(config ServerConfig, opts ...ServerOption) (*ServerImpl, error) {
	const op = "NewServer"

	// 默認選項
	options := serverOptions{
		logger: slog.Default(),
		now:    time.Now,
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}

	// 初始化持久層
	var repo IRepository
	switch config.StoreDriver {
	case StoreDriverMemory:
		repo = memory.NewStore(memory.WithStoreClock(options.now))
	case StoreDriverPostgres, "":
		conn, err := db.Open(config.DB)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
		}
		if err := db.Migrate(context.Background(), conn); err != nil {
			return nil, fmt.Errorf("[%s] Fail to migrate database, err=%w", op, err)
		}
		store, err := db.NewStore(conn, db.WithStoreLogger(options.logger))
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to create store, err=%w", op, err)
		}
		repo = store
	default:
		return nil, fmt.Errorf("[%s] Unknown store driver %q", op, config.StoreDriver)
	}

	impl := &ServerImpl{
		repo:        repo,
		htmlChecker: bluemonday.UGCPolicy(),
		logger:      options.logger.With(slog.String("caller", "Server")),
		now:         options.now,
		config:      config,
		locker:      options.locker,
	}

	// 初始化Redis連線，未設定時通知只寫入日誌，互斥交由資料庫條件更新
	engineOpts := []lifecycle.EngineOption{
		lifecycle.WithEngineLogger(options.logger),
		lifecycle.WithEngineClock(options.now),
	}
	if config.Redis.Addr != "" {
		impl.redisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		notifier, err := redisAdapter.NewStreamNotifier(
			impl.redisClient,
			config.Redis.StreamKeys.Notification,
			redisAdapter.WithNotifierLogger(options.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to create notifier, err=%w", op, err)
		}
		impl.notifier = notifier
		engineOpts = append(engineOpts, lifecycle.WithEngineNotifier(notifier))

		if impl.locker == nil && config.Sweeper.LockEnabled {
			locker, err := redisAdapter.NewLocker(
				impl.redisClient,
				redisAdapter.WithLockerLogger(options.logger),
				redisAdapter.WithLockerPrefix(config.Redis.KeyPrefix+"lock:"),
				redisAdapter.WithLockerExpiry(config.Sweeper.LockExpiry),
			)
			if err != nil {
				return nil, fmt.Errorf("[%s] Fail to create locker, err=%w", op, err)
			}
			impl.locker = locker
		}
	}
	if impl.locker == nil {
		impl.locker = sweeper.NewLocalLocker()
	}

	engine, err := lifecycle.NewEngine(repo, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create lifecycle engine, err=%w", op, err)
	}
	impl.engine = engine

	sweeperOpts := []sweeper.Option{
		sweeper.WithLogger(options.logger),
		sweeper.WithClock(options.now),
		sweeper.WithLocker(impl.locker),
	}
	if config.Sweeper.Interval > 0 {
		sweeperOpts = append(sweeperOpts, sweeper.WithInterval(config.Sweeper.Interval))
	}
	if config.Sweeper.BatchSize > 0 {
		sweeperOpts = append(sweeperOpts, sweeper.WithBatchSize(config.Sweeper.BatchSize))
	}
	impl.sweeper, err = sweeper.New(engine, repo, sweeperOpts...)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create sweeper, err=%w", op, err)
	}

	return impl, nil
}

// Repository 回傳目前使用的持久層
func (impl *ServerImpl) Repository() IRepository {
	return impl.repo
}

func (impl *ServerImpl) Start() {
	if impl.notifier != nil {
		impl.notifier.Start()
	}
	impl.sweeper.Start()
}

func (impl *ServerImpl) Close() {
	impl.sweeper.Close()
	if impl.notifier != nil {
		impl.notifier.Close()
	}
	if impl.redisClient != nil {
		if err := impl.redisClient.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			impl.logger.Error("Fail to close redis client", slog.Any("error", err))
		}
	}
}

// RegisterHandlers 註冊所有路由
func (impl *ServerImpl) RegisterHandlers(router gin.IRouter) {
	offers := router.Group("/offers", impl.AuthMiddleware())
	offers.POST("", impl.PostOffer)
	offers.GET("/:offerID", impl.GetOffer)
	offers.GET("/:offerID/history", impl.GetOfferHistory)
	offers.POST("/:offerID/bids", impl.PostBid)
	offers.POST("/:offerID/verify", impl.PostOfferOperation(lifecycle.OpVerify))
	offers.POST("/:offerID/draft", impl.PostOfferOperation(lifecycle.OpDraft))
	offers.POST("/:offerID/start-auction", impl.PostOfferOperation(lifecycle.OpStartAuction))
	offers.POST("/:offerID/qualify", impl.PostOfferOperation(lifecycle.OpQualify))
	offers.POST("/:offerID/complete", impl.PostOfferOperation(lifecycle.OpComplete))
	offers.POST("/:offerID/cancel", impl.PostOfferOperation(lifecycle.OpCancel))
	offers.POST("/:offerID/block", impl.PostOfferOperation(lifecycle.OpBlockByAdmin))
}
