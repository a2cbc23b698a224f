package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"offerhouse/lifecycle"
	"offerhouse/models"
)

type sweeperOptions struct {
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	locker    ILocker
	now       func() time.Time
}

type Option func(*sweeperOptions)

// WithLogger 設置日誌記錄器
func WithLogger(logger *slog.Logger) Option {
	return func(o *sweeperOptions) {
		o.logger = logger
	}
}

// WithInterval 設置排程間隔
func WithInterval(d time.Duration) Option {
	return func(o *sweeperOptions) {
		o.interval = d
	}
}

// WithBatchSize 設置每次查詢的商品數量
func WithBatchSize(n int) Option {
	return func(o *sweeperOptions) {
		o.batchSize = n
	}
}

// WithLocker 設置跨實例的互斥鎖
func WithLocker(locker ILocker) Option {
	return func(o *sweeperOptions) {
		o.locker = locker
	}
}

// WithClock 設置時間來源
func WithClock(now func() time.Time) Option {
	return func(o *sweeperOptions) {
		o.now = now
	}
}

// Report 是一次排程執行的結果
type Report struct {
	Finished  int
	Recovered int
	Skipped   int
	Failed    int
	Flagged   int
}

// Sweeper 定期找出截止時間已過的拍賣，並且對每個商品只執行一次 finishAuction
type Sweeper struct {
	engine     *lifecycle.Engine
	finder     IOfferFinder
	logger     *slog.Logger
	options    sweeperOptions
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

func New(engine *lifecycle.Engine, finder IOfferFinder, opts ...Option) (*Sweeper, error) {
	if engine == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if finder == nil {
		return nil, errors.New("finder cannot be nil")
	}

	// 默認選項
	options := sweeperOptions{
		logger:    slog.Default(),
		interval:  time.Minute,
		batchSize: 100,
		locker:    NopLocker{},
		now:       time.Now,
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}
	if options.interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", options.interval)
	}
	if options.batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", options.batchSize)
	}

	return &Sweeper{
		engine:  engine,
		finder:  finder,
		logger:  options.logger.With(slog.String("caller", "CompletionSweeper")),
		options: options,
	}, nil
}

// Start 啟動定期排程，重複呼叫不會啟動第二個排程
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFunc = cancel
	s.running = true
	s.logger.Info("Start completion sweeper", slog.Duration("interval", s.options.interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.logger.Info("Completion sweeper stopped")
		ticker := time.NewTicker(s.options.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// 每次排程都執行完畢，不因關閉而中斷
				s.Sweep(context.WithoutCancel(ctx))
			}
		}
	}()
}

// Close 停止排程並等待執行中的排程結束
func (s *Sweeper) Close() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancelFunc()
	s.mu.Unlock()
	s.wg.Wait()
}

// Sweep 執行一次排程
//  1. 先處理已結束但結果未決定的商品
//  2. 反覆查詢截止時間已過的商品，直到沒有可處理的商品
//
// 同一次排程中失敗的商品不會再重試，留待下一次排程
func (s *Sweeper) Sweep(ctx context.Context) Report {
	ctx = lifecycle.SystemContext(ctx)
	var report Report
	attempted := make(map[uuid.UUID]struct{})

	stranded, err := s.finder.FindStrandedAuctions(ctx, s.options.batchSize)
	if err != nil {
		s.logger.Error("Fail to find stranded auctions", slog.Any("error", err))
	}
	for _, id := range stranded {
		attempted[id] = struct{}{}
		s.process(ctx, id, models.StatusAuctionFinished, &report)
	}

	// 失敗的商品會留在查詢結果的最前面，以 exclude 略過才能處理後面的商品
	now := s.options.now()
	for {
		due, err := s.finder.FindDueAuctions(ctx, now, lo.Keys(attempted), s.options.batchSize)
		if err != nil {
			s.logger.Error("Fail to find due auctions", slog.Any("error", err))
			break
		}
		due = lo.Reject(due, func(id uuid.UUID, _ int) bool {
			_, ok := attempted[id]
			return ok
		})
		if len(due) == 0 {
			break
		}
		for _, id := range due {
			attempted[id] = struct{}{}
			s.process(ctx, id, models.StatusAuctionStarted, &report)
		}
	}

	if report != (Report{}) {
		s.logger.Info("Completion sweep finished",
			slog.Int("finished", report.Finished),
			slog.Int("recovered", report.Recovered),
			slog.Int("skipped", report.Skipped),
			slog.Int("failed", report.Failed),
			slog.Int("flagged", report.Flagged),
		)
	}
	return report
}

// process 在互斥鎖內處理一個商品，狀態已不是 expected 的商品視為已被處理
func (s *Sweeper) process(ctx context.Context, offerID uuid.UUID, expected models.Status, report *Report) {
	logger := s.logger.With(slog.String("offerID", offerID.String()))

	release, acquired, err := s.options.locker.TryLock(ctx, offerID.String())
	if err != nil {
		logger.Error("Fail to acquire offer lock", slog.Any("error", err))
		report.Failed++
		return
	}
	if !acquired {
		logger.Debug("Offer is locked by another sweeper")
		report.Skipped++
		return
	}
	defer release()

	c, err := s.engine.Bind(ctx, offerID)
	if err != nil {
		s.fail(ctx, logger, offerID, err, report)
		return
	}
	if c.Status() != expected {
		logger.Debug("Offer already handled", slog.String("status", c.Status().String()))
		report.Skipped++
		return
	}

	switch expected {
	case models.StatusAuctionStarted:
		err = c.FinishAuction(ctx)
	case models.StatusAuctionFinished:
		err = c.Complete(ctx, nil)
	}
	if err != nil {
		if errors.Is(err, lifecycle.ErrConcurrencyConflict) {
			logger.Debug("Offer was transitioned concurrently")
			report.Skipped++
			return
		}
		s.fail(ctx, logger, offerID, err, report)
		return
	}

	if expected == models.StatusAuctionFinished {
		report.Recovered++
	} else {
		report.Finished++
	}
	logger.Debug("Auction settled", slog.String("status", c.Status().String()))
}

func (s *Sweeper) fail(ctx context.Context, logger *slog.Logger, offerID uuid.UUID, err error, report *Report) {
	if !lifecycle.IsFatal(err) {
		logger.Error("Fail to settle auction, retry on next sweep", slog.Any("error", err))
		report.Failed++
		return
	}
	logger.Error("Fail to settle auction, flag for manual intervention", slog.Any("error", err))
	if flagErr := s.finder.FlagForAttention(ctx, offerID, err.Error()); flagErr != nil {
		logger.Error("Fail to flag offer", slog.Any("error", flagErr))
		report.Failed++
		return
	}
	report.Flagged++
}
