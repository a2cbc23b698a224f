package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"offerhouse/models"
)

type engineOptions struct {
	resolver IPrincipalResolver
	notifier INotifier
	logger   *slog.Logger
	now      func() time.Time
}

type EngineOption func(*engineOptions)

// WithEngineResolver 設置操作者解析器
func WithEngineResolver(resolver IPrincipalResolver) EngineOption {
	return func(o *engineOptions) {
		o.resolver = resolver
	}
}

// WithEngineNotifier 設置通知觸發器
func WithEngineNotifier(notifier INotifier) EngineOption {
	return func(o *engineOptions) {
		o.notifier = notifier
	}
}

// WithEngineLogger 設置日誌記錄器
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithEngineClock 設置時間來源
func WithEngineClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) {
		o.now = now
	}
}

// Engine 是商品生命週期的進入點
type Engine struct {
	store    IStore
	guard    *Guard
	notifier INotifier
	logger   *slog.Logger
	now      func() time.Time
	table    strategyTable
}

func NewEngine(store IStore, opts ...EngineOption) (*Engine, error) {
	const op = "lifecycle.NewEngine"
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}

	// 默認選項
	options := engineOptions{
		resolver: ContextResolver{},
		logger:   slog.Default(),
		now:      time.Now,
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}
	if options.notifier == nil {
		options.notifier = LogNotifier{Logger: options.logger}
	}

	table := newStrategyTable()
	if err := table.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Engine{
		store:    store,
		guard:    NewGuard(options.resolver),
		notifier: options.notifier,
		logger:   options.logger.With(slog.String("caller", "LifecycleEngine")),
		now:      options.now,
		table:    table,
	}, nil
}

// Bind 載入商品並依其狀態綁定策略
func (e *Engine) Bind(ctx context.Context, offerID uuid.UUID) (*Context, error) {
	const op = "lifecycle.Engine.Bind"
	offer, err := e.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e.BindOffer(offer)
}

// BindOffer 綁定已經載入的商品
func (e *Engine) BindOffer(offer models.Offer) (*Context, error) {
	const op = "lifecycle.Engine.BindOffer"
	s, err := e.table.resolve(offer.Status)
	if err != nil {
		e.logger.Error("Offer has an unmapped status", slog.String("offerID", offer.ID.String()), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c := &Context{
		engine:   e,
		offer:    offer,
		strategy: s,
	}
	c.reset()
	return c, nil
}
