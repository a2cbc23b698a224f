package redis

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/chanx"

	"offerhouse/lifecycle"
)

type notifierOptions struct {
	logger     *slog.Logger
	bufferSize int
	maxLen     int64
}

type NotifierOption func(*notifierOptions)

// WithNotifierLogger 設置日誌記錄器
func WithNotifierLogger(logger *slog.Logger) NotifierOption {
	return func(o *notifierOptions) {
		o.logger = logger
	}
}

// WithNotifierBufferSize 設置緩衝大小
func WithNotifierBufferSize(size int) NotifierOption {
	return func(o *notifierOptions) {
		o.bufferSize = size
	}
}

// WithNotifierMaxLen 設置 stream 的大約最大長度，0 表示不限制
func WithNotifierMaxLen(n int64) NotifierOption {
	return func(o *notifierOptions) {
		o.maxLen = n
	}
}

// StreamNotifier 將商品狀態通知寫入 redis stream
// 通知在提交之後才送出，寫入失敗只記錄日誌，不影響已完成的轉換
type StreamNotifier struct {
	client     *redis.Client
	stream     string
	upstream   *chanx.UnboundedChan[map[string]any]
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
	logger     *slog.Logger
	options    notifierOptions
}

func NewStreamNotifier(client *redis.Client, stream string, opts ...NotifierOption) (*StreamNotifier, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if stream == "" {
		return nil, errors.New("stream cannot be empty")
	}

	// 默認選項
	options := notifierOptions{
		logger:     slog.Default(),
		bufferSize: 100,
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}

	return &StreamNotifier{
		client:  client,
		stream:  stream,
		closed:  true,
		logger:  options.logger.With(slog.String("caller", "StreamNotifier"), slog.String("stream", stream)),
		options: options,
	}, nil
}

func (n *StreamNotifier) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.upstream = chanx.NewUnboundedChan[map[string]any](ctx, n.options.bufferSize)
	n.cancelFunc = cancel
	n.closed = false
	n.logger.Info("Start stream notifier")

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer n.logger.Info("Stream notifier goroutine stopped")

		for {
			select {
			case <-ctx.Done():
				return
			case message, ok := <-n.upstream.Out:
				if !ok {
					return
				}
				args := &redis.XAddArgs{
					Stream: n.stream,
					Values: message,
				}
				if n.options.maxLen > 0 {
					args.MaxLen = n.options.maxLen
					args.Approx = true
				}
				id, err := n.client.XAdd(ctx, args).Result()
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					n.logger.Error("Fail to publish notification", slog.Any("error", err))
					continue
				}
				n.logger.Debug("Notification published", slog.String("messageId", id))
			}
		}
	}()
}

// Notify 將通知放入緩衝後立即返回
func (n *StreamNotifier) Notify(_ context.Context, notification lifecycle.Notification) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	logger := n.logger.With(
		slog.String("offerID", notification.OfferID.String()),
		slog.String("kind", string(notification.Kind)),
	)
	if n.closed {
		logger.Warn("Drop notification, notifier is closed")
		return
	}

	message, err := EncodeNotification(notification)
	if err != nil {
		logger.Error("Fail to encode notification", slog.Any("error", err))
		return
	}
	n.upstream.In <- message
}

func (n *StreamNotifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.logger.Info("Close stream notifier")
	n.closed = true
	n.cancelFunc()
	n.mu.Unlock()
	n.wg.Wait()
	n.logger.Info("Stream notifier closed")
}
