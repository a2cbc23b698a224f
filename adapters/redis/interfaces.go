//go:generate mockgen -package=redis -destination=mock.go -source=interfaces.go

package redis

import (
	"context"

	"offerhouse/lifecycle"
)

// INotifier 定義了 StreamNotifier 的操作介面
type INotifier interface {
	Start()
	Notify(ctx context.Context, n lifecycle.Notification)
	Close()
}
