package sweeper

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IOfferFinder 定義了排程查詢與標記商品的操作
type IOfferFinder interface {
	// FindDueAuctions 回傳拍賣中、截止時間已過且未被標記的商品，略過 exclude 中的商品
	FindDueAuctions(ctx context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error)
	// FindStrandedAuctions 回傳已結束拍賣但結果尚未決定的商品
	FindStrandedAuctions(ctx context.Context, limit int) ([]uuid.UUID, error)
	// FlagForAttention 標記商品需要人工介入，之後不再自動處理
	FlagForAttention(ctx context.Context, offerID uuid.UUID, note string) error
}

// ILocker 定義了跨排程實例的商品互斥鎖
type ILocker interface {
	// TryLock 嘗試取得鎖，鎖已被持有時回傳 false 而不是錯誤
	TryLock(ctx context.Context, key string) (release func(), acquired bool, err error)
}

// NopLocker 在單一實例部署時使用，互斥交由資料庫的條件更新保證
type NopLocker struct{}

func (NopLocker) TryLock(context.Context, string) (func(), bool, error) {
	return func() {}, true, nil
}
