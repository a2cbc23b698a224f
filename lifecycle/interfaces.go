//go:generate mockgen -package=lifecycle -destination=mock.go -source=interfaces.go

package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"offerhouse/models"
)

// IPrincipalResolver 定義了取得目前操作者的介面
type IPrincipalResolver interface {
	CurrentPrincipal(ctx context.Context) (Principal, error)
}

// IStore 定義了生命週期引擎需要的持久層操作
type IStore interface {
	GetOffer(ctx context.Context, id uuid.UUID) (models.Offer, error)
	ListBids(ctx context.Context, offerID uuid.UUID) ([]models.Bid, error)
	GetBid(ctx context.Context, id uuid.UUID) (models.Bid, error)
	GetRejectionReason(ctx context.Context, id uuid.UUID) (models.RejectionReason, error)
	// ApplyTransition 在同一個交易中，以 From 為條件更新商品並新增一筆狀態紀錄
	// 若商品狀態已不是 From，回傳 ErrConcurrencyConflict
	ApplyTransition(ctx context.Context, t Transition) error
}

// INotifier 定義了通知觸發的介面，呼叫端不等待通知送達
type INotifier interface {
	Notify(ctx context.Context, n Notification)
}

// Transition 是一次要持久化的狀態轉換
type Transition struct {
	From              models.Status
	Offer             models.Offer
	RejectionReasonID *uuid.UUID
	At                time.Time
}

// HistoryEntry 回傳此轉換對應的狀態紀錄
func (t Transition) HistoryEntry() models.StatusHistoryEntry {
	return models.StatusHistoryEntry{
		OfferID:           t.Offer.ID,
		Status:            t.Offer.Status,
		RejectionReasonID: t.RejectionReasonID,
		CreatedAt:         t.At,
	}
}
