package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventRejectedToDraft        EventKind = "offer.rejected_to_draft"
	EventAuctionStarted         EventKind = "offer.auction_started"
	EventQualificationRequired  EventKind = "offer.qualification_required"
	EventCompletedWithWinner    EventKind = "offer.completed_with_winner"
	EventCompletedWithoutWinner EventKind = "offer.completed_without_winner"
	EventBlockedByAdmin         EventKind = "offer.blocked_by_admin"
	EventCanceled               EventKind = "offer.canceled"
)

// Notification 是轉換成功後送往通知系統的事件
type Notification struct {
	OfferID     uuid.UUID
	OwnerID     uuid.UUID
	Kind        EventKind
	WinnerBidID *uuid.UUID
	OccurredAt  time.Time
}

// LogNotifier 只將通知寫入日誌，未設定通知系統時使用
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, notification Notification) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Offer notification",
		slog.String("offerID", notification.OfferID.String()),
		slog.String("kind", string(notification.Kind)),
	)
}
