package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"offerhouse/models"
)

// BidSnapshot 是商品出價的唯讀視圖，只用來決定拍賣結果
// 第一次讀取時才會向持久層載入，同一次轉換中重複使用
type BidSnapshot struct {
	store   IStore
	offerID uuid.UUID
	bids    []models.Bid
	loaded  bool
}

func newBidSnapshot(store IStore, offerID uuid.UUID) *BidSnapshot {
	return &BidSnapshot{store: store, offerID: offerID}
}

func (s *BidSnapshot) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	bids, err := s.store.ListBids(ctx, s.offerID)
	if err != nil {
		return fmt.Errorf("failed to list bids of offer %s: %w", s.offerID, err)
	}
	s.bids = bids
	s.loaded = true
	return nil
}

// Count 回傳出價數量
func (s *BidSnapshot) Count(ctx context.Context) (int, error) {
	if err := s.load(ctx); err != nil {
		return 0, err
	}
	return len(s.bids), nil
}

// List 回傳所有出價的複本
func (s *BidSnapshot) List(ctx context.Context) ([]models.Bid, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	out := make([]models.Bid, len(s.bids))
	copy(out, s.bids)
	return out, nil
}

// ByID 取得屬於此商品的出價，不存在或屬於其他商品時回傳 ErrBidNotFound
func (s *BidSnapshot) ByID(ctx context.Context, id uuid.UUID) (models.Bid, error) {
	bid, err := s.store.GetBid(ctx, id)
	if err != nil {
		return models.Bid{}, err
	}
	if bid.OfferID != s.offerID {
		return models.Bid{}, fmt.Errorf("%w: bid %s belongs to another offer", ErrBidNotFound, id)
	}
	return bid, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrBidNotFound) || errors.Is(err, ErrRejectionReasonNotFound)
}
