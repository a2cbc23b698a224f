package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"offerhouse/lifecycle"
	"offerhouse/models"
)

// Store 是以記憶體實作的持久層，條件更新的語意與資料庫版本相同
// 用於本機執行與測試
type Store struct {
	mu      sync.RWMutex
	offers  map[uuid.UUID]models.Offer
	bids    map[uuid.UUID]models.Bid
	users   map[uuid.UUID]models.User
	reasons map[uuid.UUID]models.RejectionReason
	history map[uuid.UUID][]models.StatusHistoryEntry
	now     func() time.Time
}

type StoreOption func(*Store)

// WithStoreClock 設定建立資料時使用的時間來源
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		offers:  make(map[uuid.UUID]models.Offer),
		bids:    make(map[uuid.UUID]models.Bid),
		users:   make(map[uuid.UUID]models.User),
		reasons: make(map[uuid.UUID]models.RejectionReason),
		history: make(map[uuid.UUID][]models.StatusHistoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newID(id uuid.UUID) uuid.UUID {
	if id != uuid.Nil {
		return id
	}
	return uuid.Must(uuid.NewV7())
}

func (s *Store) CreateOffer(_ context.Context, offer *models.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	offer.ID = newID(offer.ID)
	if _, ok := s.offers[offer.ID]; ok {
		return fmt.Errorf("memory.Store.CreateOffer: offer %s already exists", offer.ID)
	}
	now := s.now()
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = now
	}
	offer.UpdatedAt = now
	s.offers[offer.ID] = *offer
	return nil
}

func (s *Store) CreateBid(_ context.Context, bid *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bid.ID = newID(bid.ID)
	if bid.CreatedAt.IsZero() {
		bid.CreatedAt = s.now()
	}
	s.bids[bid.ID] = *bid
	return nil
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = newID(user.ID)
	s.users[user.ID] = *user
	return nil
}

func (s *Store) CreateRejectionReason(_ context.Context, reason *models.RejectionReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reason.ID = newID(reason.ID)
	s.reasons[reason.ID] = *reason
	return nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("memory.Store.GetUser: %w", lifecycle.ErrUserNotFound)
	}
	return user, nil
}

func (s *Store) GetOffer(_ context.Context, id uuid.UUID) (models.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	offer, ok := s.offers[id]
	if !ok {
		return models.Offer{}, fmt.Errorf("memory.Store.GetOffer: %w", lifecycle.ErrOfferNotFound)
	}
	return offer, nil
}

func (s *Store) ListBids(_ context.Context, offerID uuid.UUID) ([]models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bids := lo.Filter(lo.Values(s.bids), func(b models.Bid, _ int) bool {
		return b.OfferID == offerID
	})
	sort.Slice(bids, func(i, j int) bool {
		if !bids[i].CreatedAt.Equal(bids[j].CreatedAt) {
			return bids[i].CreatedAt.Before(bids[j].CreatedAt)
		}
		return bytes.Compare(bids[i].ID[:], bids[j].ID[:]) < 0
	})
	return bids, nil
}

func (s *Store) GetBid(_ context.Context, id uuid.UUID) (models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bid, ok := s.bids[id]
	if !ok {
		return models.Bid{}, fmt.Errorf("memory.Store.GetBid: %w", lifecycle.ErrBidNotFound)
	}
	return bid, nil
}

func (s *Store) GetRejectionReason(_ context.Context, id uuid.UUID) (models.RejectionReason, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reason, ok := s.reasons[id]
	if !ok {
		return models.RejectionReason{}, fmt.Errorf("memory.Store.GetRejectionReason: %w", lifecycle.ErrRejectionReasonNotFound)
	}
	return reason, nil
}

// ApplyTransition 只在商品狀態仍為 t.From 時寫入，並新增一筆狀態紀錄
func (s *Store) ApplyTransition(_ context.Context, t lifecycle.Transition) error {
	const op = "memory.Store.ApplyTransition"
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.offers[t.Offer.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, lifecycle.ErrOfferNotFound)
	}
	if current.Status != t.From {
		return fmt.Errorf("%s: %w: offer %s is %s, expected %s", op, lifecycle.ErrConcurrencyConflict, current.ID, current.Status, t.From)
	}
	current.Status = t.Offer.Status
	current.WinnerBidID = t.Offer.WinnerBidID
	current.WinBid = t.Offer.WinBid
	current.AuctionFinishedAt = t.Offer.AuctionFinishedAt
	current.IsActive = t.Offer.IsActive
	current.UpdatedAt = t.At
	s.offers[current.ID] = current

	entry := t.HistoryEntry()
	entry.ID = newID(entry.ID)
	s.history[current.ID] = append(s.history[current.ID], entry)
	return nil
}

func (s *Store) ListHistory(_ context.Context, offerID uuid.UUID) ([]models.StatusHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]models.StatusHistoryEntry, len(s.history[offerID]))
	copy(entries, s.history[offerID])
	return entries, nil
}

// FindDueAuctions 找出拍賣中且已過截止時間、未被標記的商品，依截止時間排序
func (s *Store) FindDueAuctions(_ context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	skipped := lo.Keyify(exclude)
	due := lo.Filter(lo.Values(s.offers), func(o models.Offer, _ int) bool {
		_, skip := skipped[o.ID]
		return !skip &&
			o.Status == models.StatusAuctionStarted &&
			!o.NeedsAttention &&
			o.AuctionFinishedAt != nil &&
			!o.AuctionFinishedAt.After(now)
	})
	sort.Slice(due, func(i, j int) bool {
		if !due[i].AuctionFinishedAt.Equal(*due[j].AuctionFinishedAt) {
			return due[i].AuctionFinishedAt.Before(*due[j].AuctionFinishedAt)
		}
		return due[i].ID.String() < due[j].ID.String()
	})
	return idsOf(due, limit), nil
}

// FindStrandedAuctions 找出已結束拍賣但尚未決定結果的商品
func (s *Store) FindStrandedAuctions(_ context.Context, limit int) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stranded := lo.Filter(lo.Values(s.offers), func(o models.Offer, _ int) bool {
		return o.Status == models.StatusAuctionFinished && !o.NeedsAttention
	})
	sort.Slice(stranded, func(i, j int) bool {
		return stranded[i].UpdatedAt.Before(stranded[j].UpdatedAt)
	})
	return idsOf(stranded, limit), nil
}

func (s *Store) FlagForAttention(_ context.Context, offerID uuid.UUID, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	offer, ok := s.offers[offerID]
	if !ok {
		return fmt.Errorf("memory.Store.FlagForAttention: %w", lifecycle.ErrOfferNotFound)
	}
	offer.NeedsAttention = true
	offer.AttentionNote = note
	s.offers[offerID] = offer
	return nil
}

func idsOf(offers []models.Offer, limit int) []uuid.UUID {
	if limit > 0 && len(offers) > limit {
		offers = offers[:limit]
	}
	return lo.Map(offers, func(o models.Offer, _ int) uuid.UUID {
		return o.ID
	})
}
