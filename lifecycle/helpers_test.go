package lifecycle_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"offerhouse/adapters/memory"
	"offerhouse/lifecycle"
	"offerhouse/models"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	t      *testing.T
	at     time.Time
	store  *memory.Store
	engine *lifecycle.Engine
	owner  models.User
	admin  models.User
	other  models.User
}

func newFixture(t *testing.T, opts ...lifecycle.EngineOption) *fixture {
	f := &fixture{
		t:  t,
		at: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.at }
	f.store = memory.NewStore(memory.WithStoreClock(clock))

	ctx := context.Background()
	f.owner = models.User{Username: "owner", Role: models.RoleUser, IsActive: true}
	f.admin = models.User{Username: "admin", Role: models.RoleAdmin, IsActive: true}
	f.other = models.User{Username: "other", Role: models.RoleUser, IsActive: true}
	require.NoError(t, f.store.CreateUser(ctx, &f.owner))
	require.NoError(t, f.store.CreateUser(ctx, &f.admin))
	require.NoError(t, f.store.CreateUser(ctx, &f.other))

	opts = append([]lifecycle.EngineOption{
		lifecycle.WithEngineClock(clock),
		lifecycle.WithEngineLogger(discardLogger),
	}, opts...)
	engine, err := lifecycle.NewEngine(f.store, opts...)
	require.NoError(t, err)
	f.engine = engine
	return f
}

func (f *fixture) as(u models.User) context.Context {
	return lifecycle.WithPrincipal(context.Background(), lifecycle.Principal{
		ID:       u.ID,
		Role:     u.Role,
		IsActive: u.IsActive,
	})
}

func (f *fixture) system() context.Context {
	return lifecycle.SystemContext(context.Background())
}

// offer 建立一個指定狀態的商品，拍賣中的商品截止時間設為現在
func (f *fixture) offer(status models.Status, mutators ...func(*models.Offer)) models.Offer {
	f.t.Helper()
	offer := models.Offer{
		UserID:              f.owner.ID,
		Title:               "Vintage camera",
		Description:         "Works fine",
		AuctionDurationDays: 3,
		StartPrice:          decimal.NewNullDecimal(decimal.NewFromInt(100)),
		Step:                decimal.NewNullDecimal(decimal.NewFromInt(10)),
		IsActive:            true,
		Status:              status,
	}
	if status == models.StatusAuctionStarted || status == models.StatusAuctionFinished {
		deadline := f.at
		offer.AuctionFinishedAt = &deadline
	}
	for _, mutate := range mutators {
		mutate(&offer)
	}
	require.NoError(f.t, f.store.CreateOffer(context.Background(), &offer))
	return offer
}

func (f *fixture) bids(offer models.Offer, n int) []models.Bid {
	f.t.Helper()
	bids := make([]models.Bid, 0, n)
	for i := 0; i < n; i++ {
		bid := models.Bid{
			OfferID:   offer.ID,
			UserID:    f.other.ID,
			Value:     decimal.NewFromInt(int64(110 + 10*i)),
			CreatedAt: f.at.Add(time.Duration(i-n) * time.Minute),
		}
		require.NoError(f.t, f.store.CreateBid(context.Background(), &bid))
		bids = append(bids, bid)
	}
	return bids
}

func (f *fixture) bind(id uuid.UUID) *lifecycle.Context {
	f.t.Helper()
	c, err := f.engine.Bind(context.Background(), id)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) reload(id uuid.UUID) models.Offer {
	f.t.Helper()
	offer, err := f.store.GetOffer(context.Background(), id)
	require.NoError(f.t, err)
	return offer
}

func (f *fixture) history(id uuid.UUID) []models.Status {
	f.t.Helper()
	entries, err := f.store.ListHistory(context.Background(), id)
	require.NoError(f.t, err)
	statuses := make([]models.Status, len(entries))
	for i, e := range entries {
		statuses[i] = e.Status
	}
	return statuses
}

// kindMatcher 比對通知的種類與商品
type kindMatcher struct {
	offerID uuid.UUID
	kind    lifecycle.EventKind
}

func notificationOf(offerID uuid.UUID, kind lifecycle.EventKind) kindMatcher {
	return kindMatcher{offerID: offerID, kind: kind}
}

func (m kindMatcher) Matches(x any) bool {
	n, ok := x.(lifecycle.Notification)
	return ok && n.OfferID == m.offerID && n.Kind == m.kind
}

func (m kindMatcher) String() string {
	return "notification " + string(m.kind) + " for " + m.offerID.String()
}
