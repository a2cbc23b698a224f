package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"offerhouse/lifecycle"
	"offerhouse/models"
)

var allowedOps = map[models.Status][]lifecycle.Op{
	models.StatusDraft:           {lifecycle.OpVerify, lifecycle.OpCancel},
	models.StatusVerification:    {lifecycle.OpDraft, lifecycle.OpStartAuction, lifecycle.OpCancel, lifecycle.OpBlockByAdmin},
	models.StatusAuctionStarted:  {lifecycle.OpFinishAuction, lifecycle.OpCancel, lifecycle.OpBlockByAdmin},
	models.StatusAuctionFinished: {lifecycle.OpQualify, lifecycle.OpComplete, lifecycle.OpCancel},
	models.StatusQualification:   {lifecycle.OpComplete, lifecycle.OpCancel, lifecycle.OpBlockByAdmin},
	models.StatusCompleted:       {},
	models.StatusCanceled:        {},
	models.StatusBlockedByAdmin:  {},
}

func TestNewEngine(t *testing.T) {
	_, err := lifecycle.NewEngine(nil)
	assert.Error(t, err)

	f := newFixture(t)
	for _, status := range models.AllStatuses() {
		offer := f.offer(status)
		c, err := f.engine.Bind(context.Background(), offer.ID)
		require.NoError(t, err, status)
		assert.Equal(t, status, c.Status())
		assert.ElementsMatch(t, allowedOps[status], c.AllowedOps(), status)
	}
}

func TestEngine_Bind(t *testing.T) {
	t.Run("unknown offer", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Bind(context.Background(), uuid.New())
		assert.ErrorIs(t, err, lifecycle.ErrOfferNotFound)
	})

	t.Run("unmapped status is fatal", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.Status("ARCHIVED"))
		_, err := f.engine.Bind(context.Background(), offer.ID)
		assert.ErrorIs(t, err, lifecycle.ErrUnmappedStatus)
		assert.True(t, lifecycle.IsFatal(err))
	})
}

func TestContext_ProhibitedOperations(t *testing.T) {
	for _, status := range models.AllStatuses() {
		for _, op := range lifecycle.AllOps() {
			if containsOp(allowedOps[status], op) {
				continue
			}
			t.Run(string(status)+"/"+string(op), func(t *testing.T) {
				f := newFixture(t)
				offer := f.offer(status)
				ctx := f.as(f.owner)
				if op == lifecycle.OpBlockByAdmin {
					ctx = f.as(f.admin)
				}

				c := f.bind(offer.ID)
				err := c.Do(ctx, op, nil, nil)
				assert.ErrorIs(t, err, lifecycle.ErrProhibitedTransition)
				assert.Equal(t, status, c.Status())
				assert.Equal(t, status, f.reload(offer.ID).Status)
				assert.Empty(t, f.history(offer.ID))
			})
		}
	}
}

func containsOp(ops []lifecycle.Op, op lifecycle.Op) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func TestContext_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	offer := f.offer(models.StatusDraft)
	c := f.bind(offer.ID)

	require.NoError(t, c.Verify(f.as(f.owner)))
	assert.Equal(t, models.StatusVerification, c.Status())

	require.NoError(t, c.StartAuction(f.as(f.admin)))
	assert.Equal(t, models.StatusAuctionStarted, c.Status())
	deadline := f.at.Add(72 * time.Hour)
	require.NotNil(t, c.Offer().AuctionFinishedAt)
	assert.True(t, c.Offer().AuctionFinishedAt.Equal(deadline))

	f.at = deadline.Add(time.Minute)
	require.NoError(t, c.FinishAuction(f.system()))
	assert.Equal(t, models.StatusCompleted, c.Status())

	reloaded := f.reload(offer.ID)
	assert.Equal(t, models.StatusCompleted, reloaded.Status)
	assert.Nil(t, reloaded.WinnerBidID)
	assert.True(t, reloaded.IsActive)
	assert.Equal(t, []models.Status{
		models.StatusVerification,
		models.StatusAuctionStarted,
		models.StatusAuctionFinished,
		models.StatusCompleted,
	}, f.history(offer.ID))
}

func TestContext_FinishAuction(t *testing.T) {
	t.Run("no bids completes without winner", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusAuctionStarted)

		c := f.bind(offer.ID)
		require.NoError(t, c.FinishAuction(f.system()))

		reloaded := f.reload(offer.ID)
		assert.Equal(t, models.StatusCompleted, reloaded.Status)
		assert.Nil(t, reloaded.WinnerBidID)
		assert.False(t, reloaded.WinBid.Valid)
		assert.Equal(t, []models.Status{models.StatusAuctionFinished, models.StatusCompleted}, f.history(offer.ID))
	})

	t.Run("single bid wins automatically", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusAuctionStarted)
		bids := f.bids(offer, 1)

		c := f.bind(offer.ID)
		require.NoError(t, c.FinishAuction(f.system()))

		reloaded := f.reload(offer.ID)
		assert.Equal(t, models.StatusCompleted, reloaded.Status)
		require.NotNil(t, reloaded.WinnerBidID)
		assert.Equal(t, bids[0].ID, *reloaded.WinnerBidID)
		assert.True(t, reloaded.WinBid.Decimal.Equal(bids[0].Value))
	})

	t.Run("multiple bids require qualification", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusAuctionStarted)
		bids := f.bids(offer, 3)
		foreign := f.bids(f.offer(models.StatusAuctionStarted), 1)[0]

		c := f.bind(offer.ID)
		require.NoError(t, c.FinishAuction(f.system()))
		assert.Equal(t, models.StatusQualification, c.Status())
		assert.Nil(t, f.reload(offer.ID).WinnerBidID)
		assert.Equal(t, []models.Status{models.StatusAuctionFinished, models.StatusQualification}, f.history(offer.ID))

		invalid := []*uuid.UUID{nil, &foreign.ID, func() *uuid.UUID { id := uuid.New(); return &id }()}
		for _, id := range invalid {
			err := c.Complete(f.as(f.owner), id)
			assert.ErrorIs(t, err, lifecycle.ErrInvalidTransitionArgument)
			assert.Equal(t, models.StatusQualification, f.reload(offer.ID).Status)
		}

		err := c.Complete(f.as(f.other), &bids[1].ID)
		assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)

		require.NoError(t, c.Complete(f.as(f.owner), &bids[1].ID))
		reloaded := f.reload(offer.ID)
		assert.Equal(t, models.StatusCompleted, reloaded.Status)
		require.NotNil(t, reloaded.WinnerBidID)
		assert.Equal(t, bids[1].ID, *reloaded.WinnerBidID)
		assert.Len(t, f.history(offer.ID), 3)
	})

	t.Run("existing winner is an inconsistent state", func(t *testing.T) {
		f := newFixture(t)
		stale := uuid.New()
		offer := f.offer(models.StatusAuctionStarted, func(o *models.Offer) {
			o.WinnerBidID = &stale
		})
		f.bids(offer, 1)

		c := f.bind(offer.ID)
		err := c.FinishAuction(f.system())
		assert.ErrorIs(t, err, lifecycle.ErrInconsistentState)
		assert.True(t, lifecycle.IsFatal(err))

		// 第一步已提交，第二步失敗
		assert.Equal(t, models.StatusAuctionFinished, c.Status())
		assert.Equal(t, models.StatusAuctionFinished, f.reload(offer.ID).Status)
		assert.Equal(t, []models.Status{models.StatusAuctionFinished}, f.history(offer.ID))
	})

	t.Run("only the scheduler may finish an auction", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusAuctionStarted)
		for _, u := range []models.User{f.owner, f.admin, f.other} {
			err := f.bind(offer.ID).FinishAuction(f.as(u))
			assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)
		}
		assert.Empty(t, f.history(offer.ID))
	})

	t.Run("deadline not reached", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusAuctionStarted, func(o *models.Offer) {
			deadline := f.at.Add(time.Hour)
			o.AuctionFinishedAt = &deadline
		})
		err := f.bind(offer.ID).FinishAuction(f.system())
		assert.ErrorIs(t, err, lifecycle.ErrInvalidTransitionArgument)
		assert.Equal(t, models.StatusAuctionStarted, f.reload(offer.ID).Status)
	})

	t.Run("concurrent finish has exactly one winner", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusAuctionStarted)
		first := f.bind(offer.ID)
		second := f.bind(offer.ID)

		require.NoError(t, first.FinishAuction(f.system()))
		err := second.FinishAuction(f.system())
		assert.ErrorIs(t, err, lifecycle.ErrConcurrencyConflict)
		assert.Equal(t, models.StatusAuctionStarted, second.Status())
		assert.Len(t, f.history(offer.ID), 2)
	})
}

func TestContext_ConcurrentTransitions(t *testing.T) {
	f := newFixture(t)
	offer := f.offer(models.StatusAuctionStarted)
	f.bids(offer, 1)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		errs      []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := f.engine.Bind(context.Background(), offer.ID)
			if err == nil {
				err = c.FinishAuction(f.system())
			}
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range errs {
		assert.True(t,
			errors.Is(err, lifecycle.ErrConcurrencyConflict) || errors.Is(err, lifecycle.ErrProhibitedTransition),
			"unexpected error: %v", err)
	}
	assert.Len(t, f.history(offer.ID), 2)
}

func TestContext_Cancel(t *testing.T) {
	cancellable := []models.Status{
		models.StatusDraft,
		models.StatusVerification,
		models.StatusAuctionStarted,
		models.StatusAuctionFinished,
		models.StatusQualification,
	}
	for _, status := range cancellable {
		t.Run("owner cancels "+string(status), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			notifier := lifecycle.NewMockINotifier(ctrl)
			f := newFixture(t, lifecycle.WithEngineNotifier(notifier))
			offer := f.offer(status)
			notifier.EXPECT().Notify(gomock.Any(), notificationOf(offer.ID, lifecycle.EventCanceled)).Times(1)

			require.NoError(t, f.bind(offer.ID).Cancel(f.as(f.owner)))
			reloaded := f.reload(offer.ID)
			assert.Equal(t, models.StatusCanceled, reloaded.Status)
			assert.False(t, reloaded.IsActive)
			assert.Equal(t, []models.Status{models.StatusCanceled}, f.history(offer.ID))
		})
	}

	t.Run("non owner and inactive owner are rejected", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusDraft)
		inactive := f.owner
		inactive.IsActive = false
		for _, u := range []models.User{f.other, f.admin, inactive} {
			err := f.bind(offer.ID).Cancel(f.as(u))
			assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)
		}
		assert.Equal(t, models.StatusDraft, f.reload(offer.ID).Status)
	})

	for _, status := range []models.Status{models.StatusCompleted, models.StatusCanceled, models.StatusBlockedByAdmin} {
		t.Run("terminal "+string(status), func(t *testing.T) {
			f := newFixture(t)
			offer := f.offer(status)
			ctxs := []context.Context{f.as(f.owner), f.as(f.admin), f.as(f.other), f.system()}
			for _, ctx := range ctxs {
				err := f.bind(offer.ID).Cancel(ctx)
				assert.ErrorIs(t, err, lifecycle.ErrProhibitedTransition)
			}
		})
	}

	t.Run("losing a race does not notify", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := lifecycle.NewMockINotifier(ctrl)
		f := newFixture(t, lifecycle.WithEngineNotifier(notifier))
		offer := f.offer(models.StatusDraft)
		notifier.EXPECT().Notify(gomock.Any(), notificationOf(offer.ID, lifecycle.EventCanceled)).Times(1)

		first := f.bind(offer.ID)
		second := f.bind(offer.ID)
		require.NoError(t, first.Cancel(f.as(f.owner)))
		assert.ErrorIs(t, second.Cancel(f.as(f.owner)), lifecycle.ErrConcurrencyConflict)
	})
}

func TestContext_BlockByAdmin(t *testing.T) {
	t.Run("non admin is always unauthorized", func(t *testing.T) {
		for _, status := range models.AllStatuses() {
			f := newFixture(t)
			offer := f.offer(status)
			for _, ctx := range []context.Context{f.as(f.owner), f.as(f.other), f.system()} {
				err := f.bind(offer.ID).BlockByAdmin(ctx, nil)
				assert.ErrorIs(t, err, lifecycle.ErrUnauthorized, status)
			}
			assert.Equal(t, status, f.reload(offer.ID).Status)
		}
	})

	t.Run("admin blocks with reason", func(t *testing.T) {
		f := newFixture(t)
		reason := models.RejectionReason{Text: "counterfeit"}
		require.NoError(t, f.store.CreateRejectionReason(context.Background(), &reason))
		offer := f.offer(models.StatusVerification)

		require.NoError(t, f.bind(offer.ID).BlockByAdmin(f.as(f.admin), &reason.ID))
		reloaded := f.reload(offer.ID)
		assert.Equal(t, models.StatusBlockedByAdmin, reloaded.Status)
		assert.False(t, reloaded.IsActive)

		entries, err := f.store.ListHistory(context.Background(), offer.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.NotNil(t, entries[0].RejectionReasonID)
		assert.Equal(t, reason.ID, *entries[0].RejectionReasonID)
	})

	t.Run("unknown reason", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusQualification)
		unknown := uuid.New()
		err := f.bind(offer.ID).BlockByAdmin(f.as(f.admin), &unknown)
		assert.ErrorIs(t, err, lifecycle.ErrInvalidTransitionArgument)
		assert.Equal(t, models.StatusQualification, f.reload(offer.ID).Status)
	})
}

func TestContext_Draft(t *testing.T) {
	f := newFixture(t)
	reason := models.RejectionReason{Text: "missing photos"}
	require.NoError(t, f.store.CreateRejectionReason(context.Background(), &reason))

	tests := []struct {
		name     string
		user     models.User
		reason   *uuid.UUID
		wantErr  error
		wantKind lifecycle.EventKind
	}{
		{name: "admin without reason", user: f.admin, wantErr: lifecycle.ErrInvalidTransitionArgument},
		{name: "admin with reason", user: f.admin, reason: &reason.ID, wantKind: lifecycle.EventRejectedToDraft},
		{name: "owner withdraws", user: f.owner},
		{name: "other user", user: f.other, wantErr: lifecycle.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			notifier := lifecycle.NewMockINotifier(ctrl)
			engine, err := lifecycle.NewEngine(f.store,
				lifecycle.WithEngineNotifier(notifier),
				lifecycle.WithEngineLogger(discardLogger))
			require.NoError(t, err)
			offer := f.offer(models.StatusVerification)
			if tt.wantKind != "" {
				notifier.EXPECT().Notify(gomock.Any(), notificationOf(offer.ID, tt.wantKind)).Times(1)
			}

			c, err := engine.Bind(context.Background(), offer.ID)
			require.NoError(t, err)
			err = c.Draft(f.as(tt.user), tt.reason)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, models.StatusVerification, f.reload(offer.ID).Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusDraft, f.reload(offer.ID).Status)
		})
	}
}

func TestContext_StartAuction(t *testing.T) {
	t.Run("requires admin", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusVerification)
		for _, u := range []models.User{f.owner, f.other} {
			assert.ErrorIs(t, f.bind(offer.ID).StartAuction(f.as(u)), lifecycle.ErrUnauthorized)
		}
	})

	t.Run("requires a positive duration", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusVerification, func(o *models.Offer) {
			o.AuctionDurationDays = 0
		})
		err := f.bind(offer.ID).StartAuction(f.as(f.admin))
		assert.ErrorIs(t, err, lifecycle.ErrInvalidTransitionArgument)
		assert.Nil(t, f.reload(offer.ID).AuctionFinishedAt)
	})
}

func TestContext_Qualify(t *testing.T) {
	t.Run("single bid cannot be qualified", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusAuctionFinished)
		f.bids(offer, 1)
		err := f.bind(offer.ID).Qualify(f.system())
		assert.ErrorIs(t, err, lifecycle.ErrProhibitedTransition)
		assert.Equal(t, models.StatusAuctionFinished, f.reload(offer.ID).Status)
	})

	t.Run("no bids cannot be qualified", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusAuctionFinished)
		err := f.bind(offer.ID).Qualify(f.as(f.owner))
		assert.ErrorIs(t, err, lifecycle.ErrProhibitedTransition)
	})

	t.Run("several bids", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusAuctionFinished)
		f.bids(offer, 2)
		require.NoError(t, f.bind(offer.ID).Qualify(f.as(f.owner)))
		assert.Equal(t, models.StatusQualification, f.reload(offer.ID).Status)
	})

	t.Run("winner cannot be chosen before qualification", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusAuctionFinished)
		bids := f.bids(offer, 2)
		err := f.bind(offer.ID).Complete(f.system(), &bids[0].ID)
		assert.ErrorIs(t, err, lifecycle.ErrInvalidTransitionArgument)
	})
}

func TestContext_Notifications(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := lifecycle.NewMockINotifier(ctrl)
	f := newFixture(t, lifecycle.WithEngineNotifier(notifier))
	offer := f.offer(models.StatusDraft)

	gomock.InOrder(
		notifier.EXPECT().Notify(gomock.Any(), notificationOf(offer.ID, lifecycle.EventAuctionStarted)),
		notifier.EXPECT().Notify(gomock.Any(), notificationOf(offer.ID, lifecycle.EventCompletedWithWinner)),
	)

	c := f.bind(offer.ID)
	require.NoError(t, c.Verify(f.as(f.owner)))
	require.NoError(t, c.StartAuction(f.as(f.admin)))
	f.bids(offer, 1)
	f.at = f.at.Add(4 * 24 * time.Hour)
	require.NoError(t, c.FinishAuction(f.system()))
}

func TestContext_PrincipalResolution(t *testing.T) {
	t.Run("missing principal", func(t *testing.T) {
		f := newFixture(t)
		offer := f.offer(models.StatusDraft)
		err := f.bind(offer.ID).Verify(context.Background())
		assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)
	})

	t.Run("resolver failure propagates", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := lifecycle.NewMockIPrincipalResolver(ctrl)
		boom := errors.New("identity provider unavailable")
		resolver.EXPECT().CurrentPrincipal(gomock.Any()).Return(lifecycle.Principal{}, boom)

		f := newFixture(t, lifecycle.WithEngineResolver(resolver))
		offer := f.offer(models.StatusDraft)
		err := f.bind(offer.ID).Verify(context.Background())
		assert.ErrorIs(t, err, boom)
	})
}
