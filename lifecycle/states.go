package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"offerhouse/models"
)

// ownerCancel 由擁有者取消商品，取消後商品同時下架
func ownerCancel(ctx context.Context, c *Context, _ input) error {
	if _, err := c.guard().Owner(ctx, c.offer); err != nil {
		return err
	}
	c.offer.IsActive = false
	c.offer.Status = models.StatusCanceled
	c.notify(EventCanceled, nil)
	return c.setStrategy(models.StatusCanceled)
}

// adminBlock 由管理員封鎖商品，可附帶封鎖原因
func adminBlock(ctx context.Context, c *Context, in input) error {
	if _, err := c.guard().Admin(ctx); err != nil {
		return err
	}
	if in.rejectionReasonID != nil {
		if err := c.useRejectionReason(ctx, *in.rejectionReasonID); err != nil {
			return err
		}
	}
	c.offer.IsActive = false
	c.offer.Status = models.StatusBlockedByAdmin
	c.notify(EventBlockedByAdmin, nil)
	return c.setStrategy(models.StatusBlockedByAdmin)
}

func draftVerify(ctx context.Context, c *Context, _ input) error {
	if _, err := c.guard().Owner(ctx, c.offer); err != nil {
		return err
	}
	c.offer.Status = models.StatusVerification
	return c.setStrategy(models.StatusVerification)
}

// verificationDraft 將商品退回草稿
//   - 擁有者可以自行撤回，原因可省略
//   - 管理員退回時必須提供原因
func verificationDraft(ctx context.Context, c *Context, in input) error {
	p, err := c.guard().Principal(ctx)
	if err != nil {
		return err
	}
	switch {
	case isOwner(p, c.offer):
	case p.IsAdmin():
		if in.rejectionReasonID == nil {
			return invalidArgument("a rejection reason is required when an admin returns an offer to draft")
		}
	default:
		return fmt.Errorf("%w: only the owner or an admin can return offer %s to draft", ErrUnauthorized, c.offer.ID)
	}
	if in.rejectionReasonID != nil {
		if err := c.useRejectionReason(ctx, *in.rejectionReasonID); err != nil {
			return err
		}
		c.notify(EventRejectedToDraft, nil)
	}
	c.offer.Status = models.StatusDraft
	return c.setStrategy(models.StatusDraft)
}

func verificationStartAuction(ctx context.Context, c *Context, _ input) error {
	if _, err := c.guard().Admin(ctx); err != nil {
		return err
	}
	if c.offer.AuctionDurationDays <= 0 {
		return invalidArgument("auction duration must be positive, got %d days", c.offer.AuctionDurationDays)
	}
	deadline := c.now().Add(time.Duration(c.offer.AuctionDurationDays) * 24 * time.Hour)
	c.offer.AuctionFinishedAt = &deadline
	c.offer.Status = models.StatusAuctionStarted
	c.notify(EventAuctionStarted, nil)
	return c.setStrategy(models.StatusAuctionStarted)
}

// startedFinishAuction 結束拍賣，提交後立即以 complete 決定拍賣結果
func startedFinishAuction(ctx context.Context, c *Context, _ input) error {
	if _, err := c.guard().System(ctx); err != nil {
		return err
	}
	if c.offer.AuctionFinishedAt == nil {
		return inconsistent("offer %s is in %s without a deadline", c.offer.ID, c.offer.Status)
	}
	if c.offer.AuctionFinishedAt.After(c.now()) {
		return invalidArgument("auction of offer %s ends at %s", c.offer.ID, c.offer.AuctionFinishedAt.Format(time.RFC3339))
	}
	c.offer.Status = models.StatusAuctionFinished
	c.continueWith(OpComplete)
	return c.setStrategy(models.StatusAuctionFinished)
}

// finishedComplete 依出價數量決定拍賣結果
//   - 沒有出價：直接完成，沒有得標者
//   - 一筆出價：該筆出價自動得標
//   - 多筆出價：進入資格審查，由擁有者選出得標者
func finishedComplete(ctx context.Context, c *Context, in input) error {
	if _, err := c.guard().OwnerOrSystem(ctx, c.offer); err != nil {
		return err
	}
	if in.winnerBidID != nil {
		return invalidArgument("a winner can only be chosen during qualification")
	}
	bids, err := c.bids.List(ctx)
	if err != nil {
		return err
	}
	switch len(bids) {
	case 0:
		c.offer.Status = models.StatusCompleted
		c.notify(EventCompletedWithoutWinner, nil)
		return c.setStrategy(models.StatusCompleted)
	case 1:
		if c.offer.HasWinner() {
			return inconsistent("offer %s already has winner %s before completion", c.offer.ID, *c.offer.WinnerBidID)
		}
		c.setWinner(bids[0])
		c.offer.Status = models.StatusCompleted
		c.notify(EventCompletedWithWinner, c.offer.WinnerBidID)
		return c.setStrategy(models.StatusCompleted)
	default:
		return finishedQualify(ctx, c, in)
	}
}

// finishedQualify 只有在多筆出價時才合法
// 出價不足兩筆時回傳 ErrProhibitedTransition，與其他狀態不允許的操作使用同一個錯誤
func finishedQualify(ctx context.Context, c *Context, _ input) error {
	if _, err := c.guard().OwnerOrSystem(ctx, c.offer); err != nil {
		return err
	}
	count, err := c.bids.Count(ctx)
	if err != nil {
		return err
	}
	if count <= 1 {
		return fmt.Errorf("%w: qualification requires more than one bid, offer %s has %d", ErrProhibitedTransition, c.offer.ID, count)
	}
	c.offer.Status = models.StatusQualification
	c.notify(EventQualificationRequired, nil)
	return c.setStrategy(models.StatusQualification)
}

func qualificationComplete(ctx context.Context, c *Context, in input) error {
	if _, err := c.guard().Owner(ctx, c.offer); err != nil {
		return err
	}
	if in.winnerBidID == nil {
		return invalidArgument("a winner bid is required to complete qualification")
	}
	if c.offer.HasWinner() {
		return invalidArgument("offer %s already has a winner", c.offer.ID)
	}
	bid, err := c.bids.ByID(ctx, *in.winnerBidID)
	if err != nil {
		if errors.Is(err, ErrBidNotFound) {
			return invalidArgument("bid %s is not a bid of offer %s", *in.winnerBidID, c.offer.ID)
		}
		return err
	}
	c.setWinner(bid)
	c.offer.Status = models.StatusCompleted
	c.notify(EventCompletedWithWinner, c.offer.WinnerBidID)
	return c.setStrategy(models.StatusCompleted)
}

func (c *Context) setWinner(bid models.Bid) {
	id := bid.ID
	c.offer.WinnerBidID = &id
	c.offer.WinBid = decimal.NewNullDecimal(bid.Value)
}
