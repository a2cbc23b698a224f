package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"offerhouse/models"
)

// Context 綁定一個商品以及其目前狀態對應的策略，所有生命週期操作都經由此處分派
// Context 不是 goroutine safe，每次請求應各自 Bind
type Context struct {
	engine   *Engine
	offer    models.Offer
	strategy strategy

	// 以下欄位只在單次轉換中有效
	bids    *BidSnapshot
	reason  *uuid.UUID
	pending []Notification
	next    Op
}

// Offer 回傳目前綁定的商品
func (c *Context) Offer() models.Offer {
	return c.offer
}

// Status 回傳目前的狀態
func (c *Context) Status() models.Status {
	return c.offer.Status
}

// AllowedOps 回傳目前狀態允許的操作，不含權限檢查
func (c *Context) AllowedOps() []Op {
	return c.strategy.allowedOps()
}

func (c *Context) Draft(ctx context.Context, rejectionReasonID *uuid.UUID) error {
	return c.dispatch(ctx, OpDraft, input{rejectionReasonID: rejectionReasonID})
}

func (c *Context) Verify(ctx context.Context) error {
	return c.dispatch(ctx, OpVerify, input{})
}

func (c *Context) StartAuction(ctx context.Context) error {
	return c.dispatch(ctx, OpStartAuction, input{})
}

func (c *Context) FinishAuction(ctx context.Context) error {
	return c.dispatch(ctx, OpFinishAuction, input{})
}

func (c *Context) Qualify(ctx context.Context) error {
	return c.dispatch(ctx, OpQualify, input{})
}

func (c *Context) Complete(ctx context.Context, winnerBidID *uuid.UUID) error {
	return c.dispatch(ctx, OpComplete, input{winnerBidID: winnerBidID})
}

func (c *Context) Cancel(ctx context.Context) error {
	return c.dispatch(ctx, OpCancel, input{})
}

// BlockByAdmin 在任何狀態下都先檢查管理員權限，非管理員一律回傳 ErrUnauthorized
func (c *Context) BlockByAdmin(ctx context.Context, rejectionReasonID *uuid.UUID) error {
	if _, err := c.guard().Admin(ctx); err != nil {
		return fmt.Errorf("%s: %w", OpBlockByAdmin, err)
	}
	return c.dispatch(ctx, OpBlockByAdmin, input{rejectionReasonID: rejectionReasonID})
}

// Do 依名稱執行操作，供 HTTP 層等外部呼叫者使用
func (c *Context) Do(ctx context.Context, op Op, rejectionReasonID, winnerBidID *uuid.UUID) error {
	switch op {
	case OpDraft:
		return c.Draft(ctx, rejectionReasonID)
	case OpVerify:
		return c.Verify(ctx)
	case OpStartAuction:
		return c.StartAuction(ctx)
	case OpFinishAuction:
		return c.FinishAuction(ctx)
	case OpQualify:
		return c.Qualify(ctx)
	case OpComplete:
		return c.Complete(ctx, winnerBidID)
	case OpCancel:
		return c.Cancel(ctx)
	case OpBlockByAdmin:
		return c.BlockByAdmin(ctx, rejectionReasonID)
	}
	return fmt.Errorf("%w: unknown operation %q", ErrProhibitedTransition, op)
}

// setStrategy 由策略呼叫，指定轉換後的狀態
func (c *Context) setStrategy(status models.Status) error {
	s, err := c.engine.table.resolve(status)
	if err != nil {
		return err
	}
	c.strategy = s
	return nil
}

func (c *Context) guard() *Guard {
	return c.engine.guard
}

func (c *Context) now() time.Time {
	return c.engine.now()
}

func (c *Context) notify(kind EventKind, winnerBidID *uuid.UUID) {
	c.pending = append(c.pending, Notification{
		OfferID:     c.offer.ID,
		OwnerID:     c.offer.UserID,
		Kind:        kind,
		WinnerBidID: winnerBidID,
	})
}

// continueWith 在本次轉換提交後接著執行下一個操作
func (c *Context) continueWith(op Op) {
	c.next = op
}

// useRejectionReason 確認原因存在並記錄到本次的狀態紀錄
func (c *Context) useRejectionReason(ctx context.Context, id uuid.UUID) error {
	if _, err := c.engine.store.GetRejectionReason(ctx, id); err != nil {
		if isNotFound(err) {
			return invalidArgument("rejection reason %s does not exist", id)
		}
		return err
	}
	c.reason = &id
	return nil
}

func (c *Context) reset() {
	c.bids = newBidSnapshot(c.engine.store, c.offer.ID)
	c.reason = nil
	c.pending = nil
	c.next = ""
}

// dispatch 執行一次轉換：
//  1. 找出目前策略對應的 handler，沒有則為禁止的轉換
//  2. handler 修改商品並指定下一個策略
//  3. 確認商品狀態與新策略一致，且狀態確實改變
//  4. 以原狀態為條件寫入商品與一筆狀態紀錄
//  5. 提交成功後才送出通知，並執行接續的操作
func (c *Context) dispatch(ctx context.Context, op Op, in input) error {
	h, ok := c.strategy.handlers[op]
	if !ok {
		return prohibited(op, c.offer.Status)
	}

	from := c.offer
	fromStrategy := c.strategy
	rollback := func() {
		c.offer = from
		c.strategy = fromStrategy
		c.reset()
	}
	c.reset()

	if err := h(ctx, c, in); err != nil {
		rollback()
		return fmt.Errorf("%s: %w", op, err)
	}
	if c.offer.Status != c.strategy.status {
		to := c.offer.Status
		rollback()
		return fmt.Errorf("%s: %w", op, inconsistent("offer status %s does not match strategy %s", to, c.strategy.status))
	}
	if c.offer.Status == from.Status {
		rollback()
		return fmt.Errorf("%s: %w", op, prohibited(op, from.Status))
	}

	now := c.now()
	c.offer.UpdatedAt = now
	transition := Transition{
		From:              from.Status,
		Offer:             c.offer,
		RejectionReasonID: c.reason,
		At:                now,
	}
	if err := c.engine.store.ApplyTransition(ctx, transition); err != nil {
		rollback()
		return fmt.Errorf("%s: %w", op, err)
	}
	c.engine.logger.Info("Offer transitioned",
		slog.String("offerID", c.offer.ID.String()),
		slog.String("op", string(op)),
		slog.String("from", from.Status.String()),
		slog.String("to", c.offer.Status.String()),
	)

	for _, n := range c.pending {
		n.OccurredAt = now
		c.engine.notifier.Notify(ctx, n)
	}
	next := c.next
	c.reset()
	if next != "" {
		if err := c.dispatch(ctx, next, input{}); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}
