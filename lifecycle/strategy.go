package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"offerhouse/models"
)

// Op 代表生命週期上的一個操作
type Op string

const (
	OpDraft         Op = "draft"
	OpVerify        Op = "verify"
	OpStartAuction  Op = "startAuction"
	OpFinishAuction Op = "finishAuction"
	OpQualify       Op = "qualify"
	OpComplete      Op = "complete"
	OpCancel        Op = "cancel"
	OpBlockByAdmin  Op = "blockByAdmin"
)

// AllOps 回傳所有操作
func AllOps() []Op {
	return []Op{OpDraft, OpVerify, OpStartAuction, OpFinishAuction, OpQualify, OpComplete, OpCancel, OpBlockByAdmin}
}

type input struct {
	rejectionReasonID *uuid.UUID
	winnerBidID       *uuid.UUID
}

// handler 檢查權限、修改商品並透過 setStrategy 指定下一個狀態
type handler func(ctx context.Context, c *Context, in input) error

// strategy 是一個狀態允許的操作集合，沒有列出的操作一律禁止
type strategy struct {
	status   models.Status
	handlers map[Op]handler
}

type strategyTable map[models.Status]strategy

func newStrategyTable() strategyTable {
	return strategyTable{
		models.StatusDraft: {
			status: models.StatusDraft,
			handlers: map[Op]handler{
				OpVerify: draftVerify,
				OpCancel: ownerCancel,
			},
		},
		models.StatusVerification: {
			status: models.StatusVerification,
			handlers: map[Op]handler{
				OpDraft:        verificationDraft,
				OpStartAuction: verificationStartAuction,
				OpCancel:       ownerCancel,
				OpBlockByAdmin: adminBlock,
			},
		},
		models.StatusAuctionStarted: {
			status: models.StatusAuctionStarted,
			handlers: map[Op]handler{
				OpFinishAuction: startedFinishAuction,
				OpCancel:        ownerCancel,
				OpBlockByAdmin:  adminBlock,
			},
		},
		models.StatusAuctionFinished: {
			status: models.StatusAuctionFinished,
			handlers: map[Op]handler{
				OpQualify:  finishedQualify,
				OpComplete: finishedComplete,
				OpCancel:   ownerCancel,
			},
		},
		models.StatusQualification: {
			status: models.StatusQualification,
			handlers: map[Op]handler{
				OpComplete:     qualificationComplete,
				OpCancel:       ownerCancel,
				OpBlockByAdmin: adminBlock,
			},
		},
		models.StatusCompleted:      {status: models.StatusCompleted},
		models.StatusCanceled:       {status: models.StatusCanceled},
		models.StatusBlockedByAdmin: {status: models.StatusBlockedByAdmin},
	}
}

func (t strategyTable) resolve(status models.Status) (strategy, error) {
	s, ok := t[status]
	if !ok {
		return strategy{}, fmt.Errorf("%w: %q", ErrUnmappedStatus, status)
	}
	return s, nil
}

// validate 確認每個狀態都恰好對應一個策略
func (t strategyTable) validate() error {
	for _, status := range models.AllStatuses() {
		s, err := t.resolve(status)
		if err != nil {
			return err
		}
		if s.status != status {
			return fmt.Errorf("%w: strategy for %s is bound to %s", ErrUnmappedStatus, status, s.status)
		}
	}
	if len(t) != len(models.AllStatuses()) {
		return fmt.Errorf("%w: table has %d strategies for %d statuses", ErrUnmappedStatus, len(t), len(models.AllStatuses()))
	}
	return nil
}

func (s strategy) allowedOps() []Op {
	ops := make([]Op, 0, len(s.handlers))
	for _, op := range AllOps() {
		if _, ok := s.handlers[op]; ok {
			ops = append(ops, op)
		}
	}
	return ops
}
