package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"offerhouse/lifecycle"
	"offerhouse/models"
)

type CreateOfferRequest struct {
	Title               string           `json:"title" binding:"required,max=255"`
	Description         string           `json:"description"`
	AuctionDurationDays int              `json:"auctionDurationDays" binding:"required,min=1"`
	StartPrice          *decimal.Decimal `json:"startPrice"`
	Step                *decimal.Decimal `json:"step"`
	IsFree              bool             `json:"isFree"`
	CategoryID          *uuid.UUID       `json:"categoryId"`
	LocationID          *uuid.UUID       `json:"locationId"`
}

type OperationRequest struct {
	RejectionReasonID *uuid.UUID `json:"rejectionReasonId"`
	WinnerBidID       *uuid.UUID `json:"winnerBidId"`
}

type PlaceBidRequest struct {
	Value decimal.Decimal `json:"value"`
}

type OfferResponse struct {
	ID                  uuid.UUID        `json:"id"`
	OwnerID             uuid.UUID        `json:"ownerId"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	Status              models.Status    `json:"status"`
	AuctionDurationDays int              `json:"auctionDurationDays"`
	AuctionFinishedAt   *time.Time       `json:"auctionFinishedAt,omitempty"`
	StartPrice          *decimal.Decimal `json:"startPrice,omitempty"`
	Step                *decimal.Decimal `json:"step,omitempty"`
	WinBid              *decimal.Decimal `json:"winBid,omitempty"`
	WinnerBidID         *uuid.UUID       `json:"winnerBidId,omitempty"`
	IsFree              bool             `json:"isFree"`
	IsActive            bool             `json:"isActive"`
	NeedsAttention      bool             `json:"needsAttention"`
	AllowedOperations   []lifecycle.Op   `json:"allowedOperations"`
}

type HistoryEntryResponse struct {
	ID                uuid.UUID     `json:"id"`
	Status            models.Status `json:"status"`
	RejectionReasonID *uuid.UUID    `json:"rejectionReasonId,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
}

type BidResponse struct {
	ID        uuid.UUID       `json:"id"`
	OfferID   uuid.UUID       `json:"offerId"`
	Value     decimal.Decimal `json:"value"`
	CreatedAt time.Time       `json:"createdAt"`
}

func nullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	return lo.ToPtr(d.Decimal)
}

func toOfferResponse(c *lifecycle.Context) OfferResponse {
	offer := c.Offer()
	return OfferResponse{
		ID:                  offer.ID,
		OwnerID:             offer.UserID,
		Title:               offer.Title,
		Description:         offer.Description,
		Status:              offer.Status,
		AuctionDurationDays: offer.AuctionDurationDays,
		AuctionFinishedAt:   offer.AuctionFinishedAt,
		StartPrice:          nullDecimal(offer.StartPrice),
		Step:                nullDecimal(offer.Step),
		WinBid:              nullDecimal(offer.WinBid),
		WinnerBidID:         offer.WinnerBidID,
		IsFree:              offer.IsFree,
		IsActive:            offer.IsActive,
		NeedsAttention:      offer.NeedsAttention,
		AllowedOperations:   c.AllowedOps(),
	}
}

func parseOfferID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("offerID"))
	if err != nil {
		abortWithError(c, http.StatusNotFound, "offer not found")
		return uuid.Nil, false
	}
	return id, true
}

// activePrincipal 取得已啟用的操作者，未啟用時直接回應 403
func activePrincipal(c *gin.Context) (lifecycle.Principal, bool) {
	p, ok := lifecycle.PrincipalFromContext(c.Request.Context())
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "missing principal")
		return p, false
	}
	if !p.IsActive {
		abortWithError(c, http.StatusForbidden, "user is not active")
		return p, false
	}
	return p, true
}

// Create a draft offer
// (POST /offers)
func (impl *ServerImpl) PostOffer(c *gin.Context) {
	const op = "PostOffer"
	p, ok := activePrincipal(c)
	if !ok {
		return
	}
	var request CreateOfferRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	// 免費商品不帶定價資訊，其餘商品必須有正數的起標價與加價幅度
	if request.IsFree {
		if request.StartPrice != nil || request.Step != nil {
			abortWithError(c, http.StatusBadRequest, "free offers cannot have pricing")
			return
		}
	} else {
		if request.StartPrice == nil || !request.StartPrice.IsPositive() ||
			request.Step == nil || !request.Step.IsPositive() {
			abortWithError(c, http.StatusBadRequest, "startPrice and step must be positive")
			return
		}
	}
	// 過濾描述中的 HTML
	request.Description = impl.htmlChecker.Sanitize(request.Description)
	request.Title = strings.TrimSpace(request.Title)
	if request.Title == "" {
		abortWithError(c, http.StatusBadRequest, "title cannot be empty")
		return
	}

	now := impl.now()
	offer := models.Offer{
		UserID:              p.ID,
		Title:               request.Title,
		Description:         request.Description,
		AuctionDurationDays: request.AuctionDurationDays,
		IsFree:              request.IsFree,
		IsActive:            true,
		Status:              models.StatusDraft,
		CategoryID:          request.CategoryID,
		LocationID:          request.LocationID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if !request.IsFree {
		offer.StartPrice = decimal.NewNullDecimal(*request.StartPrice)
		offer.Step = decimal.NewNullDecimal(*request.Step)
	}
	if err := impl.repo.CreateOffer(c.Request.Context(), &offer); err != nil {
		impl.writeError(c, op, fmt.Errorf("[%s] Fail to create offer, err=%w", op, err))
		return
	}
	lc, err := impl.engine.BindOffer(offer)
	if err != nil {
		impl.writeError(c, op, err)
		return
	}
	c.Header("Location", "/offers/"+offer.ID.String())
	c.JSON(http.StatusCreated, toOfferResponse(lc))
}

// Get offer details
// (GET /offers/{offerID})
func (impl *ServerImpl) GetOffer(c *gin.Context) {
	const op = "GetOffer"
	id, ok := parseOfferID(c)
	if !ok {
		return
	}
	lc, err := impl.engine.Bind(c.Request.Context(), id)
	if err != nil {
		impl.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, toOfferResponse(lc))
}

// Get offer status history
// (GET /offers/{offerID}/history)
func (impl *ServerImpl) GetOfferHistory(c *gin.Context) {
	const op = "GetOfferHistory"
	id, ok := parseOfferID(c)
	if !ok {
		return
	}
	if _, err := impl.repo.GetOffer(c.Request.Context(), id); err != nil {
		impl.writeError(c, op, err)
		return
	}
	entries, err := impl.repo.ListHistory(c.Request.Context(), id)
	if err != nil {
		impl.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(entries, func(e models.StatusHistoryEntry, _ int) HistoryEntryResponse {
		return HistoryEntryResponse{
			ID:                e.ID,
			Status:            e.Status,
			RejectionReasonID: e.RejectionReasonID,
			CreatedAt:         e.CreatedAt,
		}
	}))
}

// Place a bid on an offer in auction
// (POST /offers/{offerID}/bids)
func (impl *ServerImpl) PostBid(c *gin.Context) {
	const op = "PostBid"
	p, ok := activePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseOfferID(c)
	if !ok {
		return
	}
	var request PlaceBidRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !request.Value.IsPositive() {
		abortWithError(c, http.StatusBadRequest, "value must be positive")
		return
	}

	// 與排程使用同一把鎖，確保最低出價的檢查與寫入之間沒有其他出價，也不會與結束拍賣交錯
	ctx := c.Request.Context()
	release, acquired, err := impl.locker.TryLock(ctx, id.String())
	if err != nil {
		impl.writeError(c, op, err)
		return
	}
	if !acquired {
		abortWithError(c, http.StatusConflict, "offer is busy, retry later")
		return
	}
	defer release()

	offer, err := impl.repo.GetOffer(ctx, id)
	if err != nil {
		impl.writeError(c, op, err)
		return
	}
	now := impl.now()
	switch {
	case offer.Status != models.StatusAuctionStarted:
		abortWithError(c, http.StatusConflict, fmt.Sprintf("offer is %s", offer.Status))
		return
	case !now.Before(offer.Deadline()):
		abortWithError(c, http.StatusConflict, "auction has ended")
		return
	case offer.IsFree:
		abortWithError(c, http.StatusBadRequest, "free offers do not accept bids")
		return
	case offer.UserID == p.ID:
		abortWithError(c, http.StatusForbidden, "owner cannot bid on own offer")
		return
	}

	bids, err := impl.repo.ListBids(ctx, id)
	if err != nil {
		impl.writeError(c, op, err)
		return
	}
	minimum := offer.StartPrice.Decimal
	if len(bids) > 0 {
		highest := lo.MaxBy(bids, func(a, b models.Bid) bool {
			return a.Value.GreaterThan(b.Value)
		})
		minimum = highest.Value.Add(offer.Step.Decimal)
	}
	if request.Value.LessThan(minimum) {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("bid must be at least %s", minimum.String()))
		return
	}

	bid := models.Bid{
		OfferID:   id,
		UserID:    p.ID,
		Value:     request.Value,
		CreatedAt: now,
	}
	if err := impl.repo.CreateBid(ctx, &bid); err != nil {
		impl.writeError(c, op, fmt.Errorf("[%s] Fail to create bid, err=%w", op, err))
		return
	}
	impl.logger.Info("Bid placed", slog.String("offerID", id.String()), slog.String("bidID", bid.ID.String()))
	c.JSON(http.StatusCreated, BidResponse{
		ID:        bid.ID,
		OfferID:   bid.OfferID,
		Value:     bid.Value,
		CreatedAt: bid.CreatedAt,
	})
}

// Run a lifecycle operation on an offer
// (POST /offers/{offerID}/{operation})
func (impl *ServerImpl) PostOfferOperation(operation lifecycle.Op) gin.HandlerFunc {
	op := "PostOfferOperation." + string(operation)
	return func(c *gin.Context) {
		id, ok := parseOfferID(c)
		if !ok {
			return
		}
		var request OperationRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&request); err != nil {
				abortWithError(c, http.StatusBadRequest, err.Error())
				return
			}
		}

		ctx := c.Request.Context()
		lc, err := impl.engine.Bind(ctx, id)
		if err != nil {
			impl.writeError(c, op, err)
			return
		}
		if err := lc.Do(ctx, operation, request.RejectionReasonID, request.WinnerBidID); err != nil {
			if lifecycle.IsFatal(err) {
				// 狀態不一致的商品交由人工處理
				if flagErr := impl.repo.FlagForAttention(ctx, id, err.Error()); flagErr != nil && !errors.Is(flagErr, lifecycle.ErrOfferNotFound) {
					impl.logger.Error("Fail to flag offer", slog.Any("error", flagErr))
				}
			}
			impl.writeError(c, op, err)
			return
		}
		c.JSON(http.StatusOK, toOfferResponse(lc))
	}
}
