package api

import (
	"context"

	"github.com/google/uuid"

	"offerhouse/lifecycle"
	"offerhouse/models"
	"offerhouse/sweeper"
)

// IRepository 定義了 HTTP 層需要的持久層操作，memory 與 db 兩種實作皆滿足
type IRepository interface {
	lifecycle.IStore
	sweeper.IOfferFinder
	CreateOffer(ctx context.Context, offer *models.Offer) error
	CreateBid(ctx context.Context, bid *models.Bid) error
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
	ListHistory(ctx context.Context, offerID uuid.UUID) ([]models.StatusHistoryEntry, error)
}
