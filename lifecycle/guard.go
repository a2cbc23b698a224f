package lifecycle

import (
	"context"
	"fmt"

	"offerhouse/models"
)

// Guard 負責判斷目前的操作者是否可以執行指定的轉換
type Guard struct {
	resolver IPrincipalResolver
}

func NewGuard(resolver IPrincipalResolver) *Guard {
	if resolver == nil {
		resolver = ContextResolver{}
	}
	return &Guard{resolver: resolver}
}

// Principal 取得目前的操作者
func (g *Guard) Principal(ctx context.Context) (Principal, error) {
	return g.resolver.CurrentPrincipal(ctx)
}

// Owner 要求操作者是商品的擁有者，且帳號仍為啟用狀態
func (g *Guard) Owner(ctx context.Context, offer models.Offer) (Principal, error) {
	p, err := g.Principal(ctx)
	if err != nil {
		return Principal{}, err
	}
	if p.ID != offer.UserID {
		return Principal{}, fmt.Errorf("%w: principal %s does not own offer %s", ErrUnauthorized, p.ID, offer.ID)
	}
	if !p.IsActive {
		return Principal{}, fmt.Errorf("%w: account %s is inactive", ErrUnauthorized, p.ID)
	}
	return p, nil
}

// Admin 要求操作者具有管理員角色
func (g *Guard) Admin(ctx context.Context) (Principal, error) {
	p, err := g.Principal(ctx)
	if err != nil {
		return Principal{}, err
	}
	if !p.IsAdmin() {
		return Principal{}, fmt.Errorf("%w: principal %s is not an admin", ErrUnauthorized, p.ID)
	}
	return p, nil
}

// System 要求操作來自排程路徑
func (g *Guard) System(ctx context.Context) (Principal, error) {
	p, err := g.Principal(ctx)
	if err != nil {
		return Principal{}, err
	}
	if !p.IsSystem() {
		return Principal{}, fmt.Errorf("%w: operation is reserved for the scheduler", ErrUnauthorized)
	}
	return p, nil
}

// OwnerOrSystem 允許排程或商品擁有者
func (g *Guard) OwnerOrSystem(ctx context.Context, offer models.Offer) (Principal, error) {
	p, err := g.Principal(ctx)
	if err != nil {
		return Principal{}, err
	}
	if p.IsSystem() {
		return p, nil
	}
	return g.Owner(ctx, offer)
}

func isOwner(p Principal, offer models.Offer) bool {
	return p.ID == offer.UserID && p.IsActive
}
