package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"offerhouse/models"
)

// RoleSystem 只會由 SystemContext 產生，HTTP 層不會把任何 token 對應到此角色
const RoleSystem models.Role = "system"

// Principal 代表目前的操作者
type Principal struct {
	ID       uuid.UUID
	Role     models.Role
	IsActive bool
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

func (p Principal) IsSystem() bool {
	return p.Role == RoleSystem
}

type principalKey struct{}

// WithPrincipal 將操作者放入 context 中
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// SystemContext 回傳代表排程的 context，只應由排程路徑使用
func SystemContext(ctx context.Context) context.Context {
	return WithPrincipal(ctx, Principal{Role: RoleSystem, IsActive: true})
}

// PrincipalFromContext 從 context 中取得操作者
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ContextResolver 從 context 中解析目前的操作者
type ContextResolver struct{}

func (ContextResolver) CurrentPrincipal(ctx context.Context) (Principal, error) {
	const op = "lifecycle.ContextResolver.CurrentPrincipal"
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, fmt.Errorf("%s: %w: no principal in context", op, ErrUnauthorized)
	}
	return p, nil
}
