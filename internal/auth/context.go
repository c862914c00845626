package auth

import (
	"context"

	"github.com/mhollis/keyturn/internal/model"
)

type contextKey struct{}

type AuthContext struct {
	UserID    int64
	Role      model.Role
	SessionID int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func RoleOf(ctx context.Context) (model.Role, bool) {
	ac, ok := FromContext(ctx)
	if !ok {
		return "", false
	}
	return ac.Role, true
}

func IsAdmin(ctx context.Context) bool {
	role, ok := RoleOf(ctx)
	return ok && role == model.RoleAdmin
}

// CanManage reports whether the caller may manage properties and leases.
func CanManage(ctx context.Context) bool {
	role, ok := RoleOf(ctx)
	return ok && role.CanManageProperties()
}
